package slots

import (
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/schedule"
)

const DefaultCapacity = 1

// Slot is bookable capacity on one calendar date. Times are minutes since
// midnight in the service timezone; the clock strings are derived from them.
type Slot struct {
	ID          string    `json:"slotId"`
	Date        string    `json:"date"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	Capacity    int       `json:"capacity"`
	IsAvailable bool      `json:"isAvailable"`
	CreatedAt   time.Time `json:"createdAt"`

	StartMinute int `json:"-"`
	EndMinute   int `json:"-"`
}

func (s Slot) Interval() schedule.Interval {
	return schedule.Interval{Start: s.StartMinute, End: s.EndMinute}
}

// WithClocks fills StartTime and EndTime from the minute fields.
func (s Slot) WithClocks() Slot {
	s.StartTime = schedule.MinutesToClock(s.StartMinute)
	s.EndTime = schedule.MinutesToClock(s.EndMinute)
	return s
}

// Spec describes a slot to create, independent of its date.
type Spec struct {
	StartTime string
	EndTime   string
	Capacity  int
}

type CreateRequest struct {
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
	Capacity  *int   `json:"capacity" validate:"omitempty,min=0"`
}

func (r CreateRequest) Spec() Spec {
	capacity := DefaultCapacity
	if r.Capacity != nil {
		capacity = *r.Capacity
	}
	return Spec{StartTime: r.StartTime, EndTime: r.EndTime, Capacity: capacity}
}
