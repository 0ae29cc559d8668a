package templates

import (
	"strings"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/schedule"
)

type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

// Days lists every weekday in the order templates are returned.
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

func ParseDay(value string) (Day, error) {
	weekday, err := schedule.ParseWeekday(value)
	if err != nil {
		return "", err
	}
	return DayOf(weekday), nil
}

func DayOf(weekday time.Weekday) Day {
	return Day(strings.ToLower(weekday.String()))
}

func (d Day) order() int {
	for i, day := range Days {
		if day == d {
			return i
		}
	}
	return len(Days)
}

type TemplateSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Capacity  int    `json:"capacity"`
}

type SlotTemplate struct {
	Day   Day            `json:"day"`
	Slots []TemplateSlot `json:"slots"`
}

type TemplateSlotRequest struct {
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
	Capacity  *int   `json:"capacity" validate:"omitempty,min=0"`
}

type UpsertRequest struct {
	Day   string                `json:"day" validate:"omitempty,weekday"`
	Slots []TemplateSlotRequest `json:"slots" validate:"required,dive"`
}

type ApplyRequest struct {
	FormattedDate string `json:"formattedDate" validate:"required,date"`
}
