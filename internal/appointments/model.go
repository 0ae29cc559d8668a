package appointments

import (
	"strings"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusBooked    Status = "BOOKED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// transitions lists the statuses reachable from each status.
var transitions = map[Status][]Status{
	StatusPending: {StatusBooked, StatusCancelled},
	StatusBooked:  {StatusCompleted, StatusCancelled},
}

func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case StatusPending, StatusBooked, StatusCancelled, StatusCompleted:
		return status, true
	default:
		return "", false
	}
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// HoldsCapacity reports whether an appointment in this status occupies a seat.
func (s Status) HoldsCapacity() bool {
	return s != StatusCancelled
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Appointment snapshots the slot times at creation; it holds no live slot reference.
type Appointment struct {
	ID        string    `json:"appointmentId"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Note      *string   `json:"note"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	StartMinute int `json:"-"`
	EndMinute   int `json:"-"`
}

func (a Appointment) WithClocks() Appointment {
	a.StartTime = schedule.MinutesToClock(a.StartMinute)
	a.EndTime = schedule.MinutesToClock(a.EndMinute)
	return a
}

type BookingRequest struct {
	Date  string  `json:"date" validate:"required,date"`
	Time  string  `json:"time" validate:"required,clock"`
	Name  string  `json:"name" validate:"required,min=2,max=120"`
	Email string  `json:"email" validate:"required,email"`
	Phone string  `json:"phone" validate:"required,phone"`
	Note  *string `json:"note" validate:"omitempty,max=2000"`
}

type UpdateRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=2,max=120"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Phone  *string `json:"phone" validate:"omitempty,phone"`
	Note   *string `json:"note" validate:"omitempty,max=2000"`
	Status *string `json:"status" validate:"omitempty,appointmentstatus"`
}

type ListFilter struct {
	Status        Status
	StartDate     string
	EndDate       string
	AppointmentID string
	Email         string
}

// SlotLoad is a slot joined with the number of appointments holding it.
type SlotLoad struct {
	SlotID      string
	Date        string
	StartMinute int
	EndMinute   int
	Capacity    int
	Active      int
}

type SlotAvailability struct {
	SlotID      string `json:"slotId"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Capacity    int    `json:"capacity"`
	Booked      int    `json:"booked"`
	Remaining   int    `json:"remaining"`
	IsAvailable bool   `json:"isAvailable"`
}

type DayAvailability struct {
	Date  string             `json:"date"`
	Slots []SlotAvailability `json:"slots"`
}

type Availability struct {
	StartDate string            `json:"startDate"`
	EndDate   string            `json:"endDate"`
	Days      []DayAvailability `json:"days"`
}
