package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	// DefaultSlotMinutes is the slot length used for the default weekly ranges.
	DefaultSlotMinutes = 45
)

var (
	ErrInvalidDate     = errors.New("invalid date format")
	ErrInvalidTime     = errors.New("invalid time format")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidWeekday  = errors.New("invalid weekday")
	ErrInvalidRange    = errors.New("start time must be before end time")
)

type TimeRange struct {
	Start string
	End   string
}

func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation(DateLayout, dateStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

func ParseDateTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	if _, err := time.Parse(ClockLayout, timeStr); err != nil {
		return time.Time{}, ErrInvalidTime
	}
	if _, err := ParseDate(dateStr, loc); err != nil {
		return time.Time{}, err
	}

	parsed, err := time.ParseInLocation(DateLayout+" "+ClockLayout, dateStr+" "+timeStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}
	return parsed, nil
}

func ParseClockToMinutes(timeStr string) (int, error) {
	tm, err := time.Parse(ClockLayout, timeStr)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return tm.Hour()*60 + tm.Minute(), nil
}

func MinutesToClock(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// ClockRange parses a start/end clock pair into an interval of minutes since midnight.
func ClockRange(start, end string) (Interval, error) {
	startMin, err := ParseClockToMinutes(start)
	if err != nil {
		return Interval{}, err
	}
	endMin, err := ParseClockToMinutes(end)
	if err != nil {
		return Interval{}, err
	}
	if startMin >= endMin {
		return Interval{}, ErrInvalidRange
	}
	return Interval{Start: startMin, End: endMin}, nil
}

func IsDatePast(dateStr string, loc *time.Location, now time.Time) (bool, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return false, err
	}
	startToday := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)
	return date.Before(startToday), nil
}

func IsSlotPast(dateStr, timeStr string, loc *time.Location, now time.Time) (bool, error) {
	slot, err := ParseDateTime(dateStr, timeStr, loc)
	if err != nil {
		return false, err
	}
	return !slot.After(now.In(loc)), nil
}

// Weekday returns the lower-case english weekday name of a calendar date.
func Weekday(dateStr string, loc *time.Location) (string, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return "", err
	}
	return strings.ToLower(date.Weekday().String()), nil
}

// ParseWeekday accepts "monday".."sunday" in any case.
func ParseWeekday(value string) (time.Weekday, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == normalized {
			return d, nil
		}
	}
	return time.Sunday, ErrInvalidWeekday
}

// DefaultRanges are the opening hours used to seed weekday templates.
func DefaultRanges(day time.Weekday) []TimeRange {
	switch day {
	case time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday:
		return []TimeRange{{Start: "09:00", End: "12:00"}, {Start: "14:00", End: "17:00"}}
	case time.Saturday:
		return []TimeRange{{Start: "09:00", End: "13:00"}}
	default:
		return nil
	}
}

// GenerateIntervals cuts the given ranges into consecutive intervals of duration minutes.
// A trailing remainder shorter than duration is dropped.
func GenerateIntervals(ranges []TimeRange, duration int) ([]Interval, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}

	intervals := make([]Interval, 0)
	for _, tr := range ranges {
		startMin, err := ParseClockToMinutes(tr.Start)
		if err != nil {
			return nil, err
		}
		endMin, err := ParseClockToMinutes(tr.End)
		if err != nil {
			return nil, err
		}

		for cursor := startMin; cursor+duration <= endMin; cursor += duration {
			intervals = append(intervals, Interval{Start: cursor, End: cursor + duration})
		}
	}
	return intervals, nil
}

type Interval struct {
	Start int
	End   int
}

func (i Interval) StartClock() string { return MinutesToClock(i.Start) }
func (i Interval) EndClock() string   { return MinutesToClock(i.End) }

// Overlaps treats both intervals as half-open, so touching boundaries do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// FindOverlap returns the index of the first interval in existing that overlaps candidate.
func FindOverlap(candidate Interval, existing []Interval) (int, bool) {
	for i, e := range existing {
		if Overlaps(candidate, e) {
			return i, true
		}
	}
	return -1, false
}

// HasInternalOverlap reports whether any two intervals of the list overlap each other.
func HasInternalOverlap(intervals []Interval) bool {
	for i := range intervals {
		if _, ok := FindOverlap(intervals[i], intervals[i+1:]); ok {
			return true
		}
	}
	return false
}
