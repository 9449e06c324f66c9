// Package timeclock holds the pure time arithmetic shared by the timesheet
// services: durations of punch sessions, local calendar dates, and the
// Monday-based week grid used for weekly rollups.
package timeclock

import (
	"errors"
	"time"
)

// DateLayout is the calendar-day format used throughout the system.
const DateLayout = "2006-01-02"

// ErrNegativeDuration reports a closed entry whose clock-out precedes its
// clock-in. This indicates corrupted data and must never be clamped away.
var ErrNegativeDuration = errors.New("timeclock: clock-out precedes clock-in")

// Duration returns the elapsed time of a punch session. A nil clockOut means
// the session is still open and the result is nil; substituting "now" is a
// presentation concern left to callers.
func Duration(clockIn time.Time, clockOut *time.Time) (*time.Duration, error) {
	if clockOut == nil {
		return nil, nil
	}
	d := clockOut.Sub(clockIn)
	if d < 0 {
		return nil, ErrNegativeDuration
	}
	return &d, nil
}

// LocalDate renders the calendar date of an instant in the given location.
// A nil location falls back to the system local zone.
func LocalDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into a midnight UTC time. The result
// is only used for calendar arithmetic, never compared against instants.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// WeekStart returns the Monday of the week containing the given date.
// Sundays map to the preceding Monday (Monday == weekday 1, offset
// (weekday+6)%7), so applying WeekStart twice is idempotent.
func WeekStart(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7
	return date.AddDate(0, 0, -offset)
}

// WeekDates enumerates the seven calendar dates starting at weekStart.
func WeekDates(weekStart time.Time) [7]string {
	var dates [7]string
	for i := range dates {
		dates[i] = weekStart.AddDate(0, 0, i).Format(DateLayout)
	}
	return dates
}
