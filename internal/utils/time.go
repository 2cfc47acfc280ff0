package utils

import (
	"fmt"
	"time"

	"github.com/3grands/habitflow/internal/constants"
)

// Clock returns the current wall-clock time. Every "today" in the application is derived
// from a Clock so day rollover can be simulated in tests.
type Clock func() time.Time

// SystemClock returns a Clock reading the system time in loc.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// Now returns the current time, falling back to the system clock for a nil Clock.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// Today returns the current calendar date (YYYY-MM-DD) in the clock's location.
func (c Clock) Today() string {
	return c.Now().Format(constants.DateFormat)
}

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return loc, nil
}

// DateOf formats t as a calendar date in its own location.
func DateOf(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// DateIn formats t as a calendar date in loc.
func DateIn(t time.Time, loc *time.Location) string {
	if loc == nil {
		return DateOf(t)
	}
	return t.In(loc).Format(constants.DateFormat)
}

// AddDays shifts a YYYY-MM-DD date by n calendar days. Arithmetic happens on a UTC midnight
// so DST transitions never skip or repeat a day.
func AddDays(date string, n int) (string, error) {
	d, err := time.Parse(constants.DateFormat, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return d.AddDate(0, 0, n).Format(constants.DateFormat), nil
}

// Yesterday returns the calendar day before date.
func Yesterday(date string) (string, error) {
	return AddDays(date, -1)
}

// DateRange returns the n calendar days ending at end (inclusive), oldest first.
func DateRange(end string, n int) ([]string, error) {
	if n < 1 {
		return nil, nil
	}
	start, err := AddDays(end, -(n - 1))
	if err != nil {
		return nil, err
	}
	days := make([]string, 0, n)
	for i := 0; i < n; i++ {
		day, err := AddDays(start, i)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

// ValidateDateFormat checks if the string is a YYYY-MM-DD date.
func ValidateDateFormat(date string) bool {
	_, err := time.Parse(constants.DateFormat, date)
	return err == nil
}

// ValidateTimeFormat checks if the string matches the standard time format.
func ValidateTimeFormat(timeStr string) bool {
	_, err := time.Parse(constants.TimeFormat, timeStr)
	return err == nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// EpochMillis converts t to milliseconds since the Unix epoch.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
