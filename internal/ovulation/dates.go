package ovulation

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the calendar-date format used for readings.
const DateLayout = "2006-01-02"

// Two dates count as adjacent days when their distance falls in this band.
// Local midnights across a DST switch are 23h or 25h apart.
const (
	minDayStep = 0.9
	maxDayStep = 1.1
)

// ParseDate reads a YYYY-MM-DD string as local midnight in loc. It never goes
// through UTC, so the calendar day is preserved whatever the offset.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders the calendar day of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateOnly truncates t to midnight of its calendar day in loc.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// AddDays moves t by n calendar days, keeping the wall clock.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

func dayDistance(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}

// DaysBetween returns the whole number of calendar days from -> to.
func DaysBetween(from, to time.Time) int {
	return int(math.Round(dayDistance(from, to)))
}

// consecutiveDays reports whether to is the calendar day right after from.
func consecutiveDays(from, to time.Time) bool {
	d := dayDistance(from, to)
	return d >= minDayStep && d <= maxDayStep
}
