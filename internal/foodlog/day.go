package foodlog

import (
	"fmt"
	"time"
)

// DayLayout is the format of a local calendar day.
const DayLayout = "2006-01-02"

// WindowDays is the length of the rolling rollup window.
const WindowDays = 7

// Day formats the calendar day of t in t's location.
func Day(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay validates a YYYY-MM-DD day string. The result is midnight UTC of
// that date, which keeps day arithmetic free of DST shifts.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// window returns the days asOf, asOf-1, ... asOf-(n-1).
func window(asOf string, n int) ([]string, error) {
	t, err := ParseDay(asOf)
	if err != nil {
		return nil, err
	}
	days := make([]string, n)
	for i := range n {
		days[i] = Day(t.AddDate(0, 0, -i))
	}
	return days, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// civilDay numbers t's calendar date, ignoring its clock and zone.
func civilDay(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
}
