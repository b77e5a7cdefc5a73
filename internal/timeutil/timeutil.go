// Package timeutil provides the minute truncation and day-key derivation
// that every stored timestamp goes through. Keys are local wall-clock dates;
// timezone handling beyond that is out of scope.
package timeutil

import (
	"fmt"
	"time"
)

// DayKeyLayout is the canonical day-bucket key format.
const DayKeyLayout = "2006-01-02"

// TruncateToMinute zeroes the seconds and sub-second fields of t, keeping
// the location. All stored start/end values pass through this so that
// duration math and equality are stable to the minute.
func TruncateToMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

// DayKey returns the canonical calendar-day key for t, e.g. "2026-03-09".
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// ParseDayKey parses a day key back into local midnight of that day.
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DayKeyLayout, key, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing day key %q: %w", key, err)
	}
	return t, nil
}

// StartOfDay returns 00:00:00 of the same day in the same location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// FormatDuration formats seconds as a human-readable string like
// "1h 40m" or "45m" or "30s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}
