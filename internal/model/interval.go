package model

import (
	"time"

	"github.com/clockbook/clockbook/internal/timeutil"
)

// Interval represents a single tracked span of time. A nil End means the
// interval is currently running.
type Interval struct {
	Identifier string     `json:"identifier"`
	Start      time.Time  `json:"start"`
	End        *time.Time `json:"end,omitempty"`
	Label      string     `json:"label"`
}

// IsRunning reports whether the interval has no end time yet.
func (iv *Interval) IsRunning() bool {
	return iv.End == nil
}

// Duration returns the tracked duration. A running interval is measured
// up to now.
func (iv *Interval) Duration() time.Duration {
	if iv.End == nil {
		return time.Since(iv.Start)
	}
	return iv.End.Sub(iv.Start)
}

// Normalize truncates Start and End to minute precision.
func (iv *Interval) Normalize() {
	iv.Start = timeutil.TruncateToMinute(iv.Start)
	if iv.End != nil {
		e := timeutil.TruncateToMinute(*iv.End)
		iv.End = &e
	}
}

// Clone returns an independent copy of the interval.
func (iv *Interval) Clone() *Interval {
	c := *iv
	if iv.End != nil {
		e := *iv.End
		c.End = &e
	}
	return &c
}

// Tag is a deduplicated label record in the normalized storage schema.
// Intervals reference tags by surrogate ID; the empty label is never
// stored as a tag.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
