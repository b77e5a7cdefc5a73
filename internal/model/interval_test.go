package model

import (
	"testing"
	"time"
)

func TestIsRunningAndDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)
	iv := &Interval{Identifier: "a", Start: start, Label: "work"}
	if !iv.IsRunning() {
		t.Error("interval with nil End should be running")
	}

	end := start.Add(30 * time.Minute)
	iv.End = &end
	if iv.IsRunning() {
		t.Error("interval with End set should not be running")
	}
	if got := iv.Duration(); got != 30*time.Minute {
		t.Errorf("Duration = %v, want 30m", got)
	}
}

func TestNormalize(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 45, 500, time.Local)
	end := time.Date(2024, 1, 1, 9, 30, 15, 900, time.Local)
	iv := &Interval{Start: start, End: &end}
	iv.Normalize()

	if iv.Start.Second() != 0 || iv.Start.Nanosecond() != 0 {
		t.Errorf("Start not truncated: %v", iv.Start)
	}
	if iv.End.Second() != 0 || iv.End.Nanosecond() != 0 {
		t.Errorf("End not truncated: %v", iv.End)
	}
	if got := iv.Duration(); got != 30*time.Minute {
		t.Errorf("Duration after Normalize = %v, want 30m", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	end := time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)
	orig := &Interval{Identifier: "a", Start: end.Add(-time.Hour), End: &end, Label: "work"}

	c := orig.Clone()
	c.Label = "play"
	*c.End = end.Add(time.Hour)

	if orig.Label != "work" {
		t.Error("clone shares Label with original")
	}
	if !orig.End.Equal(end) {
		t.Error("clone shares End storage with original")
	}
}
