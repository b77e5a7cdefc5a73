package timeutil

import (
	"testing"
	"time"
)

func TestTruncateToMinute(t *testing.T) {
	in := time.Date(2024, 1, 1, 9, 30, 45, 123456789, time.Local)
	got := TruncateToMinute(in)
	want := time.Date(2024, 1, 1, 9, 30, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("TruncateToMinute(%v) = %v, want %v", in, got, want)
	}
}

func TestDayKeySameDay(t *testing.T) {
	morning := time.Date(2024, 1, 1, 0, 0, 1, 0, time.Local)
	night := time.Date(2024, 1, 1, 23, 59, 59, 0, time.Local)
	if DayKey(morning) != DayKey(night) {
		t.Errorf("same-day timestamps map to different keys: %q vs %q",
			DayKey(morning), DayKey(night))
	}
	nextDay := time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)
	if DayKey(morning) == DayKey(nextDay) {
		t.Errorf("different days map to the same key %q", DayKey(morning))
	}
}

func TestParseDayKeyRoundTrip(t *testing.T) {
	in := time.Date(2024, 3, 9, 17, 45, 0, 0, time.Local)
	day, err := ParseDayKey(DayKey(in))
	if err != nil {
		t.Fatalf("ParseDayKey failed: %v", err)
	}
	if !day.Equal(StartOfDay(in)) {
		t.Errorf("round trip = %v, want %v", day, StartOfDay(in))
	}

	if _, err := ParseDayKey("not-a-day"); err == nil {
		t.Error("expected error for malformed day key")
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)
	b := time.Date(2024, 1, 1, 21, 30, 0, 0, time.Local)
	c := time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)
	if !SameDay(a, b) {
		t.Error("SameDay(a, b) = false for same-day times")
	}
	if SameDay(a, c) {
		t.Error("SameDay(a, c) = true across midnight")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{30, "30s"},
		{60, "1m"},
		{2700, "45m"},
		{3600, "1h 0m"},
		{6000, "1h 40m"},
		{86400, "24h 0m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
