package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clockbook/clockbook/internal/model"
	"github.com/clockbook/clockbook/internal/timeutil"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

func createTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := CreateStore("sqlite", tempDBPath(t), "")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.(*SQLStore)
}

// at returns a minute-precision local timestamp on 2024-01-01.
func at(hour, min int) time.Time {
	return time.Date(2024, 1, 1, hour, min, 0, 0, time.Local)
}

func closedInterval(id string, start, end time.Time, label string) *model.Interval {
	return &model.Interval{Identifier: id, Start: start, End: &end, Label: label}
}

func sampleBuckets() map[string][]*model.Interval {
	day1 := at(9, 0)
	day2 := day1.AddDate(0, 0, 1)
	return map[string][]*model.Interval{
		timeutil.DayKey(day1): {
			closedInterval("a1", day1, day1.Add(30*time.Minute), "work"),
			{Identifier: "a2", Start: day1.Add(time.Hour), Label: "email"},
		},
		timeutil.DayKey(day2): {
			closedInterval("b1", day2, day2.Add(2*time.Hour), "work"),
		},
	}
}

func TestCreateAndOpen(t *testing.T) {
	path := tempDBPath(t)

	s, err := CreateStore("sqlite", path, "")
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}

	s2, err := OpenStore("sqlite", path, "")
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer s2.Close()

	var version string
	err = s2.(*SQLStore).Conn().QueryRow(
		"SELECT value FROM meta WHERE key = ?", schemaVersionKey).Scan(&version)
	if err != nil {
		t.Fatalf("reading schema version: %v", err)
	}
	if version != "2" {
		t.Errorf("schema version = %q, want %q", version, "2")
	}
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := OpenStore("oracle", "x", ""); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestSaveAllLoadRoundTrip(t *testing.T) {
	s := createTestStore(t)

	buckets := sampleBuckets()
	if err := s.SaveAll(buckets); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != len(buckets) {
		t.Fatalf("loaded %d buckets, want %d", len(loaded), len(buckets))
	}

	for key, want := range buckets {
		got := loaded[key]
		if len(got) != len(want) {
			t.Fatalf("bucket %s: loaded %d intervals, want %d", key, len(got), len(want))
		}
		for i := range want {
			w, g := want[i], got[i]
			if g.Identifier != w.Identifier || g.Label != w.Label {
				t.Errorf("bucket %s[%d] = %+v, want %+v", key, i, g, w)
			}
			if !g.Start.Equal(w.Start) {
				t.Errorf("bucket %s[%d] Start = %v, want %v", key, i, g.Start, w.Start)
			}
			switch {
			case w.End == nil && g.End != nil:
				t.Errorf("bucket %s[%d] loaded with an end, want running", key, i)
			case w.End != nil && (g.End == nil || !g.End.Equal(*w.End)):
				t.Errorf("bucket %s[%d] End = %v, want %v", key, i, g.End, w.End)
			}
		}
	}
}

func TestSaveAllReconcilesDeletions(t *testing.T) {
	s := createTestStore(t)

	buckets := sampleBuckets()
	if err := s.SaveAll(buckets); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	// Drop one whole day and one interval from the surviving day.
	day1 := timeutil.DayKey(at(9, 0))
	day2 := timeutil.DayKey(at(9, 0).AddDate(0, 0, 1))
	buckets[day1] = buckets[day1][:1]
	delete(buckets, day2)

	if err := s.SaveAll(buckets); err != nil {
		t.Fatalf("second SaveAll failed: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d buckets, want 1", len(loaded))
	}
	if got := loaded[day1]; len(got) != 1 || got[0].Identifier != "a1" {
		t.Errorf("bucket %s = %+v, want only a1", day1, got)
	}
}

func TestGetOrCreateTag(t *testing.T) {
	s := createTestStore(t)

	id1, err := s.GetOrCreateTag("work")
	if err != nil {
		t.Fatalf("GetOrCreateTag failed: %v", err)
	}
	if id1 == 0 {
		t.Fatal("tag id 0 is reserved for the empty label")
	}

	id2, err := s.GetOrCreateTag("work")
	if err != nil {
		t.Fatalf("second GetOrCreateTag failed: %v", err)
	}
	if id2 != id1 {
		t.Errorf("same label resolved to different ids: %d vs %d", id1, id2)
	}

	empty, err := s.GetOrCreateTag("")
	if err != nil {
		t.Fatalf("GetOrCreateTag(\"\") failed: %v", err)
	}
	if empty != 0 {
		t.Errorf("empty label resolved to %d, want the reserved 0", empty)
	}

	tags, err := s.Tags()
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "work" {
		t.Errorf("Tags = %v, want only work (no empty-string tag)", tags)
	}
	if tags[0].ID != id1 {
		t.Errorf("tag record id = %d, want %d from GetOrCreateTag", tags[0].ID, id1)
	}
}

func TestTagsSurviveIntervalDeletion(t *testing.T) {
	s := createTestStore(t)

	day := at(9, 0)
	buckets := map[string][]*model.Interval{
		timeutil.DayKey(day): {closedInterval("a1", day, day.Add(time.Hour), "ephemeral")},
	}
	if err := s.SaveAll(buckets); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	if err := s.SaveAll(map[string][]*model.Interval{}); err != nil {
		t.Fatalf("empty SaveAll failed: %v", err)
	}

	tags, err := s.Tags()
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "ephemeral" {
		t.Errorf("Tags = %v, want only ephemeral (tags are not garbage collected)", tags)
	}
}

func TestDailyTotals(t *testing.T) {
	s := createTestStore(t)

	if err := s.SaveAll(sampleBuckets()); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	totals, err := s.DailyTotals(at(0, 0), at(0, 0).AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("DailyTotals failed: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("got %d totals, want 2", len(totals))
	}

	// Day one: a 30-minute closed interval; the running one is excluded.
	if totals[0].DayKey != "2024-01-01" || totals[0].Seconds != 1800 {
		t.Errorf("totals[0] = %+v, want 2024-01-01 / 1800s", totals[0])
	}
	// Day two: a two-hour closed interval.
	if totals[1].DayKey != "2024-01-02" || totals[1].Seconds != 7200 {
		t.Errorf("totals[1] = %+v, want 2024-01-02 / 7200s", totals[1])
	}
}

func TestSearchIntervals(t *testing.T) {
	s := createTestStore(t)

	if err := s.SaveAll(sampleBuckets()); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	from, to := at(0, 0), at(0, 0).AddDate(0, 0, 1)

	work, err := s.SearchIntervals("work", from, to)
	if err != nil {
		t.Fatalf("SearchIntervals failed: %v", err)
	}
	if len(work) != 2 {
		t.Fatalf("label search returned %d intervals, want 2", len(work))
	}
	for _, iv := range work {
		if iv.Label != "work" {
			t.Errorf("search hit %+v with label %q, want %q", iv, iv.Label, "work")
		}
	}

	all, err := s.SearchIntervals("", from, to)
	if err != nil {
		t.Fatalf("empty-pattern search failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("empty pattern returned %d intervals, want 3", len(all))
	}

	narrow, err := s.SearchIntervals("%mail%", from, from)
	if err != nil {
		t.Fatalf("pattern search failed: %v", err)
	}
	if len(narrow) != 1 || narrow[0].Identifier != "a2" {
		t.Errorf("pattern search = %+v, want only a2", narrow)
	}
}
