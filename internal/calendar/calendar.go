// Package calendar implements the in-memory day-bucketed interval store:
// a mapping from canonical day key to the ordered intervals started on that
// day, together with the stop/resume state machine and the label registry.
// The calendar is the single source of truth while the process runs; the
// database package only loads it at startup and mirrors it after mutations.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clockbook/clockbook/internal/model"
	"github.com/clockbook/clockbook/internal/timeutil"
)

// Store-mutation error kinds. They are returned, never panicked, and the
// caller decides whether to surface them.
var (
	// ErrInvalidInput marks a mutation whose interval is missing required data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a lookup that matched no stored interval.
	ErrNotFound = errors.New("interval not found")
	// ErrInvalidState marks a stop of an already-closed interval or a resume
	// of a still-running one.
	ErrInvalidState = errors.New("invalid state")
)

// DefaultResumeWindow is how soon after stopping a resume reopens the same
// interval instead of starting a fresh one.
const DefaultResumeWindow = 60 * time.Second

// NoDescriptions is the sentinel element returned by Descriptions when no
// labels exist. Callers must special-case it; it is not a real label.
const NoDescriptions = "No descriptions available"

// Calendar groups intervals by the calendar day of their start time.
// Buckets are created lazily and removed when their last interval is
// deleted. Insertion order within a bucket is preserved.
//
// Calendar is not safe for concurrent use; the owner serializes access.
type Calendar struct {
	// ResumeWindow controls the fast-resume threshold. Zero means
	// DefaultResumeWindow was overridden to "always start fresh".
	ResumeWindow time.Duration

	// SingleRunning, when set, closes any running interval in a day bucket
	// before a new interval is added to it.
	SingleRunning bool

	buckets map[string][]*model.Interval
	now     func() time.Time
}

// New returns an empty calendar with the default policy: 60 second resume
// window, single running interval per day.
func New() *Calendar {
	return &Calendar{
		ResumeWindow:  DefaultResumeWindow,
		SingleRunning: true,
		buckets:       make(map[string][]*model.Interval),
		now:           time.Now,
	}
}

// Intervals returns copies of the intervals bucketed under date's day,
// in insertion order. The result is empty when the day has no bucket.
func (c *Calendar) Intervals(date time.Time) []*model.Interval {
	bucket := c.buckets[timeutil.DayKey(date)]
	out := make([]*model.Interval, 0, len(bucket))
	for _, iv := range bucket {
		out = append(out, iv.Clone())
	}
	return out
}

// Dates returns one local-midnight time per populated bucket. The order is
// unspecified; callers sort as needed.
func (c *Calendar) Dates() []time.Time {
	out := make([]time.Time, 0, len(c.buckets))
	for key := range c.buckets {
		day, err := timeutil.ParseDayKey(key)
		if err != nil {
			continue // keys are always DayKey-generated
		}
		out = append(out, day)
	}
	return out
}

// Add inserts a new interval. A missing identifier is assigned, a zero
// start defaults to the current time, and both timestamps are truncated to
// minute precision; the argument is updated in place so the caller sees the
// assigned values. When the single-running policy is on, any interval still
// running in the target day bucket is closed first with end = now.
func (c *Calendar) Add(iv *model.Interval) error {
	if iv == nil {
		return fmt.Errorf("add: %w: nil interval", ErrInvalidInput)
	}
	if iv.Identifier == "" {
		iv.Identifier = uuid.NewString()
	}
	if iv.Start.IsZero() {
		iv.Start = c.now()
	}
	iv.Normalize()

	key := timeutil.DayKey(iv.Start)
	if c.SingleRunning {
		end := timeutil.TruncateToMinute(c.now())
		for _, existing := range c.buckets[key] {
			if existing.IsRunning() {
				e := end
				existing.End = &e
			}
		}
	}

	c.buckets[key] = append(c.buckets[key], iv.Clone())
	return nil
}

// Update replaces the stored interval matching iv.Identifier with iv,
// normalized. When the start was edited onto a different day the record
// moves to the new day's bucket (the bucket key always tracks the
// interval's own start). Returns the identifier on success.
func (c *Calendar) Update(iv *model.Interval) (string, error) {
	if iv == nil || iv.Start.IsZero() {
		return "", fmt.Errorf("update: missing start: %w", ErrInvalidInput)
	}

	next := iv.Clone()
	next.Normalize()
	key := timeutil.DayKey(next.Start)

	foundKey, idx := c.find(next.Identifier, key)
	if idx < 0 {
		return "", fmt.Errorf("update %q: %w", next.Identifier, ErrNotFound)
	}

	if foundKey == key {
		c.buckets[key][idx] = next
		return next.Identifier, nil
	}

	// The start moved to another day: remove from the old bucket and
	// append under the new key.
	c.removeAt(foundKey, idx)
	c.buckets[key] = append(c.buckets[key], next)
	return next.Identifier, nil
}

// Delete removes the stored interval matching iv.Identifier. The bucket key
// is removed entirely when its list becomes empty. Returns the identifier
// on success.
func (c *Calendar) Delete(iv *model.Interval) (string, error) {
	if iv == nil || iv.Start.IsZero() {
		return "", fmt.Errorf("delete: missing start: %w", ErrInvalidInput)
	}

	key, idx := c.find(iv.Identifier, timeutil.DayKey(timeutil.TruncateToMinute(iv.Start)))
	if idx < 0 {
		return "", fmt.Errorf("delete %q: %w", iv.Identifier, ErrNotFound)
	}
	c.removeAt(key, idx)
	return iv.Identifier, nil
}

// Stop closes a running interval, setting its end to the current time at
// minute precision. Stopping an already-closed interval is an
// ErrInvalidState.
func (c *Calendar) Stop(iv *model.Interval) (string, error) {
	rec, err := c.lookup(iv)
	if err != nil {
		return "", err
	}
	if !rec.IsRunning() {
		return "", fmt.Errorf("stop %q: already closed: %w", rec.Identifier, ErrInvalidState)
	}
	end := timeutil.TruncateToMinute(c.now())
	rec.End = &end
	return rec.Identifier, nil
}

// Resume reopens a closed interval. Within ResumeWindow of its end the same
// record transitions back to running, keeping its identifier and label.
// After a longer gap a fresh interval starts instead: new identifier,
// start = now, same label. Resuming a still-running interval is an
// ErrInvalidState.
func (c *Calendar) Resume(iv *model.Interval) (string, error) {
	rec, err := c.lookup(iv)
	if err != nil {
		return "", err
	}
	if rec.IsRunning() {
		return "", fmt.Errorf("resume %q: nothing to resume: %w", rec.Identifier, ErrInvalidState)
	}

	if c.now().Sub(*rec.End) <= c.ResumeWindow {
		rec.End = nil
		return rec.Identifier, nil
	}

	fresh := &model.Interval{Start: c.now(), Label: rec.Label}
	if err := c.Add(fresh); err != nil {
		return "", err
	}
	return fresh.Identifier, nil
}

// Descriptions returns the deduplicated, sorted set of non-empty labels
// across all stored intervals. When no labels exist it returns the single
// NoDescriptions sentinel element.
func (c *Calendar) Descriptions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, bucket := range c.buckets {
		for _, iv := range bucket {
			if iv.Label != "" && !seen[iv.Label] {
				seen[iv.Label] = true
				out = append(out, iv.Label)
			}
		}
	}
	if len(out) == 0 {
		return []string{NoDescriptions}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a deep copy of all buckets, suitable for handing to the
// persistence layer while the calendar keeps mutating.
func (c *Calendar) Snapshot() map[string][]*model.Interval {
	out := make(map[string][]*model.Interval, len(c.buckets))
	for key, bucket := range c.buckets {
		copied := make([]*model.Interval, 0, len(bucket))
		for _, iv := range bucket {
			copied = append(copied, iv.Clone())
		}
		out[key] = copied
	}
	return out
}

// ReplaceAll installs loaded state, discarding the current contents. Empty
// buckets are dropped so Dates never reports a day with no intervals.
func (c *Calendar) ReplaceAll(buckets map[string][]*model.Interval) {
	c.buckets = make(map[string][]*model.Interval, len(buckets))
	for key, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		copied := make([]*model.Interval, 0, len(bucket))
		for _, iv := range bucket {
			copied = append(copied, iv.Clone())
		}
		c.buckets[key] = copied
	}
}

// lookup validates iv and returns the stored record it refers to.
func (c *Calendar) lookup(iv *model.Interval) (*model.Interval, error) {
	if iv == nil || iv.Start.IsZero() {
		return nil, fmt.Errorf("missing start: %w", ErrInvalidInput)
	}
	key, idx := c.find(iv.Identifier, timeutil.DayKey(timeutil.TruncateToMinute(iv.Start)))
	if idx < 0 {
		return nil, fmt.Errorf("lookup %q: %w", iv.Identifier, ErrNotFound)
	}
	return c.buckets[key][idx], nil
}

// find locates an interval by identifier, checking the hinted bucket first
// and then every other bucket. Returns (-1 index) when absent.
func (c *Calendar) find(identifier, hintKey string) (string, int) {
	if identifier == "" {
		return "", -1
	}
	for i, iv := range c.buckets[hintKey] {
		if iv.Identifier == identifier {
			return hintKey, i
		}
	}
	for key, bucket := range c.buckets {
		if key == hintKey {
			continue
		}
		for i, iv := range bucket {
			if iv.Identifier == identifier {
				return key, i
			}
		}
	}
	return "", -1
}

// removeAt deletes the interval at idx from the keyed bucket, dropping the
// bucket entirely when it becomes empty.
func (c *Calendar) removeAt(key string, idx int) {
	bucket := c.buckets[key]
	bucket = append(bucket[:idx], bucket[idx+1:]...)
	if len(bucket) == 0 {
		delete(c.buckets, key)
		return
	}
	c.buckets[key] = bucket
}
