package database

import (
	"time"

	"github.com/clockbook/clockbook/internal/model"
)

// DayTotal is the summed closed-interval time for one day bucket.
type DayTotal struct {
	DayKey  string `json:"dayKey"`
	Seconds int64  `json:"seconds"`
}

// Store defines the durable storage interface for the calendar. Every
// operation the application needs is captured here so that app.go depends
// on the interface, not on a concrete database type.
type Store interface {
	// Load reads the full persisted state into day buckets, running the
	// one-time legacy import and any pending schema migrations first.
	Load() (map[string][]*model.Interval, error)

	// SaveAll reconciles durable storage against the in-memory buckets in a
	// single transaction: buckets absent from memory are deleted, vanished
	// intervals are deleted, and every in-memory interval is upserted.
	SaveAll(buckets map[string][]*model.Interval) error

	// Tag registry
	GetOrCreateTag(label string) (int64, error)
	Tags() ([]model.Tag, error)

	// Reporting
	DailyTotals(from, to time.Time) ([]DayTotal, error)
	SearchIntervals(labelPattern string, from, to time.Time) ([]*model.Interval, error)

	// Schema
	Migrate() error

	// Lifecycle
	Close() error
	Path() string
}
