package main

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/clockbook/clockbook/internal/calendar"
	"github.com/clockbook/clockbook/internal/config"
	"github.com/clockbook/clockbook/internal/database"
	"github.com/clockbook/clockbook/internal/model"
	"github.com/clockbook/clockbook/internal/timeutil"
)

// Version is the application version string, overridable at build time.
var Version = "0.1.0"

// App is the main application struct that Wails binds to the frontend.
// All exported methods become callable from JavaScript. The in-memory
// calendar is the source of truth; every successful mutation schedules a
// coalesced background save of the full state.
type App struct {
	ctx   context.Context
	cfg   *config.Config
	store database.Store

	// mu guards cal and the cfg fields: Wails invokes bound methods on
	// separate goroutines.
	mu  sync.Mutex
	cal *calendar.Calendar

	saveCh chan struct{}
	quit   chan struct{}
	done   chan struct{}
}

// NewApp creates a new App instance.
func NewApp() *App {
	return &App{
		saveCh: make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// startup is called when the app starts. The context is saved so we can
// call runtime methods (dialogs, events, etc.). Persistence failures
// degrade gracefully: the app keeps running on the in-memory calendar.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	cfg, err := config.Load()
	if err != nil {
		log.Printf("loading config: %v (using defaults)", err)
		cfg = &config.Config{
			ResumeWindow:  calendar.DefaultResumeWindow,
			SingleRunning: true,
			Driver:        "sqlite",
		}
	}
	a.cfg = cfg

	a.cal = calendar.New()
	a.cal.ResumeWindow = cfg.ResumeWindow
	a.cal.SingleRunning = cfg.SingleRunning

	if cfg.DatabasePath != "" {
		store, err := database.OpenStore(cfg.Driver, cfg.DatabasePath, cfg.LegacyPath)
		if err != nil {
			log.Printf("opening store: %v (running without persistence)", err)
		} else {
			a.store = store
			buckets, err := store.Load()
			if err != nil {
				log.Printf("loading calendar: %v (starting empty)", err)
			} else {
				a.cal.ReplaceAll(buckets)
			}
		}
	}

	go a.persister()
}

// shutdown is called when the app is closing: one final synchronous save,
// then the store is released.
func (a *App) shutdown(ctx context.Context) {
	close(a.quit)
	<-a.done
	if a.store != nil {
		a.saveNow()
		a.store.Close()
	}
}

// -- Persistence --

// requestSave schedules a background save. The channel has capacity one, so
// pending requests coalesce and at most one save is ever in flight.
func (a *App) requestSave() {
	select {
	case a.saveCh <- struct{}{}:
	default:
	}
}

// persister is the single goroutine that mirrors the calendar to durable
// storage after mutations.
func (a *App) persister() {
	defer close(a.done)
	for {
		select {
		case <-a.quit:
			return
		case <-a.saveCh:
			a.saveNow()
		}
	}
}

// saveNow snapshots the calendar and reconciles durable storage against it.
// Failures are logged and surfaced to the frontend but never roll back the
// in-memory state; storage stays stale until the next successful save.
func (a *App) saveNow() {
	if a.store == nil {
		return
	}
	a.mu.Lock()
	snapshot := a.cal.Snapshot()
	a.mu.Unlock()

	if err := a.store.SaveAll(snapshot); err != nil {
		log.Printf("saving calendar: %v", err)
		if a.ctx != nil {
			runtime.EventsEmit(a.ctx, "store:save-error", err.Error())
		}
	}
}

// -- Calendar Operations --

// GetDay returns the intervals bucketed under the given "2006-01-02" day
// key, in insertion order.
func (a *App) GetDay(date string) ([]*model.Interval, error) {
	day, err := timeutil.ParseDayKey(date)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cal.Intervals(day), nil
}

// GetDates returns the day keys of all populated buckets, sorted ascending.
func (a *App) GetDates() []string {
	a.mu.Lock()
	dates := a.cal.Dates()
	a.mu.Unlock()

	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		keys = append(keys, timeutil.DayKey(d))
	}
	sort.Strings(keys)
	return keys
}

// AddInterval inserts a new interval and returns it with its assigned
// identifier and normalized timestamps. A zero start defaults to now; with
// the single-running policy on, any interval still running on that day is
// closed first.
func (a *App) AddInterval(iv model.Interval) (*model.Interval, error) {
	a.mu.Lock()
	err := a.cal.Add(&iv)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}
	a.requestSave()
	return &iv, nil
}

// UpdateInterval replaces the stored interval matching the identifier,
// moving it to another day bucket when the start was edited across days.
func (a *App) UpdateInterval(iv model.Interval) (string, error) {
	a.mu.Lock()
	id, err := a.cal.Update(&iv)
	a.mu.Unlock()
	if err != nil {
		return "", err
	}
	a.requestSave()
	return id, nil
}

// DeleteInterval removes the stored interval matching the identifier.
func (a *App) DeleteInterval(iv model.Interval) (string, error) {
	a.mu.Lock()
	id, err := a.cal.Delete(&iv)
	a.mu.Unlock()
	if err != nil {
		return "", err
	}
	a.requestSave()
	return id, nil
}

// StopInterval closes a running interval with end = now.
func (a *App) StopInterval(iv model.Interval) (string, error) {
	a.mu.Lock()
	id, err := a.cal.Stop(&iv)
	a.mu.Unlock()
	if err != nil {
		return "", err
	}
	a.requestSave()
	return id, nil
}

// ResumeInterval reopens a closed interval. Within the resume window the
// same identifier transitions back to running; after a longer gap a fresh
// interval starts with the same label, and its identifier is returned.
func (a *App) ResumeInterval(iv model.Interval) (string, error) {
	a.mu.Lock()
	id, err := a.cal.Resume(&iv)
	a.mu.Unlock()
	if err != nil {
		return "", err
	}
	a.requestSave()
	return id, nil
}

// GetDescriptions returns the deduplicated, sorted label set from the
// persisted tag registry (labels of deleted intervals included, since tags
// are never garbage collected). Without a store it falls back to the labels
// of live intervals. Empty set yields the single sentinel element, which is
// not a real label.
func (a *App) GetDescriptions() ([]string, error) {
	if a.store == nil {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.cal.Descriptions(), nil
	}
	tags, err := a.store.Tags()
	if err != nil {
		return nil, fmt.Errorf("reading tag registry: %w", err)
	}
	if len(tags) == 0 {
		return []string{calendar.NoDescriptions}, nil
	}
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names, nil
}

// -- Reporting --

// DayTotalInfo is one day's summed closed-interval time, with a formatted
// duration for display.
type DayTotalInfo struct {
	DayKey    string `json:"dayKey"`
	Seconds   int64  `json:"seconds"`
	Formatted string `json:"formatted"`
}

// GetDailyTotals returns the summed closed-interval seconds per day in the
// inclusive "2006-01-02" range.
func (a *App) GetDailyTotals(from, to string) ([]DayTotalInfo, error) {
	if a.store == nil {
		return nil, fmt.Errorf("no store open")
	}
	fromDay, err := timeutil.ParseDayKey(from)
	if err != nil {
		return nil, err
	}
	toDay, err := timeutil.ParseDayKey(to)
	if err != nil {
		return nil, err
	}

	totals, err := a.store.DailyTotals(fromDay, toDay)
	if err != nil {
		return nil, err
	}
	out := make([]DayTotalInfo, 0, len(totals))
	for _, t := range totals {
		out = append(out, DayTotalInfo{
			DayKey:    t.DayKey,
			Seconds:   t.Seconds,
			Formatted: timeutil.FormatDuration(t.Seconds),
		})
	}
	return out, nil
}

// SearchIntervals returns persisted intervals whose label matches the SQL
// LIKE pattern (empty matches everything) within the inclusive day range.
func (a *App) SearchIntervals(labelPattern, from, to string) ([]*model.Interval, error) {
	if a.store == nil {
		return nil, fmt.Errorf("no store open")
	}
	fromDay, err := timeutil.ParseDayKey(from)
	if err != nil {
		return nil, err
	}
	toDay, err := timeutil.ParseDayKey(to)
	if err != nil {
		return nil, err
	}
	return a.store.SearchIntervals(labelPattern, fromDay, toDay)
}

// -- Settings --

// Settings is the user-adjustable policy surface.
type Settings struct {
	ResumeWindowSeconds int    `json:"resumeWindowSeconds"`
	SingleRunning       bool   `json:"singleRunning"`
	Driver              string `json:"driver"`
	DatabasePath        string `json:"databasePath"`
}

// GetSettings returns the current settings.
func (a *App) GetSettings() Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Settings{
		ResumeWindowSeconds: int(a.cfg.ResumeWindow / time.Second),
		SingleRunning:       a.cfg.SingleRunning,
		Driver:              a.cfg.Driver,
		DatabasePath:        a.cfg.DatabasePath,
	}
}

// UpdateSettings applies the policy knobs to the live calendar and writes
// them back to the config file. Driver and database path changes take
// effect on next launch. The lock covers the config write-back too, so
// concurrent callers cannot interleave field updates or config saves.
func (a *App) UpdateSettings(s Settings) error {
	if s.ResumeWindowSeconds < 0 {
		return fmt.Errorf("resume window must not be negative")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.cal.ResumeWindow = time.Duration(s.ResumeWindowSeconds) * time.Second
	a.cal.SingleRunning = s.SingleRunning

	a.cfg.ResumeWindow = time.Duration(s.ResumeWindowSeconds) * time.Second
	a.cfg.SingleRunning = s.SingleRunning
	a.cfg.Driver = s.Driver
	a.cfg.DatabasePath = s.DatabasePath

	if err := a.cfg.Save(); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// -- Internal Helpers --

// GetVersion returns the application version string.
func (a *App) GetVersion() string {
	return Version
}
