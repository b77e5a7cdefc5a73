package database

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clockbook/clockbook/internal/model"
	"github.com/clockbook/clockbook/internal/timeutil"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// timestampLayout is how start/end values are persisted: local wall-clock
// text, minute precision preserved as zero seconds.
const timestampLayout = "2006-01-02 15:04:05"

// SQLStore persists the calendar to a SQL database. All backend-specific
// SQL comes from the Dialect, so the same implementation serves SQLite and
// PostgreSQL. It implements the Store interface.
type SQLStore struct {
	path       string
	conn       *sql.DB
	dialect    Dialect
	legacyPath string
}

// open connects to an existing database and applies pending migrations.
func open(d Dialect, pathOrConnStr, legacyPath string) (*SQLStore, error) {
	conn, err := sql.Open(d.DriverName(), d.DSN(pathOrConnStr))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify the connection works
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &SQLStore{path: pathOrConnStr, conn: conn, dialect: d, legacyPath: legacyPath}

	if err := s.Migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return s, nil
}

// create connects and builds a fresh schema at the current version.
func create(d Dialect, pathOrConnStr, legacyPath string) (*SQLStore, error) {
	conn, err := sql.Open(d.DriverName(), d.DSN(pathOrConnStr))
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	s := &SQLStore{path: pathOrConnStr, conn: conn, dialect: d, legacyPath: legacyPath}

	if err := s.createSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the file path or connection string of the database.
func (s *SQLStore) Path() string {
	return s.path
}

// Conn returns the underlying *sql.DB connection for advanced query usage.
func (s *SQLStore) Conn() *sql.DB {
	return s.conn
}

// createSchema builds all tables and indexes for a new database and stamps
// the current schema version.
func (s *SQLStore) createSchema() error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.createCurrentTables(tx); err != nil {
		return err
	}
	if err := s.setSchemaVersion(tx, currentSchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}

// createCurrentTables issues the schema-2 DDL. Every statement is
// IF NOT EXISTS, so this is safe to run against a partially built schema.
func (s *SQLStore) createCurrentTables(tx *sql.Tx) error {
	if _, err := tx.Exec(s.dialect.CreateMetaTableSQL()); err != nil {
		return fmt.Errorf("creating meta table: %w", err)
	}
	if _, err := tx.Exec(s.dialect.CreateTagsTableSQL()); err != nil {
		return fmt.Errorf("creating tags table: %w", err)
	}
	if _, err := tx.Exec(s.dialect.CreateIntervalsTableSQL()); err != nil {
		return fmt.Errorf("creating intervals table: %w", err)
	}
	if _, err := tx.Exec(s.dialect.CreateIndexSQL("intervals_day_key_idx", "intervals", "day_key")); err != nil {
		return fmt.Errorf("creating day_key index: %w", err)
	}
	if _, err := tx.Exec(s.dialect.CreateIndexSQL("intervals_tag_id_idx", "intervals", "tag_id")); err != nil {
		return fmt.Errorf("creating tag_id index: %w", err)
	}
	return nil
}

// Load reads the full persisted calendar into day buckets. The one-time
// legacy flat-file import runs first; its source is deleted after a
// successful import, so a second load is a no-op.
func (s *SQLStore) Load() (map[string][]*model.Interval, error) {
	if err := s.importLegacyFile(); err != nil {
		return nil, fmt.Errorf("importing legacy store: %w", err)
	}

	rows, err := s.conn.Query(`SELECT i.identifier, i.start_time, i.end_time, i.day_key,
		COALESCE(t.name, '')
		FROM intervals i LEFT JOIN tags t ON i.tag_id = t.id
		ORDER BY i.id`)
	if err != nil {
		return nil, fmt.Errorf("loading intervals: %w", err)
	}
	defer rows.Close()

	buckets := make(map[string][]*model.Interval)
	for rows.Next() {
		var identifier, startStr, dayKey, label string
		var endStr sql.NullString
		if err := rows.Scan(&identifier, &startStr, &endStr, &dayKey, &label); err != nil {
			return nil, fmt.Errorf("scanning interval row: %w", err)
		}

		iv := &model.Interval{Identifier: identifier, Label: label}
		iv.Start, err = parseTimestamp(startStr)
		if err != nil {
			return nil, fmt.Errorf("interval %s: %w", identifier, err)
		}
		if endStr.Valid && endStr.String != "" {
			end, err := parseTimestamp(endStr.String)
			if err != nil {
				return nil, fmt.Errorf("interval %s: %w", identifier, err)
			}
			iv.End = &end
		}

		buckets[dayKey] = append(buckets[dayKey], iv)
	}
	return buckets, rows.Err()
}

// SaveAll reconciles durable storage against the in-memory buckets in one
// transaction: day keys absent from memory (or holding an empty list) are
// deleted, intervals that vanished from their bucket are deleted, and every
// in-memory interval is upserted with its tag resolved.
func (s *SQLStore) SaveAll(buckets map[string][]*model.Interval) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Delete persisted day keys that no longer exist in memory.
	persisted, err := s.persistedDayKeys(tx)
	if err != nil {
		return err
	}
	for _, key := range persisted {
		if len(buckets[key]) > 0 {
			continue
		}
		if _, err := tx.Exec(
			"DELETE FROM intervals WHERE day_key = "+s.dialect.Placeholder(1), key); err != nil {
			return fmt.Errorf("deleting bucket %s: %w", key, err)
		}
	}

	upsert, err := tx.Prepare(s.dialect.UpsertIntervalSQL())
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer upsert.Close()

	for key, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}

		// Delete intervals removed from this bucket since the last save.
		args := make([]interface{}, 0, len(bucket)+1)
		args = append(args, key)
		for _, iv := range bucket {
			args = append(args, iv.Identifier)
		}
		del := "DELETE FROM intervals WHERE day_key = " + s.dialect.Placeholder(1) +
			" AND identifier NOT IN (" + s.placeholders(2, len(bucket)) + ")"
		if _, err := tx.Exec(del, args...); err != nil {
			return fmt.Errorf("pruning bucket %s: %w", key, err)
		}

		for _, iv := range bucket {
			tagID, err := s.getOrCreateTagIn(tx, iv.Label)
			if err != nil {
				return err
			}
			var end interface{}
			if iv.End != nil {
				end = formatTimestamp(*iv.End)
			}
			if _, err := upsert.Exec(iv.Identifier, formatTimestamp(iv.Start), end, nullableID(tagID), key); err != nil {
				return fmt.Errorf("upserting interval %s: %w", iv.Identifier, err)
			}
		}
	}

	return tx.Commit()
}

// GetOrCreateTag resolves a label to its surrogate tag ID, creating the tag
// record when absent. The empty label maps to the reserved null reference 0
// and is never stored as a tag.
func (s *SQLStore) GetOrCreateTag(label string) (int64, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.getOrCreateTagIn(tx, label)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// Tags returns all persisted tag records sorted by name. Tags are never
// garbage collected, so labels of deleted intervals remain.
func (s *SQLStore) Tags() ([]model.Tag, error) {
	rows, err := s.conn.Query("SELECT id, name FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var tag model.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// DailyTotals returns the summed seconds of closed intervals per day bucket
// in [from, to], ordered by day.
func (s *SQLStore) DailyTotals(from, to time.Time) ([]DayTotal, error) {
	durExpr := s.dialect.DurationSecondsSQL("start_time", "end_time")
	query := "SELECT day_key, COALESCE(SUM(" + durExpr + "), 0) FROM intervals" +
		" WHERE end_time IS NOT NULL" +
		" AND day_key >= " + s.dialect.Placeholder(1) +
		" AND day_key <= " + s.dialect.Placeholder(2) +
		" GROUP BY day_key ORDER BY day_key"

	rows, err := s.conn.Query(query, timeutil.DayKey(from), timeutil.DayKey(to))
	if err != nil {
		return nil, fmt.Errorf("querying daily totals: %w", err)
	}
	defer rows.Close()

	var totals []DayTotal
	for rows.Next() {
		var t DayTotal
		if err := rows.Scan(&t.DayKey, &t.Seconds); err != nil {
			return nil, fmt.Errorf("scanning total row: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// SearchIntervals returns intervals whose tag name matches labelPattern
// (SQL LIKE; empty matches everything) within the day-key range [from, to],
// ordered by day and insertion.
func (s *SQLStore) SearchIntervals(labelPattern string, from, to time.Time) ([]*model.Interval, error) {
	query := `SELECT i.identifier, i.start_time, i.end_time, COALESCE(t.name, '')
		FROM intervals i LEFT JOIN tags t ON i.tag_id = t.id
		WHERE i.day_key >= ` + s.dialect.Placeholder(1) +
		" AND i.day_key <= " + s.dialect.Placeholder(2)
	args := []interface{}{timeutil.DayKey(from), timeutil.DayKey(to)}

	if labelPattern != "" {
		query += " AND t.name LIKE " + s.dialect.Placeholder(3)
		args = append(args, labelPattern)
	}
	query += " ORDER BY i.day_key, i.id"

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching intervals: %w", err)
	}
	defer rows.Close()

	var out []*model.Interval
	for rows.Next() {
		var identifier, startStr, label string
		var endStr sql.NullString
		if err := rows.Scan(&identifier, &startStr, &endStr, &label); err != nil {
			return nil, fmt.Errorf("scanning interval row: %w", err)
		}
		iv := &model.Interval{Identifier: identifier, Label: label}
		iv.Start, err = parseTimestamp(startStr)
		if err != nil {
			return nil, fmt.Errorf("interval %s: %w", identifier, err)
		}
		if endStr.Valid && endStr.String != "" {
			end, err := parseTimestamp(endStr.String)
			if err != nil {
				return nil, fmt.Errorf("interval %s: %w", identifier, err)
			}
			iv.End = &end
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// execQuerier is satisfied by both *sql.Tx and *sql.DB, so tag resolution
// can run inside or outside a transaction.
type execQuerier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

func (s *SQLStore) getOrCreateTagIn(q execQuerier, label string) (int64, error) {
	if label == "" {
		return 0, nil
	}

	var id int64
	err := q.QueryRow(
		"SELECT id FROM tags WHERE name = "+s.dialect.Placeholder(1), label).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("looking up tag %q: %w", label, err)
	}

	if s.dialect.ReturnsInsertID() {
		if err := q.QueryRow(s.dialect.InsertTagSQL(), label).Scan(&id); err != nil {
			return 0, fmt.Errorf("creating tag %q: %w", label, err)
		}
		return id, nil
	}

	res, err := q.Exec(s.dialect.InsertTagSQL(), label)
	if err != nil {
		return 0, fmt.Errorf("creating tag %q: %w", label, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading tag id for %q: %w", label, err)
	}
	return id, nil
}

// persistedDayKeys returns the distinct day keys currently stored, sorted
// for deterministic reconciliation.
func (s *SQLStore) persistedDayKeys(tx *sql.Tx) ([]string, error) {
	rows, err := tx.Query("SELECT DISTINCT day_key FROM intervals")
	if err != nil {
		return nil, fmt.Errorf("querying day keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// placeholders renders n comma-separated dialect placeholders starting at
// the given 1-based index.
func (s *SQLStore) placeholders(start, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = s.dialect.Placeholder(start + i)
	}
	return strings.Join(parts, ", ")
}

// nullableID converts the reserved 0 tag reference to SQL NULL.
func nullableID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

func formatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

// parseTimestamp accepts the canonical layout plus RFC 3339, which legacy
// exports used.
func parseTimestamp(v string) (time.Time, error) {
	if t, err := time.ParseInLocation(timestampLayout, v, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.Local(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", v)
}
