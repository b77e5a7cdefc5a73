package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/clockbook/clockbook/internal/timeutil"
)

// currentSchemaVersion is stamped into the meta table. History:
//
//	1: one row per day in day_buckets, intervals embedded as a JSON array
//	2: one row per interval, tags normalized into their own table
const currentSchemaVersion = 2

const schemaVersionKey = "schema_version"

// A migration upgrades the schema from exactly version From to To. Steps
// must be idempotent: applying one to a database that already contains the
// target data is a no-op for that data.
type migration struct {
	From, To int
	Name     string
	Apply    func(s *SQLStore, tx *sql.Tx) error
}

var migrations = []migration{
	{From: 1, To: 2, Name: "normalize tags", Apply: (*SQLStore).migrateDayBuckets},
}

// Migrate brings the schema up to currentSchemaVersion: an empty database
// gets the current schema directly, otherwise the ordered migration steps
// run one at a time, each in its own transaction, stamping the new version
// as they commit.
func (s *SQLStore) Migrate() error {
	version, err := s.schemaVersion()
	if err != nil {
		return err
	}

	if version == 0 {
		return s.createSchema()
	}

	for _, m := range migrations {
		if m.From != version {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %q: %w", m.Name, err)
		}
		if err := m.Apply(s, tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %q: %w", m.Name, err)
		}
		if err := s.setSchemaVersion(tx, m.To); err != nil {
			tx.Rollback()
			return fmt.Errorf("stamping version %d: %w", m.To, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %q: %w", m.Name, err)
		}
		version = m.To
	}

	if version != currentSchemaVersion {
		return fmt.Errorf("no migration path from schema version %d", version)
	}
	return nil
}

// schemaVersion reads the stored version, inferring it for databases that
// predate the meta table: a day_buckets table means version 1, an intervals
// table means version 2, nothing at all means an empty database (0).
func (s *SQLStore) schemaVersion() (int, error) {
	hasMeta, err := s.tableExists("meta")
	if err != nil {
		return 0, err
	}
	if hasMeta {
		var value string
		err := s.conn.QueryRow(
			"SELECT value FROM meta WHERE key = "+s.dialect.Placeholder(1), schemaVersionKey).Scan(&value)
		if err == nil {
			v, convErr := strconv.Atoi(value)
			if convErr != nil {
				return 0, fmt.Errorf("bad schema version %q: %w", value, convErr)
			}
			return v, nil
		}
		if err != sql.ErrNoRows {
			return 0, fmt.Errorf("reading schema version: %w", err)
		}
	}

	hasDayBuckets, err := s.tableExists("day_buckets")
	if err != nil {
		return 0, err
	}
	if hasDayBuckets {
		return 1, nil
	}

	hasIntervals, err := s.tableExists("intervals")
	if err != nil {
		return 0, err
	}
	if hasIntervals {
		return currentSchemaVersion, nil
	}
	return 0, nil
}

func (s *SQLStore) setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec(s.dialect.UpsertMetaSQL(), schemaVersionKey, strconv.Itoa(version))
	return err
}

func (s *SQLStore) tableExists(name string) (bool, error) {
	var count int
	if err := s.conn.QueryRow(s.dialect.TableExistsSQL(name)).Scan(&count); err != nil {
		return false, fmt.Errorf("checking for table %s: %w", name, err)
	}
	return count > 0, nil
}

// storedInterval is the wire shape of one interval inside a schema-1 day
// row or the legacy flat file.
type storedInterval struct {
	Identifier string `json:"identifier"`
	Start      string `json:"start"`
	End        string `json:"end,omitempty"`
	Label      string `json:"label"`
}

// migrateDayBuckets converts every schema-1 day row into standalone
// interval rows with normalized tags, then drops the day_buckets table.
// Upserts key on identifier, so rerunning over partially migrated data
// cannot duplicate rows.
func (s *SQLStore) migrateDayBuckets(tx *sql.Tx) error {
	if err := s.createCurrentTables(tx); err != nil {
		return err
	}

	rows, err := tx.Query("SELECT day_key, intervals FROM day_buckets")
	if err != nil {
		return fmt.Errorf("reading day_buckets: %w", err)
	}

	type dayRow struct {
		key  string
		blob string
	}
	var days []dayRow
	for rows.Next() {
		var r dayRow
		if err := rows.Scan(&r.key, &r.blob); err != nil {
			rows.Close()
			return fmt.Errorf("scanning day row: %w", err)
		}
		days = append(days, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, day := range days {
		var stored []storedInterval
		if err := json.Unmarshal([]byte(day.blob), &stored); err != nil {
			return fmt.Errorf("day %s: decoding intervals: %w", day.key, err)
		}
		if err := s.upsertStoredIntervals(tx, stored); err != nil {
			return fmt.Errorf("day %s: %w", day.key, err)
		}
	}

	if _, err := tx.Exec("DROP TABLE day_buckets"); err != nil {
		return fmt.Errorf("dropping day_buckets: %w", err)
	}
	return nil
}

// importLegacyFile migrates the pre-schema flat store: a single JSON file
// mapping day key to an array of plain interval objects. The file is
// deleted after a successful import, making a second load a no-op.
func (s *SQLStore) importLegacyFile() error {
	if s.legacyPath == "" {
		return nil
	}
	data, err := os.ReadFile(s.legacyPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.legacyPath, err)
	}

	var byDay map[string][]storedInterval
	if err := json.Unmarshal(data, &byDay); err != nil {
		return fmt.Errorf("decoding %s: %w", s.legacyPath, err)
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for day, stored := range byDay {
		if err := s.upsertStoredIntervals(tx, stored); err != nil {
			return fmt.Errorf("day %s: %w", day, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}

	if err := os.Remove(s.legacyPath); err != nil {
		return fmt.Errorf("removing %s: %w", s.legacyPath, err)
	}
	return nil
}

// upsertStoredIntervals writes wire-shaped intervals as schema-2 rows,
// resolving each label to a tag reference. The empty label maps to the
// reserved null reference, never to a tag row. The day key is re-derived
// from the parsed start so a bucket can never disagree with its intervals.
func (s *SQLStore) upsertStoredIntervals(tx *sql.Tx, stored []storedInterval) error {
	for _, si := range stored {
		start, err := parseTimestamp(si.Start)
		if err != nil {
			return fmt.Errorf("interval %s: %w", si.Identifier, err)
		}

		tagID, err := s.getOrCreateTagIn(tx, si.Label)
		if err != nil {
			return err
		}

		var end interface{}
		if si.End != "" {
			endT, err := parseTimestamp(si.End)
			if err != nil {
				return fmt.Errorf("interval %s: %w", si.Identifier, err)
			}
			end = formatTimestamp(endT)
		}

		_, err = tx.Exec(s.dialect.UpsertIntervalSQL(),
			si.Identifier, formatTimestamp(start), end, nullableID(tagID), timeutil.DayKey(start))
		if err != nil {
			return fmt.Errorf("upserting interval %s: %w", si.Identifier, err)
		}
	}
	return nil
}
