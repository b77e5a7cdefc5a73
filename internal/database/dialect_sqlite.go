package database

import "fmt"

// SQLiteDialect implements the Dialect interface for SQLite databases.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string              { return "sqlite" }
func (d *SQLiteDialect) DSN(pathOrConnStr string) string { return pathOrConnStr }
func (d *SQLiteDialect) Placeholder(index int) string    { return "?" }
func (d *SQLiteDialect) ReturnsInsertID() bool           { return false }

func (d *SQLiteDialect) TableExistsSQL(table string) string {
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='%s'", table)
}

func (d *SQLiteDialect) CreateMetaTableSQL() string {
	return "CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT)"
}

func (d *SQLiteDialect) CreateTagsTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`
}

func (d *SQLiteDialect) CreateIntervalsTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS intervals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identifier TEXT NOT NULL UNIQUE,
		start_time TEXT NOT NULL,
		end_time TEXT,
		tag_id INTEGER,
		day_key TEXT NOT NULL
	)`
}

func (d *SQLiteDialect) CreateIndexSQL(indexName, tableName, column string) string {
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)", indexName, tableName, column)
}

func (d *SQLiteDialect) UpsertIntervalSQL() string {
	return `INSERT INTO intervals (identifier, start_time, end_time, tag_id, day_key)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			tag_id = excluded.tag_id,
			day_key = excluded.day_key`
}

func (d *SQLiteDialect) UpsertMetaSQL() string {
	return `INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
}

func (d *SQLiteDialect) InsertTagSQL() string {
	return "INSERT INTO tags (name) VALUES (?)"
}

func (d *SQLiteDialect) DurationSecondsSQL(startCol, endCol string) string {
	return fmt.Sprintf(
		"CAST(strftime('%%s', %s) - strftime('%%s', %s) AS INTEGER)", endCol, startCol)
}
