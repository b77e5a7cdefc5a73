package database

import "fmt"

// PostgresDialect implements the Dialect interface for PostgreSQL databases
// accessed through the pgx stdlib driver. Timestamps stay TEXT for layout
// parity with the SQLite backend; duration arithmetic casts on the fly.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string              { return "pgx" }
func (d *PostgresDialect) DSN(pathOrConnStr string) string { return pathOrConnStr }
func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}
func (d *PostgresDialect) ReturnsInsertID() bool { return true }

func (d *PostgresDialect) TableExistsSQL(table string) string {
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = '%s'", table)
}

func (d *PostgresDialect) CreateMetaTableSQL() string {
	return "CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT)"
}

func (d *PostgresDialect) CreateTagsTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS tags (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`
}

func (d *PostgresDialect) CreateIntervalsTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS intervals (
		id BIGSERIAL PRIMARY KEY,
		identifier TEXT NOT NULL UNIQUE,
		start_time TEXT NOT NULL,
		end_time TEXT,
		tag_id BIGINT,
		day_key TEXT NOT NULL
	)`
}

func (d *PostgresDialect) CreateIndexSQL(indexName, tableName, column string) string {
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)", indexName, tableName, column)
}

func (d *PostgresDialect) UpsertIntervalSQL() string {
	return `INSERT INTO intervals (identifier, start_time, end_time, tag_id, day_key)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identifier) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			tag_id = excluded.tag_id,
			day_key = excluded.day_key`
}

func (d *PostgresDialect) UpsertMetaSQL() string {
	return `INSERT INTO meta (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`
}

func (d *PostgresDialect) InsertTagSQL() string {
	return "INSERT INTO tags (name) VALUES ($1) RETURNING id"
}

func (d *PostgresDialect) DurationSecondsSQL(startCol, endCol string) string {
	return fmt.Sprintf(
		"CAST(EXTRACT(EPOCH FROM (CAST(%s AS timestamp) - CAST(%s AS timestamp))) AS BIGINT)", endCol, startCol)
}
