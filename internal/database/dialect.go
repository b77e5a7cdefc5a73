package database

// Dialect abstracts all database-specific SQL generation. Each backend
// (SQLite, PostgreSQL) implements this interface; SQLStore is written
// entirely against it.
type Dialect interface {
	// DriverName returns the database/sql driver name (e.g. "sqlite", "pgx").
	DriverName() string

	// DSN returns the data source name for opening a connection.
	// For SQLite this is the file path; for PostgreSQL a connection string.
	DSN(pathOrConnStr string) string

	// Placeholder returns the parameter placeholder for the given 1-based
	// index. SQLite: "?" (ignoring index), PostgreSQL: "$1", "$2", etc.
	Placeholder(index int) string

	// TableExistsSQL returns a query counting how many tables with the given
	// name exist. Used by the migration pipeline to detect schema versions.
	TableExistsSQL(table string) string

	// CreateMetaTableSQL returns DDL for the meta key/value table that
	// carries the schema version stamp.
	CreateMetaTableSQL() string

	// CreateTagsTableSQL returns DDL for the deduplicated tags table.
	CreateTagsTableSQL() string

	// CreateIntervalsTableSQL returns DDL for the intervals table.
	CreateIntervalsTableSQL() string

	// CreateIndexSQL returns DDL to create an index on a table column.
	CreateIndexSQL(indexName, tableName, column string) string

	// UpsertIntervalSQL returns the parameterized upsert for one interval:
	// identifier, start_time, end_time, tag_id, day_key. Conflicts on
	// identifier update the row in place.
	UpsertIntervalSQL() string

	// UpsertMetaSQL returns the parameterized upsert for one meta row.
	UpsertMetaSQL() string

	// InsertTagSQL returns the parameterized insert for a new tag name.
	// When ReturnsInsertID is true the statement ends in RETURNING id and
	// must be run with QueryRow.
	InsertTagSQL() string

	// ReturnsInsertID reports whether InsertTagSQL yields the new surrogate
	// key via RETURNING instead of the driver's LastInsertId.
	ReturnsInsertID() bool

	// DurationSecondsSQL returns a SQL expression computing whole seconds
	// between the two timestamp columns.
	DurationSecondsSQL(startCol, endCol string) string
}
