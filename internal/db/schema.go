package db

import (
	"database/sql"
	"fmt"
)

// sqliteSchema uses AUTOINCREMENT so that ids of deleted bags are never
// handed out again.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bags (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    type       TEXT NOT NULL,
    color      TEXT NOT NULL,
    material   TEXT NOT NULL,
    quantity   INTEGER NOT NULL CHECK (quantity >= 0),
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS bags (
    id         BIGSERIAL PRIMARY KEY,
    type       TEXT NOT NULL,
    color      TEXT NOT NULL,
    material   TEXT NOT NULL,
    quantity   INTEGER NOT NULL CHECK (quantity >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB, dialect Dialect) error {
	var schema string
	switch dialect {
	case SQLite:
		schema = sqliteSchema
	case Postgres:
		schema = postgresSchema
	default:
		return fmt.Errorf("creating schema: unsupported dialect %q", dialect)
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
