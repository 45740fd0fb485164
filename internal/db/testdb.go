package db

import (
	"database/sql"
	"os"
	"testing"
)

// NewTestDB creates a fresh in-memory SQLite database with the schema applied.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := EnsureSchema(db, SQLite); err != nil {
		db.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

// NewTestPostgres connects to the database named by
// BAGFACTORY_TEST_POSTGRES_DSN and empties the bags table. The test is
// skipped when the variable is unset.
func NewTestPostgres(t testing.TB) *sql.DB {
	t.Helper()

	dsn := os.Getenv("BAGFACTORY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BAGFACTORY_TEST_POSTGRES_DSN not set")
	}

	db, err := OpenPostgres(dsn)
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}

	if err := EnsureSchema(db, Postgres); err != nil {
		db.Close()
		t.Fatalf("creating test database schema: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE bags, settings RESTART IDENTITY`); err != nil {
		db.Close()
		t.Fatalf("truncating bags: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}
