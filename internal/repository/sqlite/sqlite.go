// Package sqlite implements repository.DocumentStore on top of SQLite.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. It is the
// default backend: `go run ./cmd/server` works with zero infrastructure.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go translation
// of the SQLite C code, so no C compiler is needed.
//
// DOCUMENTS IN A RELATIONAL TABLE:
// Every document lives in a single table keyed by (collection, key) with the
// JSON body stored as TEXT. SQLite's json functions could query inside the body,
// but the storefront never needs that: it only ever gets, sets or lists whole documents.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The sqlite package's init() registers itself with database/sql as a driver
	// named "sqlite". After this import, sql.Open("sqlite", ...) works.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements repository.DocumentStore.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/shop.db"  → file-based database (persistent)
//   - ":memory:"      → in-memory database (great for tests, lost on close)
//
// CONNECTION POOL:
// sql.Open() does NOT actually open a connection; it just creates a pool manager.
// We call Ping() to force an immediate connection and verify it works.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each connection to ":memory:" gets its OWN empty database. Pinning the
	// pool to one connection keeps every query on the same in-memory database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode lets reads proceed while a write is happening.
	// This matters for a web server where multiple requests hit the DB.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Wait up to 5s for a competing writer instead of failing with SQLITE_BUSY.
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by the /healthz handler.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is idempotent: it won't error if the table exists.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection, key)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}

	return nil
}
