// Package sqlite implements the repository interfaces on SQLite.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure-Go translation of
// SQLite — works everywhere Go works.
//
// CONCURRENCY NOTES:
// SQLite serializes writers, and every mutating operation here is either a
// single statement or a single transaction. That gives the per-record
// atomicity the service layer relies on: a rename moves the name and its
// issue rows in one transaction, and refresh rotation is a conditional
// UPDATE, so concurrent read-modify-write sequences cannot lose updates.
package sqlite

import (
	"database/sql"
	"fmt"

	// Blank import: the driver registers itself with database/sql under the
	// name "sqlite" at init time.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
// One value implements both repository.UserRepository and
// repository.CollectionRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty
	// database, so pin the pool to one connection for in-memory use.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Force an immediate connection so a bad path fails here, not on the
	// first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight — important for a
	// web server where many requests share the pool.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite. The collection_issues
	// cascade rules depend on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer it next to New — it
// flushes the WAL and releases the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every startup.
//
// Schema notes:
//   - users.email has a UNIQUE constraint; the Create path translates the
//     constraint violation into a conflict error.
//   - refresh_token / refresh_token_expires_at are nullable as a pair.
//   - collections are keyed (user_id, name); collection_issues hang off
//     that key with ON UPDATE CASCADE so a rename carries the issue rows
//     along, and ON DELETE CASCADE so deleting a collection drops them.
//   - collection_issues.position records insertion order.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                       TEXT PRIMARY KEY,
			email                    TEXT NOT NULL UNIQUE,
			password_hash            TEXT NOT NULL,
			role                     TEXT NOT NULL DEFAULT 'user',
			refresh_token            TEXT,
			refresh_token_expires_at DATETIME,
			created_at               DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at               DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, name)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating collections table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS collection_issues (
			user_id         TEXT NOT NULL,
			collection_name TEXT NOT NULL,
			issue_id        TEXT NOT NULL,
			position        INTEGER NOT NULL,
			name            TEXT NOT NULL DEFAULT '',
			issue_number    TEXT NOT NULL DEFAULT '',
			description     TEXT NOT NULL DEFAULT '',
			volume_id       TEXT NOT NULL DEFAULT '',
			volume_name     TEXT NOT NULL DEFAULT '',
			year            TEXT NOT NULL DEFAULT '',
			cover_url       TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (user_id, collection_name, issue_id),
			FOREIGN KEY (user_id, collection_name)
				REFERENCES collections(user_id, name)
				ON UPDATE CASCADE ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_collection_issues_order
			ON collection_issues(user_id, collection_name, position);
	`)
	if err != nil {
		return fmt.Errorf("creating collection_issues table: %w", err)
	}

	return nil
}
