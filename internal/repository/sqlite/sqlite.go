// Package sqlite implements the repository interfaces on an embedded SQLite
// database (pure-Go driver, no cgo).
//
// Concurrency note: SQLite serialises writers, so a conditional UPDATE whose
// WHERE clause re-checks the edit-lock columns is a true compare-and-swap;
// two racing lock transitions cannot both pass the precondition. All lock
// mutations in this package go through such single-statement updates.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DB wraps a sql.DB connection pool and implements the repository
// interfaces for stories, users, admins and the activity log.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// The pragmas ride in the DSN so that every pooled connection gets them, not
// just the one a plain Exec("PRAGMA ...") would happen to run on:
//   - WAL allows concurrent reads while a write is in progress
//   - busy_timeout queues writers instead of failing with SQLITE_BUSY when
//     lock transitions from concurrent requests collide
//   - foreign_keys is off by default in SQLite
func New(dbPath string) (*DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		dbPath,
	)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers should defer this right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id
			ON users(github_id) WHERE github_id != 0;
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS admins (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating admins table: %w", err)
	}

	// The CHECK constraint makes the invalid lock state (unlocked but an
	// editor recorded, or locked without one) unrepresentable at rest.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS stories (
			id              TEXT PRIMARY KEY,
			title           TEXT NOT NULL,
			main_text       TEXT NOT NULL DEFAULT '',
			tags            TEXT NOT NULL DEFAULT '[]',
			snapshots       TEXT NOT NULL DEFAULT '[]',
			author_id       TEXT NOT NULL REFERENCES users(id),
			is_being_edited INTEGER NOT NULL DEFAULT 0,
			last_edited_by  TEXT REFERENCES users(id),
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CHECK (
				(is_being_edited = 0 AND last_edited_by IS NULL) OR
				(is_being_edited = 1 AND last_edited_by IS NOT NULL)
			)
		);
		CREATE INDEX IF NOT EXISTS idx_stories_author_id ON stories(author_id);
		CREATE INDEX IF NOT EXISTS idx_stories_created_at ON stories(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating stories table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS logs (
			id        TEXT PRIMARY KEY,
			story_id  TEXT NOT NULL,
			user_id   TEXT NOT NULL,
			action    TEXT NOT NULL,
			details   TEXT NOT NULL DEFAULT '',
			timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_logs_story_timestamp ON logs(story_id, timestamp);
		CREATE INDEX IF NOT EXISTS idx_logs_user_id ON logs(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating logs table: %w", err)
	}

	return nil
}
