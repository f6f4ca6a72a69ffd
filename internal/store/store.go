// Package store provides a SQLite-backed chat session store. Sessions are
// keyed by the client-generated session id and carry their full message
// transcript as an opaque JSON blob — the frontend owns the message shape,
// the backend only persists and returns it.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// ErrNotFound is returned when the requested session does not exist.
var ErrNotFound = errors.New("store: session not found")

// Session is one chat session as the frontend presents it.
type Session struct {
	// ID is the client-generated session identifier.
	ID string `json:"id"`
	// Title is the display title shown in the session list.
	Title string `json:"title"`
	// DateGroup is the client's bucketing label (e.g. "Today").
	DateGroup string `json:"dateGroup"`
	// Messages is the transcript, stored verbatim as JSON.
	Messages json.RawMessage `json:"messages"`
}

// SessionStore persists chat sessions. Implementations must be safe for
// concurrent use.
type SessionStore interface {
	// List returns every stored session.
	List(ctx context.Context) ([]Session, error)
	// Save inserts the session or replaces the stored copy with the same id.
	Save(ctx context.Context, session Session) error
	// Delete removes the session, returning ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a SessionStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the session database.
// It resolves to ~/.docuchat/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".docuchat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
    id          TEXT    PRIMARY KEY,
    title       TEXT    NOT NULL,
    date_group  TEXT    NOT NULL,
    messages    TEXT    NOT NULL,  -- JSON transcript, stored verbatim
    updated_at  INTEGER NOT NULL   -- Unix timestamp (seconds)
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// List returns every stored session, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]Session, error) {
	const q = `SELECT id, title, date_group, messages FROM sessions ORDER BY updated_at DESC, id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var messages string
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.DateGroup, &messages); err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		sess.Messages = json.RawMessage(messages)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list rows: %w", err)
	}
	return sessions, nil
}

// Save inserts the session or replaces the stored copy with the same id.
func (s *SQLiteStore) Save(ctx context.Context, session Session) error {
	if session.ID == "" {
		return fmt.Errorf("store: session id must not be empty")
	}
	messages := session.Messages
	if len(messages) == 0 {
		messages = json.RawMessage("[]")
	}

	const q = `
INSERT INTO sessions (id, title, date_group, messages, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title      = excluded.title,
    date_group = excluded.date_group,
    messages   = excluded.messages,
    updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, session.ID, session.Title, session.DateGroup, string(messages), time.Now().Unix()); err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	return nil
}

// Delete removes the session, returning ErrNotFound if absent.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
