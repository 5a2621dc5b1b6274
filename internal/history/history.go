// Package history records the outcome of every query run from the command
// line in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	// sqlite driver for the history database.
	_ "modernc.org/sqlite"
)

// Entry is one recorded query outcome.
type Entry struct {
	ID        string
	SessionID string
	Query     string
	// SQL is the generated statement, empty when the query was rejected before transpiling.
	SQL string
	// Kind is the taxonomy name of the rejection, empty on success.
	Kind     string
	Message  string
	Pipeline bool
	RowCount int
	Duration time.Duration
	Created  time.Time
}

// OK reports whether the query succeeded.
func (e *Entry) OK() bool {
	return e.Kind == ""
}

// Store is the history database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history database at path and
// migrates it. Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history path is empty")
	}
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create history directory: %w", err)
			}
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores e, assigning an ID and timestamp when they are unset.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Created.IsZero() {
		e.Created = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id, session_id, query, generated, kind, message, pipeline, row_count, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Query, e.SQL, e.Kind, e.Message, e.Pipeline, e.RowCount,
		e.Duration.Milliseconds(), e.Created,
	)
	if err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]*Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, query, generated, kind, message, pipeline, row_count, duration_ms, created_at
		 FROM history ORDER BY created_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var ms int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Query, &e.SQL, &e.Kind, &e.Message,
			&e.Pipeline, &e.RowCount, &ms, &e.Created); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByKind returns the number of entries per taxonomy kind.
// Successful queries are counted under "OK".
func (s *Store) CountByKind(ctx context.Context) (map[string]int, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT CASE WHEN kind = '' THEN 'OK' ELSE kind END, COUNT(*) FROM history GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
