// Package history keeps a SQLite log of refresh ticks.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/nbtoc/internal/refresh"
)

// Entry is one recorded tick.
type Entry struct {
	ID          int64     `json:"id"`
	TickID      string    `json:"tick_id"`
	Trigger     string    `json:"trigger"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  float64   `json:"duration_ms"`
	Result      string    `json:"result"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Primary     int       `json:"primary_entries"`
	Secondary   int       `json:"secondary_entries"`
	Changed     bool      `json:"changed"`
	Written     bool      `json:"written"`
	Revision    string    `json:"revision,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Store implements refresh.HistoryRecorder using SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	retain int
}

// Open creates or opens the history database at path. Use ":memory:" for
// an in-memory database. When retain is positive only the newest retain
// ticks are kept.
func Open(path string, retain int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, retain: retain}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ticks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick_id TEXT NOT NULL,
		trigger TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms REAL NOT NULL,
		result TEXT NOT NULL,
		fingerprint TEXT,
		primary_entries INTEGER NOT NULL DEFAULT 0,
		secondary_entries INTEGER NOT NULL DEFAULT 0,
		changed INTEGER NOT NULL DEFAULT 0,
		written INTEGER NOT NULL DEFAULT 0,
		revision TEXT,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_ticks_started_at ON ticks(started_at);
	CREATE INDEX IF NOT EXISTS idx_ticks_result ON ticks(result);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a tick outcome.
func (s *Store) Record(ctx context.Context, o *refresh.Outcome) error {
	if o == nil {
		return nil
	}
	return s.Append(ctx, Entry{
		TickID:      o.TickID,
		Trigger:     string(o.Trigger),
		StartedAt:   o.StartedAt,
		DurationMS:  float64(o.Duration.Microseconds()) / 1000,
		Result:      string(o.Result),
		Fingerprint: o.Fingerprint,
		Primary:     o.Primary,
		Secondary:   o.Secondary,
		Changed:     o.Changed,
		Written:     o.Written,
		Revision:    o.Revision,
		Error:       o.ErrorMessage(),
	})
}

// Append inserts e and prunes old rows.
func (s *Store) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ticks (tick_id, trigger, started_at, duration_ms, result, fingerprint,
			primary_entries, secondary_entries, changed, written, revision, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TickID, e.Trigger, e.StartedAt.UnixNano(), e.DurationMS, e.Result, e.Fingerprint,
		e.Primary, e.Secondary, e.Changed, e.Written, e.Revision, e.Error,
	)
	if err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}

	if s.retain > 0 {
		_, err = s.db.ExecContext(ctx,
			"DELETE FROM ticks WHERE id NOT IN (SELECT id FROM ticks ORDER BY id DESC LIMIT ?)",
			s.retain,
		)
		if err != nil {
			return fmt.Errorf("prune ticks: %w", err)
		}
	}
	return nil
}

// Recent returns up to limit ticks, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tick_id, trigger, started_at, duration_ms, result, fingerprint,
			primary_entries, secondary_entries, changed, written, revision, error
		FROM ticks ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			startedAt   int64
			fingerprint sql.NullString
			revision    sql.NullString
			errText     sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.TickID, &e.Trigger, &startedAt, &e.DurationMS, &e.Result,
			&fingerprint, &e.Primary, &e.Secondary, &e.Changed, &e.Written, &revision, &errText); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		e.StartedAt = time.Unix(0, startedAt)
		e.Fingerprint = fingerprint.String
		e.Revision = revision.String
		e.Error = errText.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// CountByResult returns the number of stored ticks per result label.
func (s *Store) CountByResult(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT result, COUNT(*) FROM ticks GROUP BY result")
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var result string
		var n int
		if err := rows.Scan(&result, &n); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		counts[result] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return counts, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
