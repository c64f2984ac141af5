// Package journal keeps a SQLite history of dispatched calls.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rexliu/talkliner/pkg/messenger"
)

// Entry is one recorded call.
type Entry struct {
	ID         string `json:"id"`
	TraceID    string `json:"traceId"`
	Channel    string `json:"channel"`
	Method     string `json:"method"`
	OK         bool   `json:"ok"`
	Code       string `json:"code,omitempty"`
	DurationUS int64  `json:"durationUs"`
	CreatedAt  int64  `json:"createdAt"`
}

// Store owns the journal database.
type Store struct {
	db   *sql.DB
	path string
}

// Path returns the underlying SQLite file path.
func (s *Store) Path() string {
	return s.path
}

// Open initializes a SQLite database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Init applies pragmas and schema.
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("nil store")
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES ('schemaVersion','1');`,
		`CREATE TABLE IF NOT EXISTS calls (
			id TEXT PRIMARY KEY,
			trace_id TEXT NOT NULL,
			channel TEXT NOT NULL,
			method TEXT NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT,
			duration_us INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_calls_channel_method ON calls(channel, method);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Record stores ev and returns the entry written.
func (s *Store) Record(ctx context.Context, ev messenger.Event) (Entry, error) {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	entry := Entry{
		ID:         newEntryID(at),
		TraceID:    ev.TraceID,
		Channel:    ev.Channel,
		Method:     ev.Method,
		OK:         ev.OK,
		Code:       ev.Code,
		DurationUS: ev.Duration.Microseconds(),
		CreatedAt:  at.UnixMilli(),
	}
	var code *string
	if entry.Code != "" {
		code = &entry.Code
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO calls(id, trace_id, channel, method, ok, code, duration_us, created_at) VALUES(?,?,?,?,?,?,?,?)`,
		entry.ID, entry.TraceID, entry.Channel, entry.Method, entry.OK, code, entry.DurationUS, entry.CreatedAt)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trace_id, channel, method, ok, code, duration_us, created_at
		FROM calls
		ORDER BY id DESC
		LIMIT ?;
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e    Entry
			code *string
		)
		if err := rows.Scan(&e.ID, &e.TraceID, &e.Channel, &e.Method, &e.OK, &code, &e.DurationUS, &e.CreatedAt); err != nil {
			return nil, err
		}
		if code != nil {
			e.Code = *code
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Logger is the minimal logging surface used by Observer.
type Logger interface {
	Printf(format string, v ...any)
}

// Observer returns a messenger observer recording every call. Write
// failures are logged and otherwise ignored.
func (s *Store) Observer(logger Logger) messenger.Observer {
	return func(ev messenger.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := s.Record(ctx, ev); err != nil && logger != nil {
			logger.Printf("journal record failed: %v", err)
		}
	}
}
