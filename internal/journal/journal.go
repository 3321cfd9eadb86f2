// Package journal persists a SQLite timeline of completed capture sessions.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/voxnote/voxnote/internal/config"
)

// Run statuses recorded in the journal.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusEmpty     = "empty"
	StatusFailed    = "failed"
)

// Entry is one recorded capture session.
type Entry struct {
	RunID         string
	Status        string
	Device        string
	BytesCaptured int64
	TranscriptID  string
	Error         string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Store wraps the SQLite-backed session journal. A disabled journal is a
// valid no-op store.
type Store struct {
	db    *sql.DB
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the journal according to config.
func Open(ctx context.Context, cfg config.JournalConfig, path string, log *slog.Logger) (*Store, error) {
	if !cfg.Enabled {
		return &Store{log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    device TEXT,
    bytes_captured INTEGER NOT NULL DEFAULT 0,
    transcript_id TEXT,
    error TEXT,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append writes one session entry into the journal.
func (s *Store) Append(ctx context.Context, entry Entry) error {
	if s.db == nil {
		return nil
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = s.clock().UTC()
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = s.clock().UTC()
	}
	// Timestamps are Unix nanos so started_at ordering matches time order.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(run_id, status, device, bytes_captured, transcript_id, error, started_at, finished_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.Status, entry.Device, entry.BytesCaptured,
		entry.TranscriptID, entry.Error,
		entry.StartedAt.UnixNano(),
		entry.FinishedAt.UnixNano())
	return err
}

// Recent retrieves up to limit entries ordered newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, status, device, bytes_captured, transcript_id, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, finished int64
		if err := rows.Scan(&e.RunID, &e.Status, &e.Device, &e.BytesCaptured, &e.TranscriptID, &e.Error, &started, &finished); err != nil {
			return nil, err
		}
		e.StartedAt = time.Unix(0, started).UTC()
		e.FinishedAt = time.Unix(0, finished).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
