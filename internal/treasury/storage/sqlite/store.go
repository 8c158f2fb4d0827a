// Package sqlite implements treasury persistence over a single SQLite file,
// so every mutation and its audit event share one transaction boundary.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/hearthvault/hearthvault/internal/platform/storage/sqlitemigrate"
	"github.com/hearthvault/hearthvault/internal/treasury/event"
	"github.com/hearthvault/hearthvault/internal/treasury/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements treasury persistence over SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a treasury SQLite store and applies bundled migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

type execContexter interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// appendEventTx writes an audit event inside an open transaction, assigning
// the next per-family sequence number.
func appendEventTx(ctx context.Context, tx execContexter, evt event.Event) (event.Event, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM events WHERE family_id = ?`, evt.FamilyID)
	var lastSeq int64
	if err := row.Scan(&lastSeq); err != nil {
		return event.Event{}, fmt.Errorf("next event seq: %w", err)
	}
	evt.Seq = lastSeq + 1

	_, err := tx.ExecContext(ctx, `
INSERT INTO events (family_id, seq, timestamp, type, actor, entity_type, entity_id, payload)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.FamilyID, evt.Seq, toMillis(evt.Timestamp), string(evt.Type),
		evt.Actor, evt.EntityType, evt.EntityID, string(evt.PayloadJSON))
	if err != nil {
		return event.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return evt, nil
}

// isUniqueViolation detects SQLite uniqueness failures on insert.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
