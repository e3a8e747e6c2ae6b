package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nodeward/devnetup/internal/store"
)

// DB implements store.Store for SQLite (modernc.org/sqlite driver,
// CGO-free). Path is a filesystem path; ":memory:" gives an in-memory DB.
type DB struct {
	db *sql.DB
}

func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bootstrap_events(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			phase TEXT NOT NULL,
			name TEXT NOT NULL,
			detail TEXT NOT NULL,
			attempt INTEGER NOT NULL,
			ok BOOLEAN NOT NULL,
			occurred_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bootstrap_events_phase ON bootstrap_events(phase);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) RecordEvent(ctx context.Context, e store.Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bootstrap_events(phase, name, detail, attempt, ok, occurred_at)
		VALUES(?, ?, ?, ?, ?, ?);`,
		e.Phase, e.Name, e.Detail, e.Attempt, e.OK, e.OccurredAt.UTC())
	return err
}

func (s *DB) Events(ctx context.Context, phase string) ([]store.Event, error) {
	q := `SELECT id, phase, name, detail, attempt, ok, occurred_at FROM bootstrap_events`
	args := []any{}
	if phase != "" {
		q += ` WHERE phase = ?`
		args = append(args, phase)
	}
	q += ` ORDER BY id ASC;`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []store.Event
	for rows.Next() {
		var e store.Event
		if err := rows.Scan(&e.ID, &e.Phase, &e.Name, &e.Detail, &e.Attempt, &e.OK, &e.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
