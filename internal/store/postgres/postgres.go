package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nodeward/devnetup/internal/store"
)

// DB implements store.Store for PostgreSQL via the pgx stdlib driver.
type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bootstrap_events(
			id BIGSERIAL PRIMARY KEY,
			phase TEXT NOT NULL,
			name TEXT NOT NULL,
			detail TEXT NOT NULL,
			attempt INTEGER NOT NULL,
			ok BOOLEAN NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bootstrap_events_phase ON bootstrap_events(phase);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) RecordEvent(ctx context.Context, e store.Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bootstrap_events(phase, name, detail, attempt, ok, occurred_at)
		VALUES($1,$2,$3,$4,$5,$6);`,
		e.Phase, e.Name, e.Detail, e.Attempt, e.OK, e.OccurredAt.UTC())
	return err
}

func (p *DB) Events(ctx context.Context, phase string) ([]store.Event, error) {
	q := `SELECT id, phase, name, detail, attempt, ok, occurred_at FROM bootstrap_events`
	args := []any{}
	if phase != "" {
		q += ` WHERE phase = $1`
		args = append(args, phase)
	}
	q += ` ORDER BY id ASC;`
	rows, err := p.db.QueryContext(ctx, q, args...)
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
