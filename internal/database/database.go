// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates and validates a pgxpool connection pool.
// It retries up to 5 times to accommodate containers starting up.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	// Sensible pool defaults for a small service.
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			pingErr := pool.Ping(ctx)
			if pingErr == nil {
				return pool, nil
			}
			pool.Close()
			err = pingErr
		}
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

// schema is applied at startup; every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	organizer  TEXT NOT NULL,
	content    TEXT NOT NULL,
	capacity   INTEGER NOT NULL CHECK (capacity > 0),
	roster     TEXT[] NOT NULL DEFAULT '{}',
	start_at   TIMESTAMPTZ NOT NULL,
	end_at     TIMESTAMPTZ NOT NULL,
	status     TEXT NOT NULL,
	options    JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CHECK (end_at > start_at)
);
CREATE INDEX IF NOT EXISTS events_organizer_idx ON events (organizer);
CREATE INDEX IF NOT EXISTS events_status_end_idx ON events (status, end_at);
CREATE INDEX IF NOT EXISTS events_roster_idx ON events USING GIN (roster);

CREATE TABLE IF NOT EXISTS posts (
	id         TEXT PRIMARY KEY,
	author     TEXT NOT NULL,
	content    TEXT NOT NULL,
	comments   TEXT[] NOT NULL DEFAULT '{}',
	techniques TEXT[] NOT NULL DEFAULT '{}',
	options    JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS posts_author_idx ON posts (author);

CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY,
	author     TEXT NOT NULL,
	content    TEXT NOT NULL,
	root       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS comments_root_idx ON comments (root);

CREATE TABLE IF NOT EXISTS tags (
	id         TEXT PRIMARY KEY,
	author     TEXT NOT NULL,
	content    TEXT NOT NULL,
	root       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS tags_root_idx ON tags (root);
`

// Migrate applies the schema. Safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
