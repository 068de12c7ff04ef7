package database

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/lib/pq"

	"simplist/internal/config"
	"simplist/pkg/logger"
)

var (
	pool *sql.DB
	once sync.Once
)

// DB returns the global database connection pool (initialized on first
// use). Nil when DATABASE_URL is not set or the connection failed.
func DB(ctx context.Context) *sql.DB {
	once.Do(func() {
		cfg := config.Get()
		if cfg.DatabaseURL == "" {
			return
		}
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error(ctx, "Failed to open database", "error", err)
			return
		}
		db.SetMaxOpenConns(cfg.DBPoolSize)
		db.SetMaxIdleConns(cfg.DBPoolSize / 2)
		pool = db
		logger.Info(ctx, "Database pool initialized", "max_open", cfg.DBPoolSize)
	})
	return pool
}

const schema = `
CREATE TABLE IF NOT EXISTS lists (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT,
	items       TEXT[] NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	status      TEXT NOT NULL DEFAULT 'active'
);
CREATE TABLE IF NOT EXISTS items (
	id         TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	checked    BOOLEAN NOT NULL DEFAULT FALSE,
	list_id    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active'
);
CREATE INDEX IF NOT EXISTS idx_items_list ON items (list_id);
`

// Migrate creates the lists and items tables if absent. Idempotent.
func Migrate(ctx context.Context) error {
	db := DB(ctx)
	if db == nil {
		return sql.ErrConnDone
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	logger.Info(ctx, "Schema ensured")
	return nil
}
