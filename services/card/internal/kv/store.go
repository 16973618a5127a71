// Package kv provides the persistent key-value stores a card is hydrated
// from and written to.
//
// Backend selection: Redis (REDIS_DSN) > Postgres (DATABASE_URL) >
// SQLite file (SQLITE_PATH) > in-memory. The in-memory store loses every
// card on restart and is refused in production.
package kv

import (
	"context"
	"errors"
	"strings"
)

// Store is a string key-value store. Get reports ok=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

type Options struct {
	RedisDSN    string
	DatabaseURL string
	SQLitePath  string
}

var ErrMemoryInProduction = errors.New("production requires REDIS_DSN, DATABASE_URL or SQLITE_PATH; in-memory store is not allowed")

// Open creates the best available store for opts. The returned name
// identifies the backend for logging.
func Open(ctx context.Context, opts Options, isProd bool) (Store, string, error) {
	switch {
	case strings.TrimSpace(opts.RedisDSN) != "":
		s, err := NewRedis(ctx, opts.RedisDSN)
		if err != nil {
			return nil, "redis", err
		}
		return s, "redis", nil
	case strings.TrimSpace(opts.DatabaseURL) != "":
		s, err := NewPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, "postgres", err
		}
		return s, "postgres", nil
	case strings.TrimSpace(opts.SQLitePath) != "":
		s, err := NewSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, "sqlite", err
		}
		return s, "sqlite", nil
	}
	if isProd {
		return nil, "", ErrMemoryInProduction
	}
	return NewMemory(), "memory", nil
}

