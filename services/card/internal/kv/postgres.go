package kv

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/product-card/internal/platform/db"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS card_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres persists keys in the card_kv table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := db.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var val string
	err := s.pool.QueryRow(ctx, `SELECT value FROM card_kv WHERE key = $1`, key).Scan(&val)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (s *Postgres) Set(ctx context.Context, key, value string) error {
	const q = `INSERT INTO card_kv (key, value)
	           VALUES ($1, $2)
	           ON CONFLICT (key) DO UPDATE SET
	             value = EXCLUDED.value,
	             updated_at = now()`
	_, err := s.pool.Exec(ctx, q, key, value)
	return err
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
