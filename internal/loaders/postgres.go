package loaders

import (
	"context"
	"errors"
	"fmt"

	"github.com/Conversly/storefront/internal/utils"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

const createStateTable = `CREATE TABLE IF NOT EXISTS storefront_state (
	namespace  TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      BYTEA       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`

// PostgresStore keeps state rows in storefront_state, one per
// (namespace, key).
type PostgresStore struct {
	pool      *pgxpool.Pool
	namespace string
}

func NewPostgresStore(ctx context.Context, dsn, namespace string) (*PostgresStore, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createStateTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure state table: %w", err)
	}
	utils.Zlog.Info("Postgres state store ready", zap.String("namespace", namespace))
	return &PostgresStore{pool: pool, namespace: namespace}, nil
}

func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM storefront_state WHERE namespace = $1 AND key = $2`,
		p.namespace, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return value, nil
}

func (p *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO storefront_state (namespace, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		p.namespace, key, value)
	if err != nil {
		return fmt.Errorf("postgres set %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx,
		`DELETE FROM storefront_state WHERE namespace = $1 AND key = $2`,
		p.namespace, key); err != nil {
		return fmt.Errorf("postgres delete %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
