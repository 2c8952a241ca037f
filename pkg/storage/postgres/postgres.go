// Package postgres provides a PostgreSQL implementation of quota.Store.
// Quota counters live in the providers table, one row per
// (tenant, provider, provider type, quota type).
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/mmbridge/pkg/debug"
	"github.com/rhuss/mmbridge/pkg/quota"
)

// db is the subset of *pgxpool.Pool the store uses.
type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

const (
	deductSQL = `
		UPDATE providers
		SET quota_used = quota_used + $1, updated_at = now()
		WHERE tenant_id = $2
		  AND provider_name = $3
		  AND provider_type = $4
		  AND quota_type = $5
		  AND quota_limit > quota_used`

	getSQL = `
		SELECT quota_limit, quota_used
		FROM providers
		WHERE tenant_id = $1 AND provider_name = $2 AND provider_type = $3 AND quota_type = $4`

	upsertSQL = `
		INSERT INTO providers (tenant_id, provider_name, provider_type, quota_type, quota_limit)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, provider_name, provider_type, quota_type)
		DO UPDATE SET quota_limit = EXCLUDED.quota_limit, updated_at = now()`
)

// Store is a PostgreSQL-backed quota.Store.
type Store struct {
	db db
}

// Ensure Store implements quota.Store at compile time.
var _ quota.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{db: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

func newWithDB(d db) *Store {
	return &Store{db: d}
}

// DeductQuota applies the guarded increment in its own transaction and
// reports whether a row was updated.
func (s *Store) DeductQuota(ctx context.Context, key quota.Key, amount int64) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning quota transaction: %w", err)
	}

	tag, err := tx.Exec(ctx, deductSQL,
		amount, key.TenantID, key.ProviderName, string(key.ProviderType), string(key.QuotaType))
	if err != nil {
		_ = tx.Rollback(ctx)
		return false, fmt.Errorf("updating quota: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing quota update: %w", err)
	}

	applied := tag.RowsAffected() > 0
	debug.Log("storage", "postgres quota deduct",
		"tenant", key.TenantID, "provider", key.ProviderName, "quota_type", key.QuotaType,
		"amount", amount, "applied", applied)
	return applied, nil
}

// GetQuota returns the record for key or quota.ErrNotFound.
func (s *Store) GetQuota(ctx context.Context, key quota.Key) (*quota.Record, error) {
	rec := &quota.Record{Key: key}
	err := s.db.QueryRow(ctx, getSQL,
		key.TenantID, key.ProviderName, string(key.ProviderType), string(key.QuotaType),
	).Scan(&rec.Limit, &rec.Used)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, quota.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying quota: %w", err)
	}
	return rec, nil
}

// UpsertQuota creates the record or updates its limit, keeping usage.
func (s *Store) UpsertQuota(ctx context.Context, key quota.Key, limit int64) error {
	if _, err := s.db.Exec(ctx, upsertSQL,
		key.TenantID, key.ProviderName, string(key.ProviderType), string(key.QuotaType), limit,
	); err != nil {
		return fmt.Errorf("upserting quota: %w", err)
	}
	return nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}
