package postgres

import (
	"errors"
	"time"
)

// Config holds the connection settings of the quota store.
type Config struct {
	// DSN is the PostgreSQL connection string. Required.
	DSN string

	// MaxConns caps the pool. Quota updates are short single-statement
	// transactions, so a small pool suffices (default: 10).
	MaxConns int32

	// MinConns keeps idle connections warm (default: 1).
	MinConns int32

	// MaxConnLifetime recycles connections (default: 5 minutes).
	MaxConnLifetime time.Duration

	// HealthCheckPeriod is how often the pool probes idle connections
	// (default: 1 minute).
	HealthCheckPeriod time.Duration

	// MigrateOnStart applies the embedded migrations in New.
	MigrateOnStart bool
}

func (c *Config) validate() error {
	if c.DSN == "" {
		return errors.New("postgres: DSN is required")
	}
	if c.MaxConns < 0 || c.MinConns < 0 {
		return errors.New("postgres: connection counts must not be negative")
	}
	if c.MaxConns != 0 && c.MinConns > c.MaxConns {
		return errors.New("postgres: MinConns exceeds MaxConns")
	}
	return nil
}

func (c *Config) defaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MinConns == 0 {
		c.MinConns = 1
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = 5 * time.Minute
	}
	if c.HealthCheckPeriod == 0 {
		c.HealthCheckPeriod = time.Minute
	}
}
