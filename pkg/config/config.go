// Package config provides unified configuration for the mmbridge gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. .env file (never overriding variables already set)
//  4. Environment variable overrides (MMBRIDGE_ prefix)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import (
	"time"

	"github.com/rhuss/mmbridge/pkg/quota"
)

// Config holds all configuration for the mmbridge gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	MiniMax       MiniMaxConfig       `yaml:"minimax"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Quota         QuotaConfig         `yaml:"quota"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MiB
}

// MiniMaxConfig holds the upstream MiniMax settings.
type MiniMaxConfig struct {
	BaseURL       string        `yaml:"base_url"` // default: https://api.minimax.chat
	APIKey        string        `yaml:"api_key"`
	APIKeyFile    string        `yaml:"api_key_file"` // _file variant for api_key
	GroupID       string        `yaml:"group_id"`
	Timeout       time.Duration `yaml:"timeout"`       // default: 10s
	DefaultModel  string        `yaml:"default_model"` // default: abab5.5-chat
	DefaultPrompt string        `yaml:"default_prompt"`
}

// StorageConfig selects where quota counters live.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type      string          `yaml:"type"`     // "none", "apikey", or "jwt", default: "none"
	APIKeys   []APIKeyConfig  `yaml:"api_keys"` // entries for type=apikey
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// AnonymousTenant is the tenant of unauthenticated callers when
	// type is "none".
	AnonymousTenant string `yaml:"anonymous_tenant"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key      string `yaml:"key" json:"key"`
	KeyFile  string `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject  string `yaml:"subject" json:"subject"`
	TenantID string `yaml:"tenant_id" json:"tenant_id"`
	Tier     string `yaml:"tier" json:"tier"`
}

// JWTConfig holds HMAC JWT validation settings.
type JWTConfig struct {
	Secret      string `yaml:"secret"`
	SecretFile  string `yaml:"secret_file"` // _file variant for secret
	Issuer      string `yaml:"issuer"`
	Audience    string `yaml:"audience"`
	TenantClaim string `yaml:"tenant_claim"` // default: tenant_id
}

// RateLimitConfig holds per-tier request limits. Zero disables limiting.
type RateLimitConfig struct {
	DefaultRPM int            `yaml:"default_rpm"`
	Tiers      map[string]int `yaml:"tiers"`
}

// QuotaConfig binds tenants to provider quota configurations.
type QuotaConfig struct {
	Providers []ProviderBinding `yaml:"providers"`
}

// ProviderBinding is one tenant's configuration for one provider. A tenant
// of "*" or empty applies to every tenant without its own binding.
type ProviderBinding struct {
	Tenant   string `yaml:"tenant"`
	Provider string `yaml:"provider"` // default: minimax

	quota.ProviderConfiguration `yaml:",inline"`
}

// ConfigLookup builds the tenant/provider lookup the engine consults when
// it publishes a created message.
func (q QuotaConfig) ConfigLookup() *quota.StaticConfigLookup {
	l := quota.NewStaticConfigLookup()
	for _, b := range q.Providers {
		l.Set(b.Tenant, b.Provider, b.ProviderConfiguration)
	}
	return l
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig configures the process logger. MMBRIDGE_LOG_LEVEL,
// MMBRIDGE_LOG_FORMAT and MMBRIDGE_DEBUG take precedence at runtime.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // ERROR, WARN, INFO, DEBUG, TRACE; default: INFO
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     10 << 20,
		},
		MiniMax: MiniMaxConfig{
			BaseURL:      "https://api.minimax.chat",
			Timeout:      10 * time.Second,
			DefaultModel: "abab5.5-chat",
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns:       10,
				MigrateOnStart: true,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
