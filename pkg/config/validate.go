package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error
	addf := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		addf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxBodySize <= 0 {
		addf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize)
	}

	if c.MiniMax.BaseURL == "" {
		addf("minimax.base_url is required")
	}
	if c.MiniMax.APIKey == "" && c.MiniMax.APIKeyFile == "" {
		addf("minimax.api_key or minimax.api_key_file is required")
	}
	if c.MiniMax.GroupID == "" {
		addf("minimax.group_id is required")
	}
	if c.MiniMax.Timeout < 0 {
		addf("minimax.timeout must not be negative, got %s", c.MiniMax.Timeout)
	}

	switch c.Storage.Type {
	case "memory":
	case "postgres":
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			addf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\"")
		}
	default:
		addf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type)
	}

	switch c.Auth.Type {
	case "none":
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			addf("auth.api_keys must not be empty when auth.type is \"apikey\"")
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" && k.KeyFile == "" {
				addf("auth.api_keys[%d]: key or key_file is required", i)
			}
		}
	case "jwt":
		if c.Auth.JWT.Secret == "" && c.Auth.JWT.SecretFile == "" {
			addf("auth.jwt.secret or auth.jwt.secret_file is required when auth.type is \"jwt\"")
		}
	default:
		addf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type)
	}

	for i, b := range c.Quota.Providers {
		errs = append(errs, validateBinding(fmt.Sprintf("quota.providers[%d]", i), b)...)
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		addf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		addf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}

	return errors.Join(errs...)
}

func validateBinding(path string, b ProviderBinding) []error {
	var errs []error
	if !b.UsingProviderType.Valid() {
		errs = append(errs, fmt.Errorf("%s.using_provider_type must be \"system\" or \"custom\", got %q", path, b.UsingProviderType))
	}

	sys := b.SystemConfiguration
	for j, qc := range sys.QuotaConfigurations {
		if !qc.QuotaUnit.Valid() {
			errs = append(errs, fmt.Errorf("%s.system_configuration.quota_configurations[%d].quota_unit must be \"tokens\", \"times\" or \"count\", got %q", path, j, qc.QuotaUnit))
		}
		if qc.QuotaType == "" {
			errs = append(errs, fmt.Errorf("%s.system_configuration.quota_configurations[%d].quota_type is required", path, j))
		}
		if qc.QuotaLimit < 0 {
			errs = append(errs, fmt.Errorf("%s.system_configuration.quota_configurations[%d].quota_limit must not be negative", path, j))
		}
	}
	return errs
}
