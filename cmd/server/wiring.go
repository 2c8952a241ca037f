package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/mmbridge/pkg/auth"
	"github.com/rhuss/mmbridge/pkg/auth/apikey"
	"github.com/rhuss/mmbridge/pkg/auth/jwt"
	"github.com/rhuss/mmbridge/pkg/config"
	"github.com/rhuss/mmbridge/pkg/engine"
	"github.com/rhuss/mmbridge/pkg/events"
	"github.com/rhuss/mmbridge/pkg/provider/minimax"
	"github.com/rhuss/mmbridge/pkg/quota"
	"github.com/rhuss/mmbridge/pkg/storage/memory"
	"github.com/rhuss/mmbridge/pkg/storage/postgres"
	transporthttp "github.com/rhuss/mmbridge/pkg/transport/http"
)

// gateway is the assembled server with the resources it owns.
type gateway struct {
	server *transporthttp.Server
	store  quotaStore
	client *minimax.Client
}

// Close releases the provider and the store.
func (g *gateway) Close() error {
	g.client.Close()
	return g.store.Close()
}

// newGateway assembles the server from cfg.
func newGateway(ctx context.Context, cfg *config.Config) (*gateway, error) {
	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	if err := seedQuotas(ctx, store, cfg); err != nil {
		store.Close()
		return nil, fmt.Errorf("seeding quotas: %w", err)
	}

	dispatcher := events.NewDispatcher(slog.Default())
	dispatcher.Subscribe("quota", quota.NewHandler(store))

	client, err := minimax.New(minimaxConfig(cfg.MiniMax))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating minimax client: %w", err)
	}
	g := &gateway{store: store, client: client}

	eng, err := engine.New(client, dispatcher, cfg.Quota.ConfigLookup(), engine.Config{
		DefaultModel: cfg.MiniMax.DefaultModel,
	})
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	chain, err := newAuthChain(cfg.Auth)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("configuring authentication: %w", err)
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	g.server = transporthttp.NewServer(eng,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithMetricsPath(metricsPath),
		transporthttp.WithHTTPMiddleware(auth.Middleware(chain, newLimiter(cfg.Auth.RateLimit), auth.DefaultBypassEndpoints)),
		transporthttp.WithHealthCheck("storage", store),
	)
	return g, nil
}

// quotaStore is the storage surface the server needs.
type quotaStore interface {
	quota.Store
	HealthCheck(ctx context.Context) error
	Close() error
}

func newStore(ctx context.Context, cfg config.StorageConfig) (quotaStore, error) {
	switch cfg.Type {
	case "postgres":
		s, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		slog.Info("storage enabled", "type", "postgres", "migrate", cfg.Postgres.MigrateOnStart)
		return s, nil
	default:
		slog.Info("storage enabled", "type", "memory")
		return memory.New(), nil
	}
}

// seedQuotas creates a counter row for every system-provider quota
// configuration. Wildcard bindings are expanded to the tenants the server
// knows about: configured API key tenants and the anonymous tenant.
// Existing usage is kept; only limits are updated.
func seedQuotas(ctx context.Context, store quota.Store, cfg *config.Config) error {
	known := knownTenants(cfg.Auth)

	for _, b := range cfg.Quota.Providers {
		if b.UsingProviderType != quota.ProviderTypeSystem {
			continue
		}
		tenants := []string{b.Tenant}
		if b.Tenant == "" || b.Tenant == quota.AnyTenant {
			tenants = tenantsWithoutBinding(known, cfg.Quota.Providers, b.Provider)
		}
		for _, tenant := range tenants {
			for _, qc := range b.SystemConfiguration.QuotaConfigurations {
				key := quota.Key{
					TenantID:     tenant,
					ProviderName: b.Provider,
					ProviderType: quota.ProviderTypeSystem,
					QuotaType:    qc.QuotaType,
				}
				if err := store.UpsertQuota(ctx, key, qc.QuotaLimit); err != nil {
					return fmt.Errorf("tenant %q quota %q: %w", tenant, qc.QuotaType, err)
				}
				slog.Debug("quota seeded", "tenant", tenant, "provider", b.Provider,
					"quota_type", qc.QuotaType, "limit", qc.QuotaLimit)
			}
		}
	}
	return nil
}

func knownTenants(cfg config.AuthConfig) []string {
	seen := make(map[string]bool)
	var tenants []string
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			tenants = append(tenants, t)
		}
	}
	for _, k := range cfg.APIKeys {
		add(k.TenantID)
	}
	if cfg.Type == "none" {
		add(cfg.AnonymousTenant)
	}
	return tenants
}

// tenantsWithoutBinding filters out tenants that have their own binding for
// provider, since the wildcard does not apply to them.
func tenantsWithoutBinding(tenants []string, bindings []config.ProviderBinding, provider string) []string {
	explicit := make(map[string]bool)
	for _, b := range bindings {
		if b.Provider == provider && b.Tenant != "" && b.Tenant != quota.AnyTenant {
			explicit[b.Tenant] = true
		}
	}
	var out []string
	for _, t := range tenants {
		if !explicit[t] {
			out = append(out, t)
		}
	}
	return out
}

func minimaxConfig(cfg config.MiniMaxConfig) minimax.Config {
	mc := minimax.DefaultConfig()
	mc.BaseURL = cfg.BaseURL
	mc.APIKey = cfg.APIKey
	mc.GroupID = cfg.GroupID
	if cfg.Timeout > 0 {
		mc.Timeout = cfg.Timeout
	}
	if cfg.DefaultPrompt != "" {
		mc.DefaultPrompt = cfg.DefaultPrompt
	}
	return mc
}

func newAuthChain(cfg config.AuthConfig) (*auth.Chain, error) {
	chain := &auth.Chain{}

	switch cfg.Type {
	case "apikey":
		keys := make([]apikey.Key, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			keys = append(keys, apikey.Key{Key: k.Key, Subject: k.Subject, Tenant: k.TenantID, Tier: k.Tier})
		}
		chain.Authenticators = append(chain.Authenticators, apikey.New(keys))
	case "jwt":
		authn, err := jwt.New(jwt.Config{
			Secret:      []byte(cfg.JWT.Secret),
			Issuer:      cfg.JWT.Issuer,
			Audience:    cfg.JWT.Audience,
			TenantClaim: cfg.JWT.TenantClaim,
		})
		if err != nil {
			return nil, err
		}
		chain.Authenticators = append(chain.Authenticators, authn)
	default:
		chain.AllowAnonymous = true
		chain.AnonymousTenant = cfg.AnonymousTenant
	}
	return chain, nil
}

// newLimiter returns nil when no limit is configured.
func newLimiter(cfg config.RateLimitConfig) auth.RateLimiter {
	if cfg.DefaultRPM <= 0 && len(cfg.Tiers) == 0 {
		return nil
	}
	return auth.NewInProcessLimiter(cfg.Tiers, cfg.DefaultRPM)
}
