package quota

import (
	"context"
	"errors"
)

// ErrNoConfiguration is returned by a ConfigLookup when the tenant has no
// binding for the provider.
var ErrNoConfiguration = errors.New("no provider configuration")

// AnyTenant is the tenant key that matches every tenant without its own entry.
const AnyTenant = "*"

// ConfigLookup resolves a tenant's configuration for a provider.
type ConfigLookup interface {
	Lookup(ctx context.Context, tenantID, provider string) (ProviderConfiguration, error)
}

// StaticConfigLookup is a ConfigLookup over a fixed tenant → provider map.
// Entries under AnyTenant apply to tenants without a specific entry.
type StaticConfigLookup struct {
	entries map[string]map[string]ProviderConfiguration
}

// NewStaticConfigLookup creates an empty lookup.
func NewStaticConfigLookup() *StaticConfigLookup {
	return &StaticConfigLookup{entries: make(map[string]map[string]ProviderConfiguration)}
}

// Set registers cfg for tenant and provider. Not safe for use concurrently
// with Lookup; populate before serving.
func (l *StaticConfigLookup) Set(tenantID, provider string, cfg ProviderConfiguration) {
	if tenantID == "" {
		tenantID = AnyTenant
	}
	byProvider, ok := l.entries[tenantID]
	if !ok {
		byProvider = make(map[string]ProviderConfiguration)
		l.entries[tenantID] = byProvider
	}
	byProvider[provider] = cfg
}

// Lookup returns the configuration for tenant and provider, falling back to
// the AnyTenant entry.
func (l *StaticConfigLookup) Lookup(_ context.Context, tenantID, provider string) (ProviderConfiguration, error) {
	if cfg, ok := l.entries[tenantID][provider]; ok {
		return cfg, nil
	}
	if cfg, ok := l.entries[AnyTenant][provider]; ok {
		return cfg, nil
	}
	return ProviderConfiguration{}, ErrNoConfiguration
}
