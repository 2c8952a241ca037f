package quota

import (
	"context"
	"fmt"

	"github.com/rhuss/mmbridge/pkg/debug"
	"github.com/rhuss/mmbridge/pkg/observability"
)

// Handler deducts system-managed quota for created messages.
type Handler struct {
	store Store
}

// NewHandler creates a Handler backed by store.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// HandleMessageCreated charges the quota for msg. It returns only storage
// errors; a custom provider, a missing quota configuration and an
// exhausted counter are skipped without error.
func (h *Handler) HandleMessageCreated(ctx context.Context, msg *Message, gen *GenerationContext) error {
	if msg == nil || gen == nil {
		return nil
	}

	provider := gen.Model.Provider
	cfg := gen.Model.Configuration
	if cfg.UsingProviderType != ProviderTypeSystem {
		debug.Log("quota", "skipping non-system provider",
			"tenant", gen.TenantID, "provider", provider, "type", cfg.UsingProviderType)
		return nil
	}

	sys := cfg.SystemConfiguration
	qc, ok := sys.Lookup(sys.CurrentQuotaType)
	if !ok {
		debug.Log("quota", "no quota configuration for current type",
			"tenant", gen.TenantID, "provider", provider, "quota_type", sys.CurrentQuotaType)
		observability.QuotaDeductionsTotal.WithLabelValues(provider, string(sys.CurrentQuotaType), observability.QuotaSkipped).Inc()
		return nil
	}

	used := Used(qc.QuotaUnit, msg)
	key := Key{
		TenantID:     gen.TenantID,
		ProviderName: provider,
		ProviderType: ProviderTypeSystem,
		QuotaType:    sys.CurrentQuotaType,
	}

	applied, err := h.store.DeductQuota(ctx, key, used)
	if err != nil {
		observability.QuotaDeductionsTotal.WithLabelValues(provider, string(key.QuotaType), observability.QuotaError).Inc()
		return fmt.Errorf("deducting %d %s from %s/%s quota: %w", used, qc.QuotaUnit, gen.TenantID, provider, err)
	}

	if !applied {
		debug.Log("quota", "quota exhausted or not provisioned",
			"tenant", gen.TenantID, "provider", provider, "quota_type", key.QuotaType, "message", msg.ID)
		observability.QuotaDeductionsTotal.WithLabelValues(provider, string(key.QuotaType), observability.QuotaExhausted).Inc()
		return nil
	}

	debug.Log("quota", "quota deducted",
		"tenant", gen.TenantID, "provider", provider, "quota_type", key.QuotaType,
		"used", used, "unit", qc.QuotaUnit, "message", msg.ID)
	observability.QuotaDeductionsTotal.WithLabelValues(provider, string(key.QuotaType), observability.QuotaApplied).Inc()
	return nil
}
