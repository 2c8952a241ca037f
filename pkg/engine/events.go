package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rhuss/mmbridge/pkg/api"
	"github.com/rhuss/mmbridge/pkg/events"
	"github.com/rhuss/mmbridge/pkg/quota"
	"github.com/rhuss/mmbridge/pkg/storage"
)

// Publisher receives MessageCreated events. *events.Dispatcher implements it.
type Publisher interface {
	Publish(ctx context.Context, evt events.MessageCreated)
}

// publishCreated announces a completed assistant message. Handlers run on a
// context detached from the request so a client disconnect right after the
// last chunk does not abort quota accounting.
func (e *Engine) publishCreated(ctx context.Context, id, model string, usage *api.Usage) {
	if e.publisher == nil {
		return
	}

	msg := &quota.Message{ID: id}
	if usage != nil {
		msg.MessageTokens = usage.CompletionTokens
		msg.PromptTokens = usage.PromptTokens
	}

	tenant := storage.GetTenant(ctx)
	gen := &quota.GenerationContext{
		TenantID: tenant,
		Model: quota.ModelConfig{
			Provider:      e.provider.Name(),
			Model:         model,
			Configuration: e.providerConfiguration(ctx, tenant),
		},
	}

	e.publisher.Publish(context.WithoutCancel(ctx), events.MessageCreated{Message: msg, Generation: gen})
}

// providerConfiguration resolves the tenant's binding for this provider. A
// missing binding yields the zero configuration, which handlers treat as
// "nothing to account".
func (e *Engine) providerConfiguration(ctx context.Context, tenant string) quota.ProviderConfiguration {
	if e.lookup == nil {
		return quota.ProviderConfiguration{}
	}
	cfg, err := e.lookup.Lookup(ctx, tenant, e.provider.Name())
	if err != nil {
		if !errors.Is(err, quota.ErrNoConfiguration) {
			slog.WarnContext(ctx, "provider configuration lookup failed",
				"tenant", tenant, "provider", e.provider.Name(), "error", err)
		}
		return quota.ProviderConfiguration{}
	}
	return cfg
}
