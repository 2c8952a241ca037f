package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rhuss/mmbridge/pkg/api"
	"github.com/rhuss/mmbridge/pkg/debug"
	"github.com/rhuss/mmbridge/pkg/observability"
	"github.com/rhuss/mmbridge/pkg/storage"
	"github.com/rhuss/mmbridge/pkg/transport"
)

// Middleware creates HTTP middleware from a Chain and an optional
// RateLimiter. Paths in bypass skip authentication.
func Middleware(chain *Chain, limiter RateLimiter, bypass []string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(bypass))
	for _, ep := range bypass {
		skip[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)
			if result.Decision != Yes || result.Identity == nil {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				transport.WriteAPIError(w, rejection(result.Err))
				return
			}

			id := result.Identity
			if id.Subject == "" {
				slog.Error("authenticator returned identity with empty subject")
				transport.WriteAPIError(w, api.NewServerError("internal authentication error"))
				return
			}

			debug.Log("auth", "authenticated", "subject", id.Subject, "tenant", id.Tenant, "path", r.URL.Path)

			if limiter != nil {
				if err := limiter.Allow(r.Context(), id); err != nil {
					tier := tierOf(id)
					slog.Warn("rate limit exceeded", "subject", id.Subject, "tier", tier)
					observability.RateLimitRejectedTotal.WithLabelValues(tier).Inc()
					transport.WriteAPIError(w, api.NewRateLimitReachedError("rate limit exceeded for tier "+tier))
					return
				}
			}

			ctx := SetIdentity(r.Context(), id)
			if tenant := id.TenantID(); tenant != "" {
				ctx = storage.SetTenant(ctx, tenant)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rejection maps an authentication failure to the API error sent to the
// client. Bad keys get invalid_api_key; everything else is reported as
// invalid_authentication.
func rejection(err error) *api.APIError {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, ErrInvalidCredentials):
		return api.NewInvalidAPIKeyError("invalid API key")
	default:
		return api.NewInvalidAuthenticationError("authentication required")
	}
}

// DefaultBypassEndpoints lists endpoints that skip authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/metrics"}
