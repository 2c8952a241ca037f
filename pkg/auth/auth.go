package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Decision is the outcome of one authenticator's vote.
type Decision int

const (
	// Yes means credentials are valid. The chain stops and the identity is used.
	Yes Decision = iota

	// No means credentials are present but invalid. The chain stops and the
	// request is rejected.
	No

	// Abstain means this authenticator cannot judge the credentials.
	// The chain continues to the next authenticator.
	Abstain
)

// Result carries the outcome of an authentication attempt.
type Result struct {
	Decision Decision
	Identity *Identity // set only when Decision == Yes
	Err      error     // set only when Decision == No
}

// Identity represents an authenticated caller.
type Identity struct {
	// Subject is the unique caller identifier (required, non-empty).
	Subject string

	// Tenant scopes quota accounting. Empty means the default tenant.
	Tenant string

	// Tier selects the rate limit.
	Tier string

	// Scopes lists the authorization scopes granted.
	Scopes []string
}

// TenantID returns the identity's tenant, or empty string for nil.
func (id *Identity) TenantID() string {
	if id == nil {
		return ""
	}
	return id.Tenant
}

// Authenticator examines request credentials and returns a three-outcome vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// Sentinel errors.
var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

// AnonymousSubject is the subject of identities admitted without credentials.
const AnonymousSubject = "anonymous"

// Chain evaluates authenticators in order.
type Chain struct {
	// Authenticators are evaluated left to right.
	Authenticators []Authenticator

	// AllowAnonymous admits requests on which every authenticator abstained.
	AllowAnonymous bool

	// AnonymousTenant is the tenant given to anonymous identities.
	AnonymousTenant string
}

// Authenticate runs the chain. It stops on the first Yes or No.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, authn := range c.Authenticators {
		result := authn.Authenticate(ctx, r)
		if result.Decision != Abstain {
			return result
		}
	}

	if c.AllowAnonymous {
		return Result{
			Decision: Yes,
			Identity: &Identity{Subject: AnonymousSubject, Tenant: c.AnonymousTenant, Tier: DefaultTier},
		}
	}
	return Result{Decision: No, Err: ErrUnauthenticated}
}

// BearerToken returns the token of a "Bearer" Authorization header. ok is
// false when the header is missing or uses another scheme.
func BearerToken(r *http.Request) (token string, ok bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}
