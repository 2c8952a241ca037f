// Package apikey authenticates bearer tokens against a static set of API
// keys. Keys are kept only as SHA-256 digests and compared in constant time.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/rhuss/mmbridge/pkg/auth"
)

// Key is one configured API key and the identity it grants.
type Key struct {
	Key     string
	Subject string
	Tenant  string
	Tier    string
}

type entry struct {
	digest   [sha256.Size]byte
	identity auth.Identity
}

// Authenticator validates bearer tokens against configured keys.
type Authenticator struct {
	entries []entry
}

// New hashes keys immediately; plaintext keys are not retained. A key
// without a subject uses its tenant as the subject.
func New(keys []Key) *Authenticator {
	a := &Authenticator{entries: make([]entry, 0, len(keys))}
	for _, k := range keys {
		subject := k.Subject
		if subject == "" {
			subject = k.Tenant
		}
		a.entries = append(a.entries, entry{
			digest:   sha256.Sum256([]byte(k.Key)),
			identity: auth.Identity{Subject: subject, Tenant: k.Tenant, Tier: k.Tier},
		})
	}
	return a
}

// Authenticate returns Abstain without a bearer token, No for an unknown
// or empty token, and Yes with a copy of the key's identity otherwise.
// Every configured key is compared so timing does not reveal which matched.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	token, ok := auth.BearerToken(r)
	if !ok {
		return auth.Result{Decision: auth.Abstain}
	}
	if token == "" {
		return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	digest := sha256.Sum256([]byte(token))
	match := -1
	for i := range a.entries {
		if subtle.ConstantTimeCompare(digest[:], a.entries[i].digest[:]) == 1 && match < 0 {
			match = i
		}
	}
	if match < 0 {
		return auth.Result{Decision: auth.No, Err: auth.ErrInvalidCredentials}
	}

	id := a.entries[match].identity
	return auth.Result{Decision: auth.Yes, Identity: &id}
}
