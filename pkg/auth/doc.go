// Package auth authenticates callers of the chat API and scopes each request
// to a tenant.
//
// Authenticators vote in a chain: Yes (identity found), No (credentials
// invalid), or Abstain (credentials not theirs to judge). When every
// authenticator abstains the chain either admits an anonymous identity or
// rejects the request.
//
// Middleware runs the chain, enforces per-tier rate limits, and stores the
// identity and its tenant in the request context, where quota accounting
// picks the tenant up.
package auth
