// Package storage holds helpers shared by the quota store adapters.
//
// Adapters (memory, postgres) implement quota.Store. The tenant helpers
// carry the authenticated tenant from the auth middleware down to the
// engine, which uses it to scope quota deduction.
package storage
