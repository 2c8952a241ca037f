package quota

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetQuota when no record matches the key.
var ErrNotFound = errors.New("quota record not found")

// Key identifies one quota counter.
type Key struct {
	TenantID     string
	ProviderName string
	ProviderType ProviderType
	QuotaType    QuotaType
}

// Record is the persisted state of a quota counter.
type Record struct {
	Key
	Limit int64
	Used  int64
}

// Remaining returns how much quota is left, never below zero.
func (r *Record) Remaining() int64 {
	if r.Used >= r.Limit {
		return 0
	}
	return r.Limit - r.Used
}

// Store persists quota counters.
type Store interface {
	// DeductQuota adds amount to the used counter of the record matching key,
	// but only while used is still below the limit. It reports whether a
	// record was updated. An exhausted or missing record is not an error.
	DeductQuota(ctx context.Context, key Key, amount int64) (bool, error)

	// GetQuota returns the record for key or ErrNotFound.
	GetQuota(ctx context.Context, key Key) (*Record, error)

	// UpsertQuota creates the record or updates its limit, keeping usage.
	UpsertQuota(ctx context.Context, key Key, limit int64) error
}
