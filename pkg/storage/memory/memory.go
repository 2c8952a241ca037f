// Package memory provides an in-memory quota.Store for tests and
// single-process deployments. Counters are lost when the process restarts.
package memory

import (
	"context"
	"sync"

	"github.com/rhuss/mmbridge/pkg/debug"
	"github.com/rhuss/mmbridge/pkg/quota"
)

// Store is an in-memory quota.Store.
type Store struct {
	mu      sync.RWMutex
	records map[quota.Key]*quota.Record
}

// Ensure Store implements quota.Store at compile time.
var _ quota.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{records: make(map[quota.Key]*quota.Record)}
}

// DeductQuota adds amount to the matching record while its usage is below
// the limit. The check and the increment happen under one lock.
func (s *Store) DeductQuota(_ context.Context, key quota.Key, amount int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.Used >= rec.Limit {
		return false, nil
	}
	rec.Used += amount

	debug.Log("storage", "memory quota deducted",
		"tenant", key.TenantID, "provider", key.ProviderName, "used", rec.Used, "limit", rec.Limit)
	return true, nil
}

// GetQuota returns a copy of the record for key.
func (s *Store) GetQuota(_ context.Context, key quota.Key) (*quota.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, quota.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// UpsertQuota creates the record or updates its limit, keeping usage.
func (s *Store) UpsertQuota(_ context.Context, key quota.Key, limit int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok {
		rec.Limit = limit
		return nil
	}
	s.records[key] = &quota.Record{Key: key, Limit: limit}
	return nil
}

// HealthCheck always succeeds.
func (s *Store) HealthCheck(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
