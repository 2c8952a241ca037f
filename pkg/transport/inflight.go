package transport

import (
	"context"
	"sync"
)

// InFlightRegistry maps the message IDs of running streams to their cancel
// functions so that DELETE /v1/chat/messages/{id} can stop them.
// Safe for concurrent use.
type InFlightRegistry struct {
	mu      sync.Mutex
	entries map[string]context.CancelFunc
}

// NewInFlightRegistry creates a new empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{entries: make(map[string]context.CancelFunc)}
}

// Register records cancel under id and returns a release function that
// removes the entry without cancelling. Registering an id twice replaces
// the earlier entry.
func (r *InFlightRegistry) Register(id string, cancel context.CancelFunc) (release func()) {
	r.mu.Lock()
	r.entries[id] = cancel
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.entries, id)
	}
}

// Cancel stops the stream registered under id and forgets it. It reports
// whether id was registered.
func (r *InFlightRegistry) Cancel(id string) bool {
	r.mu.Lock()
	cancel, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// Len returns the number of running streams.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
