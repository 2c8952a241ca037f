package auth

import (
	"context"
	"sync"
	"time"
)

// DefaultTier is assumed for identities without a tier.
const DefaultTier = "default"

// RateLimiter decides whether an identity may make another request.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// InProcessLimiter is a fixed-window limiter keyed by tenant and subject.
// Counters live in memory and are not shared between replicas.
type InProcessLimiter struct {
	tiers      map[string]int // tier -> requests per minute
	defaultRPM int
	window     time.Duration
	now        func() time.Time

	mu        sync.Mutex
	counters  map[string]*window
	lastSweep time.Time
}

type window struct {
	count   int
	startAt time.Time
}

// NewInProcessLimiter creates a limiter. tiers maps a tier name to its
// requests per minute; tiers not listed get defaultRPM. A limit of zero or
// less disables limiting for that tier.
func NewInProcessLimiter(tiers map[string]int, defaultRPM int) *InProcessLimiter {
	return &InProcessLimiter{
		tiers:      tiers,
		defaultRPM: defaultRPM,
		window:     time.Minute,
		now:        time.Now,
		counters:   make(map[string]*window),
	}
}

// Allow returns ErrRateLimited once the identity exceeds its tier's limit
// within the current window.
func (l *InProcessLimiter) Allow(_ context.Context, id *Identity) error {
	tier := tierOf(id)
	rpm := l.defaultRPM
	if n, ok := l.tiers[tier]; ok {
		rpm = n
	}
	if rpm <= 0 {
		return nil
	}

	key := id.Tenant + "/" + id.Subject + "/" + tier

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, ok := l.counters[key]
	if !ok || now.Sub(w.startAt) >= l.window {
		l.counters[key] = &window{count: 1, startAt: now}
		return nil
	}

	w.count++
	if w.count > rpm {
		return ErrRateLimited
	}
	return nil
}

// sweep drops expired windows at most once per window length so idle
// callers do not accumulate. Must be called with mu held.
func (l *InProcessLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for k, w := range l.counters {
		if now.Sub(w.startAt) >= l.window {
			delete(l.counters, k)
		}
	}
	l.lastSweep = now
}

func tierOf(id *Identity) string {
	if id.Tier == "" {
		return DefaultTier
	}
	return id.Tier
}
