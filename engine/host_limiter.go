package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostIdleTTL is how long an unused host keeps its limiter.
const hostIdleTTL = 10 * time.Minute

type hostEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// HostLimiter throttles outbound fetches per host with a token bucket each.
// Requests to different hosts never wait on one another. Hosts idle for
// longer than the idle TTL are evicted while new requests arrive.
type HostLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*hostEntry
	rps       float64
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewHostLimiter returns a limiter allowing rps requests per second per
// host with a burst of 1. A non-positive rps returns nil, which never waits.
func NewHostLimiter(rps float64) *HostLimiter {
	if rps <= 0 {
		return nil
	}
	return &HostLimiter{
		limiters:  make(map[string]*hostEntry),
		rps:       rps,
		idle:      hostIdleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Wait blocks until a request to host is allowed or ctx is done.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}
	entry, ok := l.limiters[host]
	if !ok {
		entry = &hostEntry{limiter: rate.NewLimiter(rate.Limit(l.rps), 1)}
		l.limiters[host] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	return entry.limiter.Wait(ctx)
}

// Len returns the number of hosts currently tracked.
func (l *HostLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// sweep drops hosts not seen within the idle TTL. Callers hold l.mu.
func (l *HostLimiter) sweep(now time.Time) {
	cutoff := now.Add(-l.idle)
	for host, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, host)
		}
	}
	l.lastSweep = now
}
