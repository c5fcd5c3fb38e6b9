// Package cache provides a bounded in-memory TTL store.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	createdAt time.Time
}

// Store is a simple in-memory key/value store whose entries expire after a
// fixed TTL. It is safe for concurrent use.
type Store[V any] struct {
	mu         sync.RWMutex
	store      map[string]*entry[V]
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	done       chan struct{}
	once       sync.Once
}

// New creates a Store holding at most maxEntries values for ttl each.
// A background goroutine evicts expired entries every cleanup interval
// (ttl/4, at least one second) until Close is called.
func New[V any](maxEntries int, ttl time.Duration) *Store[V] {
	s := &Store[V]{
		store:      make(map[string]*entry[V]),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		done:       make(chan struct{}),
	}

	go s.cleanupLoop(max(ttl/4, time.Second))
	return s
}

// Get returns the value for key if present and not expired.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	e, ok := s.store[key]
	s.mu.RUnlock()

	if !ok || s.expired(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, resetting its age. If the store is at
// capacity, the oldest entry is evicted to make room.
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.store[key]; !exists && s.maxEntries > 0 && len(s.store) >= s.maxEntries {
		s.evictOldest()
	}
	s.store[key] = &entry[V]{value: value, createdAt: s.now()}
}

// Update applies fn to the stored value under the write lock. It reports
// false if key is missing or expired. The entry's age is not reset.
func (s *Store[V]) Update(key string, fn func(V) V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.store[key]
	if !ok || s.expired(e) {
		return false
	}
	e.value = fn(e.value)
	return true
}

// Delete removes key.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	delete(s.store, key)
	s.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet
// evicted.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.store)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *Store[V]) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Store[V]) expired(e *entry[V]) bool {
	return s.ttl > 0 && s.now().Sub(e.createdAt) > s.ttl
}

// evictOldest must be called with mu held.
func (s *Store[V]) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range s.store {
		if oldestKey == "" || e.createdAt.Before(oldest) {
			oldestKey, oldest = k, e.createdAt
		}
	}
	delete(s.store, oldestKey)
}

func (s *Store[V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *Store[V]) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.store {
		if s.expired(e) {
			delete(s.store, k)
		}
	}
}
