package engine

import (
	"sync"
	"time"
)

type domainEntry struct {
	engineName string
	expiresAt  time.Time
}

// DomainMemory remembers which engine last won the race for each host so
// later requests skip straight to it. Entries expire after the TTL.
type DomainMemory struct {
	mu      sync.RWMutex
	entries map[string]domainEntry
	ttl     time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewDomainMemory creates a DomainMemory and starts a goroutine that prunes
// expired entries every interval (an hour when interval <= 0).
func NewDomainMemory(ttl, interval time.Duration) *DomainMemory {
	if interval <= 0 {
		interval = time.Hour
	}
	dm := &DomainMemory{
		entries: make(map[string]domainEntry),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go dm.cleanupLoop(interval)
	return dm
}

// Get returns the remembered engine for domain, or "" when unknown or expired.
// A nil DomainMemory remembers nothing.
func (dm *DomainMemory) Get(domain string) string {
	if dm == nil {
		return ""
	}
	dm.mu.RLock()
	entry, ok := dm.entries[domain]
	dm.mu.RUnlock()
	if !ok || dm.now().After(entry.expiresAt) {
		return ""
	}
	return entry.engineName
}

// Set records which engine succeeded for domain.
func (dm *DomainMemory) Set(domain, engineName string) {
	if dm == nil || dm.ttl <= 0 {
		return
	}
	dm.mu.Lock()
	dm.entries[domain] = domainEntry{engineName: engineName, expiresAt: dm.now().Add(dm.ttl)}
	dm.mu.Unlock()
}

// Delete forgets domain, e.g. after the remembered engine fails.
func (dm *DomainMemory) Delete(domain string) {
	if dm == nil {
		return
	}
	dm.mu.Lock()
	delete(dm.entries, domain)
	dm.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (dm *DomainMemory) Len() int {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return len(dm.entries)
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (dm *DomainMemory) Stop() {
	dm.once.Do(func() { close(dm.done) })
}

func (dm *DomainMemory) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-dm.done:
			return
		case <-ticker.C:
			dm.prune()
		}
	}
}

func (dm *DomainMemory) prune() {
	now := dm.now()
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for domain, entry := range dm.entries {
		if now.After(entry.expiresAt) {
			delete(dm.entries, domain)
		}
	}
}
