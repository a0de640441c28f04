package assistant

import (
	"sync"
	"time"
)

// Cache keeps assembled snapshots for a bounded time, keyed by organization.
// Entries are never served past their TTL. Concurrent rebuilds for the same
// organization are allowed; last writer wins, which is harmless because a
// rebuild is an idempotent read.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	snap      *Snapshot
	expiresAt time.Time
}

// NewCache creates a Cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached snapshot for the organization if it is fresh and
// structurally valid. An expired or malformed entry is dropped and reported
// as a miss so the caller rebuilds.
func (c *Cache) Get(orgID string) (*Snapshot, bool) {
	c.mu.RLock()
	e, ok := c.entries[orgID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) || !e.snap.valid() {
		c.mu.Lock()
		delete(c.entries, orgID)
		c.mu.Unlock()
		return nil, false
	}
	return e.snap, true
}

// Put stores a snapshot, replacing any existing entry for the organization.
func (c *Cache) Put(orgID string, snap *Snapshot) {
	c.mu.Lock()
	c.entries[orgID] = cacheEntry{snap: snap, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops the entry for one organization, if present.
func (c *Cache) Invalidate(orgID string) {
	c.mu.Lock()
	delete(c.entries, orgID)
	c.mu.Unlock()
}

// Len reports the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
