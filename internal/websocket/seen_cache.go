package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	announceCacheSize = 1024
	announceCacheTTL  = 10 * time.Minute
)

// seenCache is a bounded TTL set of conversation ids a session has
// already been told about. Scoped per session so the set cannot grow
// with the lifetime of the process.
type seenCache struct {
	mu      sync.Mutex
	max     int
	ttl     time.Duration
	entries map[uuid.UUID]time.Time
	clock   func() time.Time
}

func newSeenCache(max int, ttl time.Duration) *seenCache {
	return &seenCache{
		max:     max,
		ttl:     ttl,
		entries: make(map[uuid.UUID]time.Time),
		clock:   time.Now,
	}
}

// Observe marks id as seen and reports whether this was its first
// sighting inside the TTL window.
func (c *seenCache) Observe(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	c.prune(now)

	if at, ok := c.entries[id]; ok && now.Sub(at) < c.ttl {
		return false
	}
	if len(c.entries) >= c.max {
		c.evictOldest()
	}
	c.entries[id] = now
	return true
}

func (c *seenCache) prune(now time.Time) {
	for id, at := range c.entries {
		if now.Sub(at) >= c.ttl {
			delete(c.entries, id)
		}
	}
}

func (c *seenCache) evictOldest() {
	var oldest uuid.UUID
	var oldestAt time.Time
	first := true
	for id, at := range c.entries {
		if first || at.Before(oldestAt) {
			oldest, oldestAt, first = id, at, false
		}
	}
	if !first {
		delete(c.entries, oldest)
	}
}
