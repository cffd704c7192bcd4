package cache

import (
	"sync"

	"github.com/pathbridge/pathbridge/pkg/types"
)

// NegCacheSize is the ring-buffer slot count (spec 3: "Ring-buffer of
// 64").
const NegCacheSize = 64

// NegCacheTTLSeconds is the TTL for a recorded ENOENT result.
const NegCacheTTLSeconds = 2

// NegCache records recent "does not exist" results for backing paths so
// that a repeated get-attributes lookup within the TTL window can skip
// the backing stat entirely (spec 4.3, testable property 5).
type NegCache struct {
	mu      sync.Mutex
	slots   [NegCacheSize]types.NegCacheEntry
	occupied [NegCacheSize]bool
	next    int

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewNegCache returns an empty NegCache.
func NewNegCache() *NegCache {
	return &NegCache{}
}

// Insert records path as ENOENT for NegCacheTTLSeconds from now,
// evicting the oldest slot round-robin if the ring is full.
func (c *NegCache) Insert(backingPath string) {
	now := MonotonicSeconds()
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		if c.occupied[i] && c.slots[i].BackingPath == backingPath {
			c.slots[i].ExpiresAtMonoSeconds = now + NegCacheTTLSeconds
			return
		}
	}

	idx := c.next
	if c.occupied[idx] {
		c.evictions++
	}
	c.slots[idx] = types.NegCacheEntry{
		BackingPath:          backingPath,
		ExpiresAtMonoSeconds: now + NegCacheTTLSeconds,
	}
	c.occupied[idx] = true
	c.next = (c.next + 1) % NegCacheSize
}

// Hit reports whether backingPath has a live (unexpired) ENOENT record.
func (c *NegCache) Hit(backingPath string) bool {
	now := MonotonicSeconds()
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		if !c.occupied[i] || c.slots[i].BackingPath != backingPath {
			continue
		}
		if c.slots[i].ExpiresAtMonoSeconds <= now {
			c.occupied[i] = false
			continue
		}
		c.hits++
		return true
	}
	c.misses++
	return false
}

// Invalidate drops any record for backingPath; called on write, unlink,
// rename, create, and other mutating operations affecting the path.
func (c *NegCache) Invalidate(backingPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if c.occupied[i] && c.slots[i].BackingPath == backingPath {
			c.occupied[i] = false
		}
	}
}

// Stats returns a point-in-time snapshot of occupancy and counters.
func (c *NegCache) Stats() types.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	size := 0
	for _, occ := range c.occupied {
		if occ {
			size++
		}
	}
	return types.CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      size,
		Capacity:  NegCacheSize,
	}
}

var _ types.Cache = (*NegCache)(nil)
