package cache

import (
	"sync"

	"github.com/pathbridge/pathbridge/pkg/types"
)

// SkipCacheSize is the slot count (spec 3: "512 slots").
const SkipCacheSize = 512

// SkipCache records that a file, at a given mtime, contains no
// translatable mapping signature and can be served by plain passthrough
// (spec 4.2's quick-scan heuristic, spec 4.3's read path miss handling).
// Eviction is round-robin, matching NegCache.
type SkipCache struct {
	mu       sync.Mutex
	slots    [SkipCacheSize]types.SkipCacheEntry
	occupied [SkipCacheSize]bool
	next     int

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewSkipCache returns an empty SkipCache.
func NewSkipCache() *SkipCache {
	return &SkipCache{}
}

// Insert records that backingPath needs no transform at the given mtime.
func (c *SkipCache) Insert(backingPath string, mtimeSec, mtimeNsec int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		if c.occupied[i] && c.slots[i].BackingPath == backingPath {
			c.slots[i].MtimeSec = mtimeSec
			c.slots[i].MtimeNsec = mtimeNsec
			return
		}
	}

	idx := c.next
	if c.occupied[idx] {
		c.evictions++
	}
	c.slots[idx] = types.SkipCacheEntry{
		BackingPath: backingPath,
		MtimeSec:    mtimeSec,
		MtimeNsec:   mtimeNsec,
	}
	c.occupied[idx] = true
	c.next = (c.next + 1) % SkipCacheSize
}

// Hit reports whether backingPath is recorded skippable at exactly the
// given mtime. A mismatched mtime is treated as a miss, never a stale
// hit: spec 3's invariant "a hit implies the stored content was
// produced from the file at that mtime" applies equally to the
// no-transform-needed record.
func (c *SkipCache) Hit(backingPath string, mtimeSec, mtimeNsec int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		if !c.occupied[i] || c.slots[i].BackingPath != backingPath {
			continue
		}
		if c.slots[i].MtimeSec == mtimeSec && c.slots[i].MtimeNsec == mtimeNsec {
			c.hits++
			return true
		}
		c.occupied[i] = false
		c.misses++
		return false
	}
	c.misses++
	return false
}

// Invalidate drops any record for backingPath.
func (c *SkipCache) Invalidate(backingPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if c.occupied[i] && c.slots[i].BackingPath == backingPath {
			c.occupied[i] = false
		}
	}
}

// Stats returns a point-in-time snapshot of occupancy and counters.
func (c *SkipCache) Stats() types.CacheStats {
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
		Capacity:  SkipCacheSize,
	}
}

var _ types.Cache = (*SkipCache)(nil)
