package cache

import (
	"sync"
	"sync/atomic"

	"github.com/pathbridge/pathbridge/pkg/types"
)

// ReadCacheSize is the slot count (spec 3: "256 slots").
const ReadCacheSize = 256

// ReadCacheMaxEntryBytes is the per-entry cap (spec 3: "Max individual
// entry size 4 MiB"); larger transformed buffers are never cached, so
// the cache's worst-case footprint is bounded at
// ReadCacheSize*ReadCacheMaxEntryBytes = 1 GiB (spec section 5).
const ReadCacheMaxEntryBytes = 4 * 1024 * 1024

// ReadCache holds fully transformed (to-container) copies of
// transformable files, keyed by backing path and the mtime they were
// produced from, evicted least-recently-used by a monotonic sequence
// number (spec 4.5).
type ReadCache struct {
	mu    sync.Mutex
	slots [ReadCacheSize]types.ReadCacheEntry
	occupied [ReadCacheSize]bool

	seq uint64

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewReadCache returns an empty ReadCache.
func NewReadCache() *ReadCache {
	return &ReadCache{}
}

// Put stores data for backingPath at (mtimeSec, mtimeNsec). Entries
// larger than ReadCacheMaxEntryBytes are silently not cached (callers
// still serve the transform result directly; only caching is skipped).
func (c *ReadCache) Put(backingPath string, mtimeSec, mtimeNsec int64, data []byte) {
	if len(data) > ReadCacheMaxEntryBytes {
		return
	}
	seq := atomic.AddUint64(&c.seq, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		if c.occupied[i] && c.slots[i].BackingPath == backingPath {
			c.slots[i] = types.ReadCacheEntry{
				BackingPath:     backingPath,
				MtimeSec:        mtimeSec,
				MtimeNsec:       mtimeNsec,
				TransformedData: data,
				Length:          int64(len(data)),
				LRUSequence:     seq,
			}
			return
		}
	}

	idx := c.leastRecentlyUsedSlotLocked()
	if c.occupied[idx] {
		c.evictions++
	}
	c.slots[idx] = types.ReadCacheEntry{
		BackingPath:     backingPath,
		MtimeSec:        mtimeSec,
		MtimeNsec:       mtimeNsec,
		TransformedData: data,
		Length:          int64(len(data)),
		LRUSequence:     seq,
	}
	c.occupied[idx] = true
}

// leastRecentlyUsedSlotLocked returns an empty slot if one exists,
// otherwise the occupied slot with the smallest LRUSequence. Caller
// holds c.mu.
func (c *ReadCache) leastRecentlyUsedSlotLocked() int {
	for i := range c.occupied {
		if !c.occupied[i] {
			return i
		}
	}
	lru := 0
	for i := 1; i < ReadCacheSize; i++ {
		if c.slots[i].LRUSequence < c.slots[lru].LRUSequence {
			lru = i
		}
	}
	return lru
}

// Get returns the cached transformed content for backingPath if present
// at exactly (mtimeSec, mtimeNsec); a mismatched mtime is a miss, not a
// stale hit (spec invariant: ReadCache entries are keyed by mtime).
func (c *ReadCache) Get(backingPath string, mtimeSec, mtimeNsec int64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		if !c.occupied[i] || c.slots[i].BackingPath != backingPath {
			continue
		}
		if c.slots[i].MtimeSec != mtimeSec || c.slots[i].MtimeNsec != mtimeNsec {
			c.occupied[i] = false
			c.misses++
			return nil, false
		}
		c.slots[i].LRUSequence = atomic.AddUint64(&c.seq, 1)
		c.hits++
		return c.slots[i].TransformedData, true
	}
	c.misses++
	return nil, false
}

// Length reports the cached transformed length for backingPath at the
// given mtime, used by get-attributes to override the reported size
// without performing file I/O (spec 4.3).
func (c *ReadCache) Length(backingPath string, mtimeSec, mtimeNsec int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if c.occupied[i] && c.slots[i].BackingPath == backingPath &&
			c.slots[i].MtimeSec == mtimeSec && c.slots[i].MtimeNsec == mtimeNsec {
			return c.slots[i].Length, true
		}
	}
	return 0, false
}

// Invalidate drops any entry for backingPath.
func (c *ReadCache) Invalidate(backingPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if c.occupied[i] && c.slots[i].BackingPath == backingPath {
			c.occupied[i] = false
		}
	}
}

// Stats returns a point-in-time snapshot of occupancy and counters.
func (c *ReadCache) Stats() types.CacheStats {
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
		Capacity:  ReadCacheSize,
	}
}

var _ types.Cache = (*ReadCache)(nil)
