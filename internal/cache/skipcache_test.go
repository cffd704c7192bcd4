package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSkipCacheHitAtExactMtime(t *testing.T) {
	c := NewSkipCache()
	c.Insert("/src/a.json", 10, 5)
	assert.True(t, c.Hit("/src/a.json", 10, 5))
}

func TestSkipCacheMissOnMtimeChange(t *testing.T) {
	c := NewSkipCache()
	c.Insert("/src/a.json", 10, 5)
	assert.False(t, c.Hit("/src/a.json", 10, 6))
	// Once invalidated by mismatch, a second check at the old mtime is
	// also a miss: the record was dropped, not merely bypassed once.
	assert.False(t, c.Hit("/src/a.json", 10, 5))
}

func TestSkipCacheInvalidate(t *testing.T) {
	c := NewSkipCache()
	c.Insert("/src/a.json", 10, 5)
	c.Invalidate("/src/a.json")
	assert.False(t, c.Hit("/src/a.json", 10, 5))
}

func TestSkipCacheOverflowEvictsRoundRobin(t *testing.T) {
	c := NewSkipCache()
	for i := 0; i < SkipCacheSize+5; i++ {
		c.Insert(string(rune(i))+"-x", int64(i), 0)
	}
	stats := c.Stats()
	assert.Equal(t, SkipCacheSize, stats.Capacity)
	assert.GreaterOrEqual(t, stats.Evictions, uint64(1))
}
