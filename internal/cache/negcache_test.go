package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNegCacheHitWithinTTL(t *testing.T) {
	now := int64(100)
	orig := MonotonicSeconds
	MonotonicSeconds = func() int64 { return now }
	defer func() { MonotonicSeconds = orig }()

	c := NewNegCache()
	c.Insert("/src/missing.json")
	assert.True(t, c.Hit("/src/missing.json"))

	now += NegCacheTTLSeconds - 1
	assert.True(t, c.Hit("/src/missing.json"))
}

func TestNegCacheExpiresAfterTTL(t *testing.T) {
	now := int64(100)
	orig := MonotonicSeconds
	MonotonicSeconds = func() int64 { return now }
	defer func() { MonotonicSeconds = orig }()

	c := NewNegCache()
	c.Insert("/src/missing.json")
	now += NegCacheTTLSeconds + 1
	assert.False(t, c.Hit("/src/missing.json"))
}

func TestNegCacheInvalidate(t *testing.T) {
	c := NewNegCache()
	c.Insert("/src/a.json")
	c.Invalidate("/src/a.json")
	assert.False(t, c.Hit("/src/a.json"))
}

func TestNegCacheEvictsOldestOnOverflow(t *testing.T) {
	c := NewNegCache()
	for i := 0; i < NegCacheSize+1; i++ {
		c.Insert(fmt.Sprintf("/src/%d-overflow", i))
	}
	stats := c.Stats()
	assert.Equal(t, NegCacheSize, stats.Capacity)
	assert.LessOrEqual(t, stats.Size, NegCacheSize)
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.False(t, c.Hit("/src/0-overflow"))
	assert.True(t, c.Hit(fmt.Sprintf("/src/%d-overflow", NegCacheSize)))
}
