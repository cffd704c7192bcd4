package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCacheGetAfterPut(t *testing.T) {
	c := NewReadCache()
	c.Put("/src/a.json", 10, 0, []byte(`{"cwd":"/ccbox/x"}`))

	data, ok := c.Get("/src/a.json", 10, 0)
	require.True(t, ok)
	assert.Equal(t, `{"cwd":"/ccbox/x"}`, string(data))
}

func TestReadCacheMissOnMtimeMismatch(t *testing.T) {
	c := NewReadCache()
	c.Put("/src/a.json", 10, 0, []byte("v1"))

	_, ok := c.Get("/src/a.json", 11, 0)
	assert.False(t, ok)

	// A stale entry must be dropped, not just reported as a miss once.
	_, ok = c.Get("/src/a.json", 10, 0)
	assert.False(t, ok)
}

func TestReadCacheRejectsOversizedEntry(t *testing.T) {
	c := NewReadCache()
	big := make([]byte, ReadCacheMaxEntryBytes+1)
	c.Put("/src/big.json", 1, 0, big)

	_, ok := c.Get("/src/big.json", 1, 0)
	assert.False(t, ok)
}

func TestReadCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewReadCache()
	for i := 0; i < ReadCacheSize; i++ {
		c.Put(string(rune('a'+i%26))+string(rune(i)), int64(i), 0, []byte("x"))
	}
	// Touch everything except slot 0's key to keep it least-recently-used.
	first := string(rune('a')) + string(rune(0))
	for i := 1; i < ReadCacheSize; i++ {
		key := string(rune('a'+i%26)) + string(rune(i))
		c.Get(key, int64(i), 0)
	}

	c.Put("/src/new.json", 999, 0, []byte("y"))

	_, ok := c.Get(first, 0, 0)
	assert.False(t, ok, "least recently used entry should have been evicted")

	stats := c.Stats()
	assert.Equal(t, ReadCacheSize, stats.Capacity)
}

func TestReadCacheInvalidate(t *testing.T) {
	c := NewReadCache()
	c.Put("/src/a.json", 1, 0, []byte("v"))
	c.Invalidate("/src/a.json")
	_, ok := c.Get("/src/a.json", 1, 0)
	assert.False(t, ok)
}

func TestReadCacheLength(t *testing.T) {
	c := NewReadCache()
	c.Put("/src/a.json", 1, 0, []byte("hello"))
	n, ok := c.Length("/src/a.json", 1, 0)
	require.True(t, ok)
	assert.Equal(t, int64(5), n)
}
