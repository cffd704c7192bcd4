package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathbridge/pathbridge/pkg/types"
)

func TestNewCollectorDisabledIsSafeNoop(t *testing.T) {
	c, err := NewCollector(Config{Enabled: false})
	require.NoError(t, err)

	c.RecordOperation("read", time.Millisecond, true)
	c.RecordCacheEvent("read_cache", true)
	c.RecordCacheEviction("neg_cache")
	c.RecordTransform(types.OutcomeApplied)
	c.RecordError("write", assertError{})
}

func TestNewCollectorEnabledRegistersMetrics(t *testing.T) {
	c, err := NewCollector(Config{Enabled: true, Port: 0})
	require.NoError(t, err)
	require.NotNil(t, c.registry)

	c.RecordOperation("read", 5*time.Millisecond, true)
	c.RecordOperation("write", 2*time.Millisecond, false)
	c.RecordCacheEvent("read_cache", true)
	c.RecordCacheEvent("neg_cache", false)
	c.RecordCacheEviction("skip_cache")
	c.RecordTransform(types.OutcomeIdentity)
	c.RecordError("write", assertError{})

	metricFamilies, err := c.registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, metricFamilies)
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
