package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionSetMatches(t *testing.T) {
	es := DefaultExtensions()
	assert.True(t, es.Matches("session.JSONL"))
	assert.True(t, es.Matches("/a/b/config.json"))
	assert.False(t, es.Matches("/a/b/image.PNG"))
	assert.False(t, es.Matches("noext"))
}

func TestNewExtensionSetAddsLeadingDot(t *testing.T) {
	es := NewExtensionSet([]string{"json", ".YAML"})
	toks := es.Tokens()
	require.Len(t, toks, 2)
	assert.Contains(t, toks, ".json")
	assert.Contains(t, toks, ".yaml")
}

func TestOpenHandlePackUnpack(t *testing.T) {
	h := PackHandle(42, true)
	assert.True(t, h.NeedsTransform())
	assert.Equal(t, uintptr(42), h.Fd())

	h2 := PackHandle(7, false)
	assert.False(t, h2.NeedsTransform())
	assert.Equal(t, uintptr(7), h2.Fd())
}
