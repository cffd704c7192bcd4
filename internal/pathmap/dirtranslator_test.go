package pathmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathbridge/pathbridge/pkg/types"
)

func newTestTranslator(t *testing.T) *DirTranslator {
	t.Helper()
	tr, err := NewDirTranslator([]types.DirMapping{
		{ContainerName: "-d-GitHub-app", NativeName: "D--GitHub-app"},
	})
	require.NoError(t, err)
	return tr
}

func TestToBackingRewritesMatchingSegment(t *testing.T) {
	tr := newTestTranslator(t)
	got := tr.ToBacking("/projects/-d-GitHub-app/session.jsonl")
	assert.Equal(t, "/projects/D--GitHub-app/session.jsonl", got)
}

func TestToBackingPassesThroughNonMatchingSegments(t *testing.T) {
	tr := newTestTranslator(t)
	got := tr.ToBacking("/projects/other-app/data.json")
	assert.Equal(t, "/projects/other-app/data.json", got)
}

func TestToVisibleTranslatesNativeName(t *testing.T) {
	tr := newTestTranslator(t)
	visible, suppress := tr.ToVisible("D--GitHub-app", nil)
	assert.Equal(t, "-d-GitHub-app", visible)
	assert.False(t, suppress)
}

func TestToVisibleSuppressesDuplicateContainerEntry(t *testing.T) {
	tr := newTestTranslator(t)
	visible, suppress := tr.ToVisible("-d-GitHub-app", func(name string) bool {
		return name == "D--GitHub-app"
	})
	assert.True(t, suppress)
	assert.Empty(t, visible)
}

func TestToVisibleKeepsLiteralEntryWhenNoNativeSibling(t *testing.T) {
	tr := newTestTranslator(t)
	visible, suppress := tr.ToVisible("-d-GitHub-app", func(name string) bool {
		return false
	})
	assert.False(t, suppress)
	assert.Equal(t, "-d-GitHub-app", visible)
}

func TestNewDirTranslatorRejectsTooManyMappings(t *testing.T) {
	mappings := make([]types.DirMapping, types.MaxMappings+1)
	for i := range mappings {
		mappings[i] = types.DirMapping{ContainerName: "c", NativeName: "n"}
	}
	_, err := NewDirTranslator(mappings)
	assert.Error(t, err)
}
