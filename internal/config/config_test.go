package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathbridge/pathbridge/pkg/types"
)

func TestParsePathMapDriveForm(t *testing.T) {
	mappings, err := ParsePathMap("C:/Users/me/.claude:/ccbox/.claude")
	require.NoError(t, err)
	require.Len(t, mappings, 1)

	m := mappings[0]
	assert.Equal(t, "C:/Users/me/.claude", m.From)
	assert.Equal(t, "/ccbox/.claude", m.To)
	assert.Equal(t, types.KindDrive, m.Kind)
	assert.Equal(t, byte('c'), m.Drive)
}

func TestParsePathMapUNCForm(t *testing.T) {
	mappings, err := ParsePathMap("//server/share:/ccbox/share")
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, types.KindUNC, mappings[0].Kind)
}

func TestParsePathMapMountPrefixForm(t *testing.T) {
	mappings, err := ParsePathMap("/mnt/d/work:/ccbox/work")
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, types.KindMountPrefix, mappings[0].Kind)
	assert.Equal(t, byte('d'), mappings[0].Drive)
}

func TestParsePathMapMultipleEntries(t *testing.T) {
	mappings, err := ParsePathMap("C:/a:/ccbox/a;/mnt/d/b:/ccbox/b")
	require.NoError(t, err)
	assert.Len(t, mappings, 2)
}

func TestParsePathMapRejectsUnrecognizedShape(t *testing.T) {
	_, err := ParsePathMap("relative/path:/ccbox/x")
	assert.Error(t, err)
}

func TestParsePathMapTrimsTrailingSlashesAndNormalizesSlashes(t *testing.T) {
	mappings, err := ParsePathMap(`C:\Users\me\:/ccbox/me`)
	require.NoError(t, err)
	assert.Equal(t, "C:/Users/me", mappings[0].From)
}

func TestParseDirMap(t *testing.T) {
	mappings, err := ParseDirMap("-d-GitHub-app:D--GitHub-app")
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "-d-GitHub-app", mappings[0].ContainerName)
	assert.Equal(t, "D--GitHub-app", mappings[0].NativeName)
}

func TestParseDirMapRejectsSlashes(t *testing.T) {
	_, err := ParseDirMap("a/b:c")
	assert.Error(t, err)
}

func TestValidateRequiresSourceDir(t *testing.T) {
	c := Default()
	err := c.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsCaseCollidingMappings(t *testing.T) {
	c := Default()
	c.SourceDir = "/srv/data"
	c.PathMappings = []types.PathMapping{
		{From: "C:/Users/me"},
		{From: "c:/users/me"},
	}
	err := c.Validate()
	assert.Error(t, err)
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	c := Default()
	c.SourceDir = "/srv/data"
	c.PathMappings = []types.PathMapping{{From: "C:/Users/me"}}
	c.DirMappings = []types.DirMapping{{ContainerName: "-d-GitHub-app", NativeName: "D--GitHub-app"}}
	assert.NoError(t, c.Validate())
}

func TestValidateRejectsDuplicateContainerName(t *testing.T) {
	c := Default()
	c.SourceDir = "/srv/data"
	c.DirMappings = []types.DirMapping{
		{ContainerName: "-d-app", NativeName: "D--app"},
		{ContainerName: "-d-app", NativeName: "E--app"},
	}
	assert.Error(t, c.Validate())
}
