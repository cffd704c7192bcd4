package fuse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/pathbridge/pathbridge/internal/pathmap"
	"github.com/pathbridge/pathbridge/internal/transform"
	"github.com/pathbridge/pathbridge/pkg/types"
)

func newTestCore(t *testing.T, sourceDir string) *Core {
	t.Helper()
	mapping := types.PathMapping{
		Kind: types.KindDrive, Drive: 'c',
		From: "c:/Users/me", To: "/ccbox/users/me",
		FromLen: len("c:/Users/me"), ToLen: len("/ccbox/users/me"),
	}
	engine := transform.NewEngine([]types.PathMapping{mapping}, nil)
	dirs, err := pathmap.NewDirTranslator([]types.DirMapping{
		{ContainerName: "workspace", NativeName: "home_workspace"},
	})
	require.NoError(t, err)
	exts := types.NewExtensionSet([]string{".json"})
	return NewCore(sourceDir, dirs, engine, exts, types.NopMetricsCollector{}, nil)
}

func TestGetAttrReportsENOENTAndCachesIt(t *testing.T) {
	dir := t.TempDir()
	core := newTestCore(t, dir)

	_, err := core.GetAttr(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	require.True(t, core.neg.Hit(filepath.Join(dir, "missing.json")))
}

func TestGetAttrReturnsSizeForExistingFile(t *testing.T) {
	dir := t.TempDir()
	core := newTestCore(t, dir)

	path := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	attr, err := core.GetAttr(path)
	require.NoError(t, err)
	require.Equal(t, int64(5), attr.Size)
	require.False(t, attr.IsDir)
}

func TestGetAttrOverridesSizeFromReadCache(t *testing.T) {
	dir := t.TempDir()
	core := newTestCore(t, dir)

	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0o644))

	var st unix.Stat_t
	require.NoError(t, unix.Lstat(path, &st))
	core.read.Put(path, st.Mtim.Sec, int64(st.Mtim.Nsec), []byte(`{"a":1,"extra":"padded"}`))

	attr, err := core.GetAttr(path)
	require.NoError(t, err)
	require.Equal(t, int64(len(`{"a":1,"extra":"padded"}`)), attr.Size)
}

func TestReadDirTranslatesAndDedupsDirectoryMapping(t *testing.T) {
	dir := t.TempDir()
	core := newTestCore(t, dir)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "home_workspace"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "workspace"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	entries, err := core.ReadDir(dir)
	require.NoError(t, err)

	names := map[string]int{}
	for _, e := range entries {
		names[e.Name]++
	}
	require.Equal(t, 1, names["workspace"])
	require.Zero(t, names["home_workspace"])
	require.Equal(t, 1, names["other.txt"])
}

func TestWriteThenReadRoundTripsTransformedContent(t *testing.T) {
	dir := t.TempDir()
	core := newTestCore(t, dir)

	path := filepath.Join(dir, "paths.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	res, err := core.Open(path, unix.O_RDWR)
	require.NoError(t, err)
	defer unix.Close(res.Fd)
	require.True(t, res.NeedsTransform)

	containerForm := []byte(`{"path":"/ccbox/users/me/file.json"}`)
	n, err := core.Write(res.Fd, path, containerForm, 0)
	require.NoError(t, err)
	require.Equal(t, len(containerForm), n)

	var st unix.Stat_t
	require.NoError(t, unix.Fstat(res.Fd, &st))
	hostForm := make([]byte, st.Size)
	_, err = unix.Pread(res.Fd, hostForm, 0)
	require.NoError(t, err)
	require.Equal(t, `{"path":"c:\\Users\\me\\file.json"}`, string(hostForm))

	dest := make([]byte, 256)
	got, err := core.Read(res.Fd, path, dest, 0)
	require.NoError(t, err)
	require.Equal(t, string(containerForm), string(dest[:got]))
}

func TestReadSkipsTransformForNonEligibleExtension(t *testing.T) {
	dir := t.TempDir()
	core := newTestCore(t, dir)

	path := filepath.Join(dir, "plain.txt")
	content := []byte(`{"path":"/ccbox/users/me/file.json"}`)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	require.False(t, core.Transformable(path))

	res, err := core.Open(path, unix.O_RDONLY)
	require.NoError(t, err)
	defer unix.Close(res.Fd)
	require.False(t, res.NeedsTransform)
}

func TestInvalidateAllClearsAllThreeCaches(t *testing.T) {
	dir := t.TempDir()
	core := newTestCore(t, dir)
	path := filepath.Join(dir, "x.json")

	core.neg.Insert(path)
	core.read.Put(path, 1, 0, []byte("v"))
	core.skip.Insert(path, 1, 0)

	core.InvalidateAll(path)

	require.False(t, core.neg.Hit(path))
	_, ok := core.read.Get(path, 1, 0)
	require.False(t, ok)
	require.False(t, core.skip.Hit(path, 1, 0))
}
