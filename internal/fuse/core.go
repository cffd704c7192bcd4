// Package fuse implements the filesystem operation dispatcher of spec
// section 4.3: a userspace passthrough filesystem over source_dir that
// applies directory-name translation to every path and content
// transformation to transform-eligible file bodies. Core holds the
// dispatch logic in a binding-agnostic form so both the primary
// go-fuse/v2 mount path (node.go, mount.go) and the cgofuse-based
// cross-platform alternate (cgofuse_filesystem.go) drive the same
// translation and caching behavior instead of duplicating it.
package fuse

import (
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/pathbridge/pathbridge/internal/cache"
	"github.com/pathbridge/pathbridge/internal/pathmap"
	"github.com/pathbridge/pathbridge/internal/transform"
	"github.com/pathbridge/pathbridge/pkg/types"
)

// quickScanPrefixBytes bounds the quick-scan read (spec 4.2: "a bounded
// prefix of the file (64 KiB)").
const quickScanPrefixBytes = 64 * 1024

// Core is the shared, binding-agnostic implementation of the FS
// operation dispatcher. It is safe for concurrent use by the
// multi-threaded FUSE request loop (spec section 5).
type Core struct {
	SourceDir string

	dirs  *pathmap.DirTranslator
	xform *transform.Engine
	exts  types.ExtensionSet

	neg   *cache.NegCache
	read  *cache.ReadCache
	skip  *cache.SkipCache

	metrics types.MetricsCollector
	log     Logger

	uid, gid uint32
}

// Logger is the minimal logging surface Core needs; the *logrus.Logger
// returned by internal/logging.New and a *logrus.Entry both satisfy it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Warnf(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}

// NewCore builds a Core from startup configuration.
func NewCore(sourceDir string, dirs *pathmap.DirTranslator, xform *transform.Engine, exts types.ExtensionSet, metrics types.MetricsCollector, log Logger) *Core {
	if metrics == nil {
		metrics = types.NopMetricsCollector{}
	}
	if log == nil {
		log = noopLogger{}
	}
	return &Core{
		SourceDir: sourceDir,
		dirs:      dirs,
		xform:     xform,
		exts:      exts,
		neg:       cache.NewNegCache(),
		read:      cache.NewReadCache(),
		skip:      cache.NewSkipCache(),
		metrics:   metrics,
		log:       log,
		uid:       uint32(os.Getuid()),
		gid:       uint32(os.Getgid()),
	}
}

// BackingPath maps a container-visible request path (already relative
// to the mount root, leading slash included) to its location under
// SourceDir, applying the directory-name translator.
func (c *Core) BackingPath(requestPath string) string {
	return c.SourceDir + c.dirs.ToBacking(requestPath)
}

// BackingSegment rewrites a single path segment (no slashes), as used by
// the go-fuse Lookup callback which resolves one directory entry at a
// time rather than a full path.
func (c *Core) BackingSegment(name string) string {
	return c.dirs.SegmentToBacking(name)
}

// Transformable reports whether path's extension is in the configured
// ExtensionSet.
func (c *Core) Transformable(path string) bool {
	return c.exts.Matches(path)
}

// GetAttr resolves attrs for backingPath, consulting NegCache first and
// overriding the reported size from ReadCache when resident (spec
// 4.3's "get-attributes must not perform file I/O beyond stat").
func (c *Core) GetAttr(backingPath string) (types.FileAttr, error) {
	if c.neg.Hit(backingPath) {
		c.metrics.RecordCacheEvent("neg", true)
		return types.FileAttr{}, os.ErrNotExist
	}
	c.metrics.RecordCacheEvent("neg", false)

	var st unix.Stat_t
	if err := unix.Lstat(backingPath, &st); err != nil {
		if err == unix.ENOENT {
			c.neg.Insert(backingPath)
		}
		return types.FileAttr{}, err
	}

	attr := statToFileAttr(&st)
	if !attr.IsDir && c.Transformable(backingPath) {
		if n, ok := c.read.Length(backingPath, st.Mtim.Sec, int64(st.Mtim.Nsec)); ok {
			c.metrics.RecordCacheEvent("read", true)
			attr.Size = n
		} else {
			c.metrics.RecordCacheEvent("read", false)
		}
	}
	return attr, nil
}

// ReadDirEntry is one entry of a ReadDir result, after directory-name
// translation and deduplication.
type ReadDirEntry struct {
	Name  string
	IsDir bool
}

// ReadDir enumerates backingDir, applying to-visible translation and
// suppressing deduplicated native entries (spec 4.1, testable property
// 6).
func (c *Core) ReadDir(backingDir string) ([]ReadDirEntry, error) {
	entries, err := os.ReadDir(backingDir)
	if err != nil {
		return nil, err
	}

	isDir := make(map[string]bool, len(entries))
	for _, e := range entries {
		isDir[e.Name()] = e.IsDir()
	}
	siblingIsDir := func(name string) bool { return isDir[name] }

	out := make([]ReadDirEntry, 0, len(entries))
	for _, e := range entries {
		visible, suppress := c.dirs.ToVisible(e.Name(), siblingIsDir)
		if suppress {
			continue
		}
		out = append(out, ReadDirEntry{Name: visible, IsDir: e.IsDir()})
	}
	return out, nil
}

// OpenResult is what Open returns: the raw descriptor plus whether this
// handle needs content transformation on read/write.
type OpenResult struct {
	Fd            int
	NeedsTransform bool
}

// Open opens backingPath with flags, deciding direct I/O versus
// kernel-cache retention per spec 4.3's open contract: if the file is
// cache-resident (read or skip) at its current mtime the kernel page
// cache is safe to keep; otherwise direct I/O avoids a stale cached
// size truncating a size-changing transform.
func (c *Core) Open(backingPath string, flags int) (OpenResult, error) {
	transformable := c.Transformable(backingPath)
	openFlags := flags
	if transformable {
		if resident := c.cacheResident(backingPath); !resident {
			openFlags |= unix.O_DIRECT
		}
	}

	fd, err := unix.Open(backingPath, openFlags, 0)
	if err != nil && openFlags&unix.O_DIRECT != 0 {
		// Not every backing filesystem supports O_DIRECT (e.g. tmpfs);
		// degrade to buffered I/O rather than fail the open outright.
		c.log.Debugf("O_DIRECT open failed for %s (%v), retrying buffered", backingPath, err)
		fd, err = unix.Open(backingPath, flags, 0)
	}
	if err != nil {
		return OpenResult{}, err
	}
	return OpenResult{Fd: fd, NeedsTransform: transformable}, nil
}

// Create opens backingPath with O_CREAT, invalidates NegCache, and
// chowns the new file to (uid, gid) — the FUSE dispatcher runs
// privileged, so ownership must be set to the calling process, not the
// daemon (spec 4.3's mkdir/symlink/create contract).
func (c *Core) Create(backingPath string, flags int, mode uint32, uid, gid uint32) (OpenResult, error) {
	c.neg.Invalidate(backingPath)
	transformable := c.Transformable(backingPath)

	fd, err := unix.Open(backingPath, flags|unix.O_CREAT, mode)
	if err != nil {
		return OpenResult{}, err
	}
	_ = unix.Fchown(fd, int(uid), int(gid))
	return OpenResult{Fd: fd, NeedsTransform: transformable}, nil
}

func (c *Core) cacheResident(backingPath string) bool {
	var st unix.Stat_t
	if err := unix.Lstat(backingPath, &st); err != nil {
		return false
	}
	if _, ok := c.read.Length(backingPath, st.Mtim.Sec, int64(st.Mtim.Nsec)); ok {
		return true
	}
	return c.skip.Hit(backingPath, st.Mtim.Sec, int64(st.Mtim.Nsec))
}

// Read serves spec 4.3's read operation for a transform-flagged handle.
func (c *Core) Read(fd int, backingPath string, dest []byte, offset int64) (int, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return 0, err
	}
	mtimeSec, mtimeNsec := st.Mtim.Sec, int64(st.Mtim.Nsec)

	if c.skip.Hit(backingPath, mtimeSec, mtimeNsec) {
		c.metrics.RecordCacheEvent("skip", true)
		return pread(fd, dest, offset)
	}
	c.metrics.RecordCacheEvent("skip", false)

	if data, ok := c.read.Get(backingPath, mtimeSec, mtimeNsec); ok {
		c.metrics.RecordCacheEvent("read", true)
		return copyAtOffset(dest, data, offset), nil
	}
	c.metrics.RecordCacheEvent("read", false)

	full, err := readFullFile(fd, st.Size)
	if err != nil {
		return 0, err
	}

	prefixLen := len(full)
	if prefixLen > quickScanPrefixBytes {
		prefixLen = quickScanPrefixBytes
	}
	if c.xform.QuickScan(full[:prefixLen]) {
		c.skip.Insert(backingPath, mtimeSec, mtimeNsec)
		c.metrics.RecordTransform(types.OutcomeSkippedByQuickScan)
		return pread(fd, dest, offset)
	}

	transformed, changed := c.xform.ToContainer(full)
	if changed {
		c.metrics.RecordTransform(types.OutcomeApplied)
	} else {
		c.metrics.RecordTransform(types.OutcomeIdentity)
	}
	c.read.Put(backingPath, mtimeSec, mtimeNsec, transformed)
	return copyAtOffset(dest, transformed, offset), nil
}

// Write serves spec 4.3's write operation for a transform-flagged
// handle, including the read-modify-write merge for non-zero offsets.
func (c *Core) Write(fd int, backingPath string, buf []byte, offset int64) (int, error) {
	c.InvalidateAll(backingPath)

	transformed, changed := c.xform.ToHost(buf)
	if !changed {
		c.metrics.RecordTransform(types.OutcomeIdentity)
		return pwrite(fd, buf, offset)
	}
	c.metrics.RecordTransform(types.OutcomeApplied)

	if offset == 0 {
		n, err := pwrite(fd, transformed, 0)
		if err != nil {
			return 0, err
		}
		if err := unix.Ftruncate(fd, int64(len(transformed))); err != nil {
			return 0, err
		}
		_ = n
		return len(buf), nil
	}

	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		return 0, err
	}
	defer unix.Flock(fd, unix.LOCK_UN)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return 0, err
	}
	existing, err := readFullFile(fd, st.Size)
	if err != nil {
		return 0, err
	}

	total := offset + int64(len(transformed))
	if int64(len(existing)) > total {
		total = int64(len(existing))
	}
	merged := make([]byte, total)
	copy(merged, existing)
	copy(merged[offset:], transformed)

	if _, err := pwrite(fd, merged, 0); err != nil {
		return 0, err
	}
	if err := unix.Ftruncate(fd, total); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// InvalidateAll drops backingPath from all three caches: spec 3's
// invariant that write/truncate/unlink/rename invalidate every cache
// entry for the affected path.
func (c *Core) InvalidateAll(backingPath string) {
	c.neg.Invalidate(backingPath)
	c.read.Invalidate(backingPath)
	c.skip.Invalidate(backingPath)
}

// RenameFixup implements the atomic-write-then-rename catch-up: if the
// destination is transform-eligible but the rename's source path was
// not, a file written without ever going through the transform-on-write
// path (e.g. write to a temp file, then rename into place) can still
// contain container-form paths. Opening it and applying to-host in
// place with truncation to the transformed length restores the
// write-path invariant retroactively.
func (c *Core) RenameFixup(sourceWasTransformable bool, destBackingPath string) error {
	if sourceWasTransformable || !c.Transformable(destBackingPath) {
		return nil
	}
	fd, err := unix.Open(destBackingPath, unix.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return err
	}
	full, err := readFullFile(fd, st.Size)
	if err != nil {
		return err
	}
	transformed, changed := c.xform.ToHost(full)
	if !changed {
		return nil
	}
	if _, err := pwrite(fd, transformed, 0); err != nil {
		return err
	}
	return unix.Ftruncate(fd, int64(len(transformed)))
}

func statToFileAttr(st *unix.Stat_t) types.FileAttr {
	return types.FileAttr{
		Size:    st.Size,
		Mode:    st.Mode,
		Mtime:   time.Unix(st.Mtim.Sec, int64(st.Mtim.Nsec)),
		IsDir:   st.Mode&unix.S_IFMT == unix.S_IFDIR,
		Nlink:   uint32(st.Nlink),
		Uid:     st.Uid,
		Gid:     st.Gid,
		Ino:     st.Ino,
		Blksize: uint32(st.Blksize),
	}
}

func pread(fd int, dest []byte, offset int64) (int, error) {
	n, err := unix.Pread(fd, dest, offset)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func pwrite(fd int, buf []byte, offset int64) (int, error) {
	n, err := unix.Pwrite(fd, buf, offset)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func copyAtOffset(dest []byte, data []byte, offset int64) int {
	if offset >= int64(len(data)) {
		return 0
	}
	n := copy(dest, data[offset:])
	return n
}

func readFullFile(fd int, size int64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	got, err := unix.Pread(fd, buf, 0)
	if err != nil {
		return nil, err
	}
	return buf[:got], nil
}
