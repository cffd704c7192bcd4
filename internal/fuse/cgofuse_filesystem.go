//go:build cgofuse

// This file provides the cross-platform mount path via
// github.com/winfsp/cgofuse, for hosts where go-fuse/v2's Linux-only
// kernel driver isn't available (spec's Non-goals exclude native
// Windows support, but the WSL host-facing half of pathbridge's
// audience benefits from a WinFsp-backed mount when running directly
// under Windows rather than inside the Linux container). It reuses
// Core for every decision; only the wire format differs from node.go's
// go-fuse bindings. Built only with -tags cgofuse.
package fuse

import (
	"os"
	"path/filepath"

	"github.com/winfsp/cgofuse/fuse"
	"golang.org/x/sys/unix"

	"github.com/pathbridge/pathbridge/pkg/types"
)

// CGoFuseFilesystem adapts Core to cgofuse's FileSystemInterface. Open
// file descriptors are tracked by the packed types.OpenHandle encoding
// cgofuse's uint64 fh already expects, so no separate handle table is
// needed.
type CGoFuseFilesystem struct {
	fuse.FileSystemBase
	core *CGoFuseCore
}

// CGoFuseCore is an alias of Core kept so this file's exported symbols
// are self-descriptive. node.go, handle.go and mount.go carry no build
// constraint, so the go-fuse bindings are compiled into this build as
// well.
type CGoFuseCore = Core

// NewCGoFuseFilesystem wraps core for mounting via winfsp/cgofuse.
func NewCGoFuseFilesystem(core *Core) *CGoFuseFilesystem {
	return &CGoFuseFilesystem{core: core}
}

func (f *CGoFuseFilesystem) resolve(path string) string {
	return f.core.BackingPath(filepath.ToSlash(path))
}

// Getattr reports attrs, applying the ReadCache size override.
func (f *CGoFuseFilesystem) Getattr(path string, stat *fuse.Stat_t, fh uint64) int {
	backing := f.resolve(path)
	attr, err := f.core.GetAttr(backing)
	if err != nil {
		return -int(errnoToUnixCode(err))
	}
	fillCgoStat(stat, attr)
	return 0
}

// Readdir lists the directory with visible-name translation.
func (f *CGoFuseFilesystem) Readdir(path string, fill func(string, *fuse.Stat_t, int64) bool, ofst int64, fh uint64) int {
	backing := f.resolve(path)
	entries, err := f.core.ReadDir(backing)
	if err != nil {
		return -int(errnoToUnixCode(err))
	}
	fill(".", nil, 0)
	fill("..", nil, 0)
	for _, e := range entries {
		if !fill(e.Name, nil, 0) {
			break
		}
	}
	return 0
}

// Open opens the backing file and packs the transform flag into fh.
func (f *CGoFuseFilesystem) Open(path string, flags int) (int, uint64) {
	backing := f.resolve(path)
	res, err := f.core.Open(backing, flags)
	if err != nil {
		return -int(errnoToUnixCode(err)), 0
	}
	return 0, uint64(types.PackHandle(uintptr(res.Fd), res.NeedsTransform))
}

// Create opens with O_CREAT, chowned to the current process (cgofuse
// does not expose the calling uid/gid the way go-fuse's context does,
// so this path always chowns to the daemon's own identity).
func (f *CGoFuseFilesystem) Create(path string, flags int, mode uint32) (int, uint64) {
	backing := f.resolve(path)
	res, err := f.core.Create(backing, flags, mode, f.core.uid, f.core.gid)
	if err != nil {
		return -int(errnoToUnixCode(err)), 0
	}
	return 0, uint64(types.PackHandle(uintptr(res.Fd), res.NeedsTransform))
}

// Read dispatches to Core.Read when the handle is transform-flagged,
// otherwise a direct pread.
func (f *CGoFuseFilesystem) Read(path string, buff []byte, ofst int64, fh uint64) int {
	handle := types.OpenHandle(fh)
	fd := int(handle.Fd())
	if !handle.NeedsTransform() {
		n, err := unix.Pread(fd, buff, ofst)
		if err != nil {
			return -int(errnoToUnixCode(err))
		}
		return n
	}
	n, err := f.core.Read(fd, f.resolve(path), buff, ofst)
	if err != nil {
		return -int(errnoToUnixCode(err))
	}
	return n
}

// Write dispatches to Core.Write when the handle is transform-flagged,
// otherwise a direct pwrite.
func (f *CGoFuseFilesystem) Write(path string, buff []byte, ofst int64, fh uint64) int {
	handle := types.OpenHandle(fh)
	fd := int(handle.Fd())
	if !handle.NeedsTransform() {
		n, err := unix.Pwrite(fd, buff, ofst)
		if err != nil {
			return -int(errnoToUnixCode(err))
		}
		return n
	}
	n, err := f.core.Write(fd, f.resolve(path), buff, ofst)
	if err != nil {
		return -int(errnoToUnixCode(err))
	}
	return n
}

// Release closes the backing descriptor.
func (f *CGoFuseFilesystem) Release(path string, fh uint64) int {
	handle := types.OpenHandle(fh)
	_ = unix.Close(int(handle.Fd()))
	return 0
}

// Unlink invalidates caches and removes the backing file.
func (f *CGoFuseFilesystem) Unlink(path string) int {
	backing := f.resolve(path)
	f.core.InvalidateAll(backing)
	if err := unix.Unlink(backing); err != nil {
		return -int(errnoToUnixCode(err))
	}
	return 0
}

// Mkdir creates a directory under the backing path.
func (f *CGoFuseFilesystem) Mkdir(path string, mode uint32) int {
	backing := f.resolve(path)
	if err := unix.Mkdir(backing, mode); err != nil {
		return -int(errnoToUnixCode(err))
	}
	return 0
}

// Rmdir removes a directory under the backing path.
func (f *CGoFuseFilesystem) Rmdir(path string) int {
	backing := f.resolve(path)
	f.core.InvalidateAll(backing)
	if err := unix.Rmdir(backing); err != nil {
		return -int(errnoToUnixCode(err))
	}
	return 0
}

// Rename renames with cache invalidation and the atomic-write fixup,
// matching node.go's go-fuse Rename.
func (f *CGoFuseFilesystem) Rename(oldpath, newpath string) int {
	oldBacking := f.resolve(oldpath)
	newBacking := f.resolve(newpath)
	sourceWasTransformable := f.core.Transformable(oldBacking)

	f.core.InvalidateAll(oldBacking)
	f.core.InvalidateAll(newBacking)
	if err := unix.Rename(oldBacking, newBacking); err != nil {
		return -int(errnoToUnixCode(err))
	}
	_ = f.core.RenameFixup(sourceWasTransformable, newBacking)
	return 0
}

// Truncate invalidates caches and truncates the backing file.
func (f *CGoFuseFilesystem) Truncate(path string, size int64, fh uint64) int {
	backing := f.resolve(path)
	f.core.InvalidateAll(backing)
	if err := unix.Truncate(backing, size); err != nil {
		return -int(errnoToUnixCode(err))
	}
	return 0
}

func fillCgoStat(stat *fuse.Stat_t, attr types.FileAttr) {
	stat.Mode = attr.Mode
	stat.Size = attr.Size
	stat.Uid = attr.Uid
	stat.Gid = attr.Gid
	stat.Nlink = uint32(attr.Nlink)
	sec := attr.Mtime.Unix()
	nsec := int64(attr.Mtime.Nanosecond())
	stat.Mtim.Sec = sec
	stat.Mtim.Nsec = nsec
	stat.Atim.Sec = sec
	stat.Atim.Nsec = nsec
	stat.Ctim.Sec = sec
	stat.Ctim.Nsec = nsec
}

// errnoToUnixCode maps a Go error (typically a *os.PathError wrapping a
// unix.Errno) to the raw errno cgofuse expects as a negative return
// value.
func errnoToUnixCode(err error) unix.Errno {
	if errno, ok := err.(unix.Errno); ok {
		return errno
	}
	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(unix.Errno); ok {
			return errno
		}
	}
	return unix.EIO
}
