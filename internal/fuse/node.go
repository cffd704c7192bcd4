package fuse

import (
	"context"
	"os"
	"path/filepath"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"
)

// Node is the go-fuse/v2 inode embedder for both directories and
// regular files; which operations are meaningful depends on whether
// backingPath names a directory, mirroring the teacher's single
// FileSystem-rooted inode style rather than separate concrete types
// per kind.
type Node struct {
	fs.Inode

	core        *Core
	backingPath string
}

var (
	_ fs.InodeEmbedder  = (*Node)(nil)
	_ fs.NodeLookuper   = (*Node)(nil)
	_ fs.NodeReaddirer  = (*Node)(nil)
	_ fs.NodeGetattrer  = (*Node)(nil)
	_ fs.NodeSetattrer  = (*Node)(nil)
	_ fs.NodeOpener     = (*Node)(nil)
	_ fs.NodeCreater    = (*Node)(nil)
	_ fs.NodeMkdirer    = (*Node)(nil)
	_ fs.NodeRmdirer    = (*Node)(nil)
	_ fs.NodeUnlinker   = (*Node)(nil)
	_ fs.NodeRenamer    = (*Node)(nil)
	_ fs.NodeSymlinker  = (*Node)(nil)
	_ fs.NodeReadlinker = (*Node)(nil)
	_ fs.NodeLinker     = (*Node)(nil)
	_ fs.NodeStatfser   = (*Node)(nil)
	_ fs.NodeAccesser   = (*Node)(nil)
)

func newRoot(core *Core) *Node {
	return &Node{core: core, backingPath: core.SourceDir}
}

func callerOrDefault(ctx context.Context, fallbackUID, fallbackGID uint32) (uid, gid uint32) {
	if caller, ok := fuse.FromContext(ctx); ok {
		return caller.Uid, caller.Gid
	}
	return fallbackUID, fallbackGID
}

func errnoFrom(err error) syscall.Errno {
	if err == nil {
		return fs.OK
	}
	return fs.ToErrno(err)
}

func fillAttrOut(out *fuse.AttrOut, st unix.Stat_t) {
	out.Ino = st.Ino
	out.Size = uint64(st.Size)
	out.Mode = st.Mode
	out.Nlink = uint32(st.Nlink)
	out.Uid = st.Uid
	out.Gid = st.Gid
	out.Blksize = uint32(st.Blksize)
	out.Mtime = uint64(st.Mtim.Sec)
	out.Mtimensec = uint32(st.Mtim.Nsec)
	out.Atime = uint64(st.Atim.Sec)
	out.Atimensec = uint32(st.Atim.Nsec)
	out.Ctime = uint64(st.Ctim.Sec)
	out.Ctimensec = uint32(st.Ctim.Nsec)
}

func lstatOrErrno(path string) (unix.Stat_t, syscall.Errno) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return st, errnoFrom(err)
	}
	return st, fs.OK
}

// Lookup resolves a single path segment under n, applying directory-name
// translation to that segment only (spec 4.1).
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childBacking := filepath.Join(n.backingPath, n.core.BackingSegment(name))

	attr, err := n.core.GetAttr(childBacking)
	if err != nil {
		return nil, errnoFrom(err)
	}

	child := &Node{core: n.core, backingPath: childBacking}
	mode := fuse.S_IFREG
	if attr.IsDir {
		mode = fuse.S_IFDIR
	}
	stable := fs.StableAttr{Mode: uint32(mode), Ino: attr.Ino}
	inode := n.NewInode(ctx, child, stable)

	st, errno := lstatOrErrno(childBacking)
	if errno != 0 {
		return nil, errno
	}
	fillAttrOut(&out.Attr, st)
	if !attr.IsDir {
		out.Attr.Size = uint64(attr.Size)
	}
	return inode, fs.OK
}

// Readdir lists n's backing directory with visible-name translation and
// dedup suppression (spec 4.1, testable property 6).
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, err := n.core.ReadDir(n.backingPath)
	if err != nil {
		return nil, errnoFrom(err)
	}
	fuseEntries := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		mode := uint32(fuse.S_IFREG)
		if e.IsDir {
			mode = fuse.S_IFDIR
		}
		fuseEntries = append(fuseEntries, fuse.DirEntry{Name: e.Name, Mode: mode})
	}
	return fs.NewListDirStream(fuseEntries), fs.OK
}

// Getattr overrides the reported size from ReadCache when a
// transformed copy is resident, without touching the backing file
// beyond stat (spec 4.3).
func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.core.GetAttr(n.backingPath)
	if err != nil {
		return errnoFrom(err)
	}
	st, errno := lstatOrErrno(n.backingPath)
	if errno != 0 {
		return errno
	}
	fillAttrOut(&out.Attr, st)
	out.Attr.Size = uint64(attr.Size)
	return fs.OK
}

// Setattr handles truncate (cache invalidation) and passthrough
// chmod/chown/utimens.
func (n *Node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		n.core.InvalidateAll(n.backingPath)
		if err := unix.Truncate(n.backingPath, int64(size)); err != nil {
			return errnoFrom(err)
		}
	}
	if mode, ok := in.GetMode(); ok {
		if err := unix.Chmod(n.backingPath, mode); err != nil {
			return errnoFrom(err)
		}
	}
	uid, uok := in.GetUID()
	gid, gok := in.GetGID()
	if uok || gok {
		newUID, newGID := -1, -1
		if uok {
			newUID = int(uid)
		}
		if gok {
			newGID = int(gid)
		}
		if err := unix.Lchown(n.backingPath, newUID, newGID); err != nil {
			return errnoFrom(err)
		}
	}
	if atime, ok := in.GetATime(); ok {
		mtime, _ := in.GetMTime()
		_ = unix.Lutimes(n.backingPath, []unix.Timeval{
			unix.NsecToTimeval(atime.UnixNano()),
			unix.NsecToTimeval(mtime.UnixNano()),
		})
	}

	st, errno := lstatOrErrno(n.backingPath)
	if errno != 0 {
		return errno
	}
	fillAttrOut(&out.Attr, st)
	return fs.OK
}

// Open decides direct-I/O versus kernel-cache retention and packs the
// transform flag into the returned FileHandle (spec 4.3).
func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	res, err := n.core.Open(n.backingPath, int(flags))
	if err != nil {
		return nil, 0, errnoFrom(err)
	}
	fh := &FileHandle{core: n.core, fd: res.Fd, backingPath: n.backingPath, transform: res.NeedsTransform}
	fuseFlags := uint32(0)
	if !res.NeedsTransform {
		fuseFlags |= fuse.FOPEN_KEEP_CACHE
	}
	return fh, fuseFlags, fs.OK
}

// Create invalidates NegCache, opens with O_CREAT, and chowns the new
// file to the calling process's uid/gid (spec 4.3).
func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	childBacking := filepath.Join(n.backingPath, n.core.BackingSegment(name))
	uid, gid := callerOrDefault(ctx, n.core.uid, n.core.gid)

	res, err := n.core.Create(childBacking, int(flags), mode, uid, gid)
	if err != nil {
		return nil, nil, 0, errnoFrom(err)
	}

	child := &Node{core: n.core, backingPath: childBacking}
	st, errno := lstatOrErrno(childBacking)
	if errno != 0 {
		unix.Close(res.Fd)
		return nil, nil, 0, errno
	}
	inode := n.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFREG, Ino: st.Ino})
	fillAttrOut(&out.Attr, st)

	fh := &FileHandle{core: n.core, fd: res.Fd, backingPath: childBacking, transform: res.NeedsTransform}
	return inode, fh, 0, fs.OK
}

// Mkdir passes through to the backing filesystem and chowns the new
// directory to the caller (spec 4.3).
func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childBacking := filepath.Join(n.backingPath, n.core.BackingSegment(name))
	n.core.InvalidateAll(childBacking)

	if err := unix.Mkdir(childBacking, mode); err != nil {
		return nil, errnoFrom(err)
	}
	uid, gid := callerOrDefault(ctx, n.core.uid, n.core.gid)
	_ = unix.Chown(childBacking, int(uid), int(gid))

	st, errno := lstatOrErrno(childBacking)
	if errno != 0 {
		return nil, errno
	}
	child := &Node{core: n.core, backingPath: childBacking}
	inode := n.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFDIR, Ino: st.Ino})
	fillAttrOut(&out.Attr, st)
	return inode, fs.OK
}

// Rmdir invalidates caches for the removed path and removes it.
func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	childBacking := filepath.Join(n.backingPath, n.core.BackingSegment(name))
	n.core.InvalidateAll(childBacking)
	if err := unix.Rmdir(childBacking); err != nil {
		return errnoFrom(err)
	}
	return fs.OK
}

// Unlink invalidates caches for the removed path and removes it (spec
// section 3's cache-invalidation invariant).
func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	childBacking := filepath.Join(n.backingPath, n.core.BackingSegment(name))
	n.core.InvalidateAll(childBacking)
	if err := unix.Unlink(childBacking); err != nil {
		return errnoFrom(err)
	}
	return fs.OK
}

// Rename invalidates caches on both the source and destination paths,
// renames the backing files, then runs the atomic-write-then-rename
// content-transform catch-up when the destination is transform-eligible
// but the source was not (spec 4.3).
func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	oldBacking := filepath.Join(n.backingPath, n.core.BackingSegment(name))

	newParentNode, ok := newParent.(*Node)
	if !ok {
		return syscall.EINVAL
	}
	newBacking := filepath.Join(newParentNode.backingPath, n.core.BackingSegment(newName))

	sourceWasTransformable := n.core.Transformable(oldBacking)
	n.core.InvalidateAll(oldBacking)
	n.core.InvalidateAll(newBacking)

	if err := unix.Rename(oldBacking, newBacking); err != nil {
		return errnoFrom(err)
	}

	if err := n.core.RenameFixup(sourceWasTransformable, newBacking); err != nil {
		n.core.log.Warnf("rename content fixup failed for %s: %v", newBacking, err)
	}
	return fs.OK
}

// Symlink creates a symlink, chowned to the caller, and invalidates
// NegCache for the new path.
func (n *Node) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childBacking := filepath.Join(n.backingPath, n.core.BackingSegment(name))
	n.core.InvalidateAll(childBacking)

	if err := unix.Symlink(target, childBacking); err != nil {
		return nil, errnoFrom(err)
	}
	uid, gid := callerOrDefault(ctx, n.core.uid, n.core.gid)
	_ = unix.Lchown(childBacking, int(uid), int(gid))

	st, errno := lstatOrErrno(childBacking)
	if errno != 0 {
		return nil, errno
	}
	child := &Node{core: n.core, backingPath: childBacking}
	inode := n.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFLNK, Ino: st.Ino})
	fillAttrOut(&out.Attr, st)
	return inode, fs.OK
}

// Readlink is a direct passthrough; link targets are not path-rewritten
// (spec's Non-goals exclude symlink target translation).
func (n *Node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := os.Readlink(n.backingPath)
	if err != nil {
		return nil, errnoFrom(err)
	}
	return []byte(target), fs.OK
}

// Link creates a hard link, passthrough.
func (n *Node) Link(ctx context.Context, target fs.InodeEmbedder, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	targetNode, ok := target.(*Node)
	if !ok {
		return nil, syscall.EINVAL
	}
	childBacking := filepath.Join(n.backingPath, n.core.BackingSegment(name))
	n.core.InvalidateAll(childBacking)
	if err := unix.Link(targetNode.backingPath, childBacking); err != nil {
		return nil, errnoFrom(err)
	}
	st, errno := lstatOrErrno(childBacking)
	if errno != 0 {
		return nil, errno
	}
	child := &Node{core: n.core, backingPath: childBacking}
	inode := n.NewInode(ctx, child, fs.StableAttr{Mode: st.Mode, Ino: st.Ino})
	fillAttrOut(&out.Attr, st)
	return inode, fs.OK
}

// Statfs is a direct passthrough to the backing filesystem's statistics.
func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	var st unix.Statfs_t
	if err := unix.Statfs(n.backingPath, &st); err != nil {
		return errnoFrom(err)
	}
	out.Blocks = st.Blocks
	out.Bfree = st.Bfree
	out.Bavail = st.Bavail
	out.Files = st.Files
	out.Ffree = st.Ffree
	out.Bsize = uint32(st.Bsize)
	out.NameLen = uint32(st.Namelen)
	out.Frsize = uint32(st.Frsize)
	return fs.OK
}

// Access is a direct passthrough to unix.Access.
func (n *Node) Access(ctx context.Context, mask uint32) syscall.Errno {
	if err := unix.Access(n.backingPath, mask); err != nil {
		return errnoFrom(err)
	}
	return fs.OK
}
