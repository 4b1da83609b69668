// Package mount exposes a tree as a read-only FUSE filesystem.
//
// Containers become directories. Leaves become regular files that report
// their recorded size and read back as that many zero bytes.
package mount

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"dirsize/internal/tree"
)

type Options struct {
	// StartTime is used for every timestamp. If zero, time.Now() at mount is used.
	StartTime time.Time
	Debug     bool
}

type view struct {
	tree  *tree.Tree
	start time.Time
}

// NewRoot returns the inode embedder for the container root.
func NewRoot(t *tree.Tree, root tree.NodeID, opts Options) (fs.InodeEmbedder, error) {
	if root < 0 || root >= tree.NodeID(t.Len()) || !t.IsContainer(root) {
		return nil, fmt.Errorf("mount root must be a container: %w", tree.ErrNotContainer)
	}
	start := opts.StartTime
	if start.IsZero() {
		start = time.Now()
	}
	return &dirNode{view: &view{tree: t, start: start}, id: root}, nil
}

// Mount serves the tree at dir until the returned server is unmounted.
func Mount(dir string, t *tree.Tree, root tree.NodeID, opts Options) (*fuse.Server, error) {
	node, err := NewRoot(t, root, opts)
	if err != nil {
		return nil, err
	}

	fsOpts := &fs.Options{}
	fsOpts.Debug = opts.Debug
	fsOpts.FsName = t.Name(root)
	fsOpts.Name = "dirsize"

	srv, err := fs.Mount(dir, node, fsOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to mount %s: %w", dir, err)
	}
	return srv, nil
}

func (v *view) child(id tree.NodeID) fs.InodeEmbedder {
	if v.tree.IsContainer(id) {
		return &dirNode{view: v, id: id}
	}
	return &fileNode{view: v, id: id}
}

func (v *view) mode(id tree.NodeID) uint32 {
	if v.tree.IsContainer(id) {
		return fuse.S_IFDIR
	}
	return fuse.S_IFREG
}

func (v *view) fill(attr *fuse.Attr, id tree.NodeID) {
	if v.tree.IsContainer(id) {
		attr.Mode = fuse.S_IFDIR | 0555
	} else {
		attr.Mode = fuse.S_IFREG | 0444
	}
	// Directories report their total size.
	attr.Size = uint64(v.tree.Size(id))
	attr.Atime = uint64(v.start.Unix())
	attr.Mtime = attr.Atime
	attr.Ctime = attr.Atime
}

// --- dirNode: container as directory ---

type dirNode struct {
	fs.Inode
	*view
	id tree.NodeID
}

var _ = (fs.NodeLookuper)((*dirNode)(nil))
var _ = (fs.NodeReaddirer)((*dirNode)(nil))
var _ = (fs.NodeGetattrer)((*dirNode)(nil))

func (n *dirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	id, ok := n.tree.FindChild(n.id, name)
	if !ok {
		return nil, syscall.ENOENT
	}
	n.fill(&out.Attr, id)
	return n.NewInode(ctx, n.child(id), fs.StableAttr{Mode: n.mode(id)}), 0
}

// Readdir lists children in insertion order. Repeated names resolve to the
// first child, matching Lookup.
func (n *dirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	children := n.tree.Children(n.id)
	seen := make(map[string]struct{}, len(children))
	entries := make([]fuse.DirEntry, 0, len(children))
	for _, id := range children {
		name := n.tree.Name(id)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		entries = append(entries, fuse.DirEntry{Name: name, Mode: n.mode(id)})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *dirNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	n.fill(&out.Attr, n.id)
	return 0
}

// --- fileNode: leaf as zero-filled file ---

type fileNode struct {
	fs.Inode
	*view
	id tree.NodeID
}

var _ = (fs.NodeOpener)((*fileNode)(nil))
var _ = (fs.NodeReader)((*fileNode)(nil))
var _ = (fs.NodeGetattrer)((*fileNode)(nil))

func (n *fileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *fileNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	return fuse.ReadResultData(zeroAt(n.tree.Size(n.id), dest, off)), 0
}

func (n *fileNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	n.fill(&out.Attr, n.id)
	return 0
}

// zeroAt returns the part of a size-byte zero file that fits in dest at off.
func zeroAt(size int64, dest []byte, off int64) []byte {
	if off < 0 || off >= size {
		return nil
	}
	n := int64(len(dest))
	if rest := size - off; rest < n {
		n = rest
	}
	clear(dest[:n])
	return dest[:n]
}
