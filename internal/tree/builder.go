package tree

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Entry is one slash-separated path relative to the root.
type Entry struct {
	Path string
	Size int64
	Dir  bool
}

// Build creates a tree from flat path entries:
// 1. Sort entries by path so sibling order is deterministic
// 2. Create missing intermediate directories on the way down
// 3. Attach each file or directory under its parent
func Build(rootName string, entries []Entry) (*Tree, NodeID, error) {
	t := New()
	root, err := t.NewContainer(rootName, NoParent)
	if err != nil {
		return nil, NoParent, err
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	for _, e := range sorted {
		clean := strings.Trim(path.Clean("/"+e.Path), "/")
		if clean == "" {
			continue
		}
		segments := strings.Split(clean, "/")

		parent, err := t.mkdirAll(root, segments[:len(segments)-1])
		if err != nil {
			return nil, NoParent, fmt.Errorf("failed to create parents of %s: %w", e.Path, err)
		}

		name := segments[len(segments)-1]
		if e.Dir {
			if _, err := t.mkdirAll(parent, []string{name}); err != nil {
				return nil, NoParent, fmt.Errorf("failed to create directory %s: %w", e.Path, err)
			}
			continue
		}
		if _, err := t.NewLeaf(name, e.Size, parent); err != nil {
			return nil, NoParent, fmt.Errorf("failed to create file %s: %w", e.Path, err)
		}
	}

	return t, root, nil
}

// mkdirAll descends from start through segments, creating directories that
// do not exist yet.
func (t *Tree) mkdirAll(start NodeID, segments []string) (NodeID, error) {
	cur := start
	for _, seg := range segments {
		if child, ok := t.FindChild(cur, seg); ok {
			if !t.IsContainer(child) {
				return NoParent, fmt.Errorf("%w: %q", ErrNotContainer, t.Path(child))
			}
			cur = child
			continue
		}
		next, err := t.NewContainer(seg, cur)
		if err != nil {
			return NoParent, err
		}
		cur = next
	}
	return cur, nil
}
