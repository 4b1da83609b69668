package tree

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// NodeID is a handle into a Tree's node arena.
type NodeID int

// NoParent marks the root, or a node that has not been attached yet.
const NoParent NodeID = -1

type Kind int

const (
	Leaf Kind = iota
	Container
)

func (k Kind) String() string {
	switch k {
	case Leaf:
		return "file"
	case Container:
		return "dir"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type node struct {
	name     string
	kind     Kind
	size     int64
	parent   NodeID
	children []NodeID
}

// Tree owns every node reachable from its root. Parent links are plain
// handles and never imply ownership.
type Tree struct {
	nodes []node
}

func New() *Tree {
	return &Tree{}
}

// NewContainer creates a directory and attaches it to parent unless parent is NoParent.
func (t *Tree) NewContainer(name string, parent NodeID) (NodeID, error) {
	return t.create(node{name: name, kind: Container, parent: NoParent}, parent)
}

// NewLeaf creates a file with an immutable size.
func (t *Tree) NewLeaf(name string, size int64, parent NodeID) (NodeID, error) {
	if size < 0 {
		return NoParent, fmt.Errorf("negative size %d for %q", size, name)
	}
	return t.create(node{name: name, kind: Leaf, size: size, parent: NoParent}, parent)
}

func (t *Tree) create(n node, parent NodeID) (NodeID, error) {
	if n.name == "" {
		return NoParent, errors.New("node name must not be empty")
	}
	if parent != NoParent {
		if !t.valid(parent) {
			return NoParent, fmt.Errorf("%w: parent %d", ErrUnknownNode, parent)
		}
		if t.nodes[parent].kind != Container {
			return NoParent, fmt.Errorf("%w: %q", ErrNotContainer, t.nodes[parent].name)
		}
	}

	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, n)
	if parent != NoParent {
		if err := t.Attach(id, parent); err != nil {
			return NoParent, err
		}
	}
	return id, nil
}

// Attach points id's back-reference at parent and makes parent own it.
// Attaching a node to its current parent, or to itself, is a no-op.
func (t *Tree) Attach(id, parent NodeID) error {
	if !t.valid(id) || !t.valid(parent) {
		return ErrUnknownNode
	}
	if id == parent || t.nodes[id].parent == parent {
		return nil
	}
	if t.nodes[parent].kind != Container {
		return fmt.Errorf("%w: %q", ErrNotContainer, t.nodes[parent].name)
	}
	if t.nodes[id].parent != NoParent {
		return fmt.Errorf("%w: %q", ErrAlreadyAttached, t.nodes[id].name)
	}
	for p := parent; p != NoParent; p = t.nodes[p].parent {
		if p == id {
			return fmt.Errorf("%w: %q under %q", ErrCycle, t.nodes[id].name, t.nodes[parent].name)
		}
	}

	t.nodes[id].parent = parent
	return t.AddChild(parent, id)
}

// AddChild appends id to parent's children unless that exact node is already
// there. Another node carrying the same name is not rejected.
func (t *Tree) AddChild(parent, id NodeID) error {
	if !t.valid(id) || !t.valid(parent) {
		return ErrUnknownNode
	}
	if t.nodes[parent].kind != Container {
		return fmt.Errorf("%w: %q", ErrNotContainer, t.nodes[parent].name)
	}
	for _, c := range t.nodes[parent].children {
		if c == id {
			return nil
		}
	}
	// Attach validates the link and re-enters here once the parent is set.
	if t.nodes[id].parent != parent {
		return t.Attach(id, parent)
	}

	t.nodes[parent].children = append(t.nodes[parent].children, id)
	return nil
}

// Size walks the whole subtree on every call. Callers that query many
// containers repeatedly should keep their own cache. Totals saturate at
// math.MaxInt64 instead of wrapping.
func (t *Tree) Size(id NodeID) int64 {
	n := &t.nodes[id]
	if n.kind == Leaf {
		return n.size
	}
	var total int64
	for _, c := range n.children {
		s := t.Size(c)
		if total > math.MaxInt64-s {
			return math.MaxInt64
		}
		total += s
	}
	return total
}

func (t *Tree) Root(id NodeID) NodeID {
	for t.nodes[id].parent != NoParent {
		id = t.nodes[id].parent
	}
	return id
}

func (t *Tree) ChildNames(id NodeID) map[string]struct{} {
	names := make(map[string]struct{}, len(t.nodes[id].children))
	for _, c := range t.nodes[id].children {
		names[t.nodes[c].name] = struct{}{}
	}
	return names
}

// FindChild returns the first child of id named name.
func (t *Tree) FindChild(id NodeID, name string) (NodeID, bool) {
	for _, c := range t.nodes[id].children {
		if t.nodes[c].name == name {
			return c, true
		}
	}
	return NoParent, false
}

func (t *Tree) Name(id NodeID) string { return t.nodes[id].name }

func (t *Tree) Kind(id NodeID) Kind { return t.nodes[id].kind }

func (t *Tree) IsContainer(id NodeID) bool { return t.nodes[id].kind == Container }

func (t *Tree) Parent(id NodeID) NodeID { return t.nodes[id].parent }

// Children returns a copy of id's children in insertion order.
func (t *Tree) Children(id NodeID) []NodeID {
	out := make([]NodeID, len(t.nodes[id].children))
	copy(out, t.nodes[id].children)
	return out
}

// Len is the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// Path joins the names from the root down to id with "/". A root named "/"
// does not produce a doubled separator.
func (t *Tree) Path(id NodeID) string {
	var parts []string
	for p := id; p != NoParent; p = t.nodes[p].parent {
		parts = append(parts, t.nodes[p].name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	if parts[0] == "/" {
		return "/" + strings.Join(parts[1:], "/")
	}
	return strings.Join(parts, "/")
}

func (t *Tree) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}
