package tree

// Walk returns every node under root in depth-first pre-order, root first,
// children in insertion order. Each call re-derives the sequence from the tree.
func Walk(t *Tree, root NodeID) []NodeID {
	out := make([]NodeID, 0, t.Len())
	var visit func(NodeID)
	visit = func(id NodeID) {
		out = append(out, id)
		for _, c := range t.nodes[id].children {
			visit(c)
		}
	}
	visit(root)
	return out
}

// Containers is Walk restricted to directories.
func Containers(t *Tree, root NodeID) []NodeID {
	var out []NodeID
	for _, id := range Walk(t, root) {
		if t.IsContainer(id) {
			out = append(out, id)
		}
	}
	return out
}

// Names maps a walk to node names, which is how two trees built from
// different sources are compared.
func Names(t *Tree, ids []NodeID) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = t.Name(id)
	}
	return names
}
