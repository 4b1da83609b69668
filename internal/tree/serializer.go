package tree

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type SerializedTree struct {
	Generator string          `json:"generator"`
	Created   time.Time       `json:"created"`
	Root      string          `json:"root"`
	Size      string          `json:"size"`
	Tree      *SerializedNode `json:"tree"`
}

type SerializedNode struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Size     int64             `json:"size"`
	Children []*SerializedNode `json:"children,omitempty"`
}

// FormatSize renders a byte count for humans.
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

func serializeNode(t *Tree, id NodeID) *SerializedNode {
	sn := &SerializedNode{
		Name: t.Name(id),
		Type: t.Kind(id).String(),
		Size: t.Size(id),
	}
	for _, c := range t.nodes[id].children {
		sn.Children = append(sn.Children, serializeNode(t, c))
	}
	return sn
}

func Marshal(t *Tree, root NodeID) ([]byte, error) {
	serialized := SerializedTree{
		Generator: "dirsize",
		Created:   time.Now().UTC(),
		Root:      t.Name(root),
		Size:      FormatSize(t.Size(root)),
		Tree:      serializeNode(t, root),
	}

	data, err := json.MarshalIndent(serialized, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tree: %w", err)
	}
	return data, nil
}

// Unmarshal rebuilds a tree from Marshal output. Directory sizes in the
// document are ignored; they are always derived from the leaves.
func Unmarshal(data []byte) (*Tree, NodeID, error) {
	var serialized SerializedTree
	if err := json.Unmarshal(data, &serialized); err != nil {
		return nil, NoParent, fmt.Errorf("failed to unmarshal tree: %w", err)
	}
	if serialized.Tree == nil {
		return nil, NoParent, ErrEmptyInput
	}
	if serialized.Tree.Type != Container.String() {
		return nil, NoParent, fmt.Errorf("root %q must be a directory", serialized.Tree.Name)
	}

	t := New()
	var restore func(sn *SerializedNode, parent NodeID) (NodeID, error)
	restore = func(sn *SerializedNode, parent NodeID) (NodeID, error) {
		switch sn.Type {
		case Leaf.String():
			return t.NewLeaf(sn.Name, sn.Size, parent)
		case Container.String():
			id, err := t.NewContainer(sn.Name, parent)
			if err != nil {
				return NoParent, err
			}
			for _, c := range sn.Children {
				if _, err := restore(c, id); err != nil {
					return NoParent, err
				}
			}
			return id, nil
		default:
			return NoParent, fmt.Errorf("unknown node type %q for %q", sn.Type, sn.Name)
		}
	}

	root, err := restore(serialized.Tree, NoParent)
	if err != nil {
		return nil, NoParent, fmt.Errorf("failed to rebuild tree: %w", err)
	}
	return t, root, nil
}

func Save(t *Tree, root NodeID, path string) error {
	data, err := Marshal(t, root)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func Load(path string) (*Tree, NodeID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NoParent, fmt.Errorf("failed to read file: %w", err)
	}
	return Unmarshal(data)
}
