package compare

import (
	"fmt"
	"sort"
	"strings"

	"dirsize/internal/hash"
	"dirsize/internal/tree"
)

type ChangeType string

const (
	Added    ChangeType = "ADDED"
	Modified ChangeType = "MODIFIED"
	Deleted  ChangeType = "DELETED"
)

// Entry is what a path looks like on one side of a comparison.
type Entry struct {
	Kind tree.Kind
	Size int64
}

type Change struct {
	Type ChangeType
	Path string
	Old  *Entry
	New  *Entry
}

type CompareResult struct {
	Added    []Change
	Modified []Change
	Deleted  []Change
}

func (r *CompareResult) HasChanges() bool {
	return len(r.Added) > 0 || len(r.Modified) > 0 || len(r.Deleted) > 0
}

// index maps every path under root to its entry. Repeated file paths, which
// a transcript with a repeated ls produces, are summed.
func index(t *tree.Tree, root tree.NodeID) map[string]Entry {
	entries := make(map[string]Entry)
	for _, id := range tree.Walk(t, root) {
		path := t.Path(id)
		e, seen := entries[path]
		if seen && e.Kind == tree.Leaf && !t.IsContainer(id) {
			e.Size += t.Size(id)
			entries[path] = e
			continue
		}
		entries[path] = Entry{Kind: t.Kind(id), Size: t.Size(id)}
	}
	return entries
}

// Compare reports the paths that differ between two trees.
func Compare(oldTree *tree.Tree, oldRoot tree.NodeID, newTree *tree.Tree, newRoot tree.NodeID) (*CompareResult, error) {
	result := &CompareResult{
		Added:    make([]Change, 0),
		Modified: make([]Change, 0),
		Deleted:  make([]Change, 0),
	}

	oldDigest, err := hash.Digest(oldTree, oldRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to digest old tree: %w", err)
	}
	newDigest, err := hash.Digest(newTree, newRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to digest new tree: %w", err)
	}
	if oldDigest == newDigest {
		return result, nil
	}

	oldEntries := index(oldTree, oldRoot)
	newEntries := index(newTree, newRoot)

	// Check for added and modified paths
	for path, newEntry := range newEntries {
		newCopy := newEntry
		if oldEntry, exists := oldEntries[path]; exists {
			if oldEntry != newEntry {
				oldCopy := oldEntry
				result.Modified = append(result.Modified, Change{
					Type: Modified,
					Path: path,
					Old:  &oldCopy,
					New:  &newCopy,
				})
			}
		} else {
			result.Added = append(result.Added, Change{
				Type: Added,
				Path: path,
				New:  &newCopy,
			})
		}
	}

	// Check for deleted paths
	for path, oldEntry := range oldEntries {
		if _, exists := newEntries[path]; !exists {
			oldCopy := oldEntry
			result.Deleted = append(result.Deleted, Change{
				Type: Deleted,
				Path: path,
				Old:  &oldCopy,
			})
		}
	}

	// Sort for deterministic output
	for _, changes := range [][]Change{result.Added, result.Modified, result.Deleted} {
		sort.Slice(changes, func(i, j int) bool {
			return changes[i].Path < changes[j].Path
		})
	}

	return result, nil
}

func FormatReport(result *CompareResult) string {
	if !result.HasChanges() {
		return "No changes detected."
	}

	var report strings.Builder
	report.WriteString("Changes detected:\n\n")

	if len(result.Added) > 0 {
		fmt.Fprintf(&report, "ADDED (%d):\n", len(result.Added))
		for _, change := range result.Added {
			fmt.Fprintf(&report, "  + %s (%s, size: %d)\n", change.Path, change.New.Kind, change.New.Size)
		}
		report.WriteString("\n")
	}

	if len(result.Modified) > 0 {
		fmt.Fprintf(&report, "MODIFIED (%d):\n", len(result.Modified))
		for _, change := range result.Modified {
			fmt.Fprintf(&report, "  ~ %s\n", change.Path)
			fmt.Fprintf(&report, "    Old: %s, size=%d\n", change.Old.Kind, change.Old.Size)
			fmt.Fprintf(&report, "    New: %s, size=%d\n", change.New.Kind, change.New.Size)
		}
		report.WriteString("\n")
	}

	if len(result.Deleted) > 0 {
		fmt.Fprintf(&report, "DELETED (%d):\n", len(result.Deleted))
		for _, change := range result.Deleted {
			fmt.Fprintf(&report, "  - %s (%s, size: %d)\n", change.Path, change.Old.Kind, change.Old.Size)
		}
		report.WriteString("\n")
	}

	fmt.Fprintf(&report, "Summary: %d added, %d modified, %d deleted\n",
		len(result.Added), len(result.Modified), len(result.Deleted))

	return report.String()
}
