// Package query answers size questions about a built tree.
//
// Every helper here recomputes directory sizes from the leaves, so each call
// costs a full traversal.
package query

import (
	"errors"
	"fmt"

	"dirsize/internal/tree"
)

// ErrUnsatisfiable means no directory meets the requested threshold.
var ErrUnsatisfiable = errors.New("no directory satisfies the threshold")

// FilteredContainerSizes returns the size of every directory under root whose
// size lies in [minSize, maxSize], in walk order.
func FilteredContainerSizes(t *tree.Tree, root tree.NodeID, minSize, maxSize int64) []int64 {
	var sizes []int64
	for _, id := range tree.Containers(t, root) {
		if s := t.Size(id); s >= minSize && s <= maxSize {
			sizes = append(sizes, s)
		}
	}
	return sizes
}

func Sum(sizes []int64) int64 {
	var total int64
	for _, s := range sizes {
		total += s
	}
	return total
}

// Free describes how much space has to be released on a volume.
type Free struct {
	Available int64 `json:"available"`
	Deficit   int64 `json:"deficit"`
	Smallest  int64 `json:"smallest"`
}

// SmallestContainerAtLeast finds the smallest directory whose removal would
// leave at least minFree of totalCapacity available.
func SmallestContainerAtLeast(t *tree.Tree, root tree.NodeID, totalCapacity, minFree int64) (int64, error) {
	f, err := FreeSpace(t, root, totalCapacity, minFree)
	if err != nil {
		return 0, err
	}
	return f.Smallest, nil
}

// FreeSpace is SmallestContainerAtLeast with the intermediate figures.
func FreeSpace(t *tree.Tree, root tree.NodeID, totalCapacity, minFree int64) (Free, error) {
	available := totalCapacity - t.Size(root)
	deficit := minFree - available

	candidates := FilteredContainerSizes(t, root, deficit, totalCapacity)
	if len(candidates) == 0 {
		return Free{}, fmt.Errorf("%w: need %d, capacity %d", ErrUnsatisfiable, deficit, totalCapacity)
	}

	smallest := candidates[0]
	for _, s := range candidates[1:] {
		if s < smallest {
			smallest = s
		}
	}
	return Free{Available: available, Deficit: deficit, Smallest: smallest}, nil
}
