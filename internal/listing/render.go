package listing

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"dirsize/internal/tree"
)

// Render writes the subtree under root in the format Parse reads.
func Render(w io.Writer, t *tree.Tree, root tree.NodeID, opts *Options) error {
	bw := bufio.NewWriter(w)
	unit := strings.Repeat(" ", opts.indentWidth())

	var write func(id tree.NodeID, depth int) error
	write = func(id tree.NodeID, depth int) error {
		indent := strings.Repeat(unit, depth)
		var err error
		if t.IsContainer(id) {
			_, err = fmt.Fprintf(bw, "%s- %s (dir)\n", indent, t.Name(id))
		} else {
			_, err = fmt.Fprintf(bw, "%s- %s (file, size=%d)\n", indent, t.Name(id), t.Size(id))
		}
		if err != nil {
			return err
		}
		for _, c := range t.Children(id) {
			if err := write(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := write(root, 0); err != nil {
		return fmt.Errorf("failed to render listing: %w", err)
	}
	return bw.Flush()
}
