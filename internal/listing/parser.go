// Package listing reads and writes the nested, indented tree listing. Each
// line holds one entry, such as "- a (dir)" or "- b.txt (file, size=14848514)",
// and each nesting level adds a fixed number of spaces before the dash.
package listing

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"dirsize/internal/tree"
)

// DefaultIndentWidth is the number of spaces per nesting level.
const DefaultIndentWidth = 2

var linePattern = regexp.MustCompile(`^( *)- (.*?) \((dir|file)(?:, size=([0-9]+))?\)`)

type Options struct {
	// IndentWidth is the number of spaces per level. Zero means DefaultIndentWidth.
	IndentWidth int
	// OnSkip, if set, is called for every line that does not match the grammar.
	OnSkip tree.SkipFunc
}

func (o *Options) indentWidth() int {
	if o == nil || o.IndentWidth <= 0 {
		return DefaultIndentWidth
	}
	return o.IndentWidth
}

func (o *Options) skip(line int, text string, err error) {
	if o == nil || o.OnSkip == nil {
		return
	}
	o.OnSkip(&tree.LineError{Line: line, Text: text, Err: err})
}

// ParseString is Parse over an in-memory listing.
func ParseString(text string, opts *Options) (*tree.Tree, tree.NodeID, error) {
	return Parse(strings.NewReader(text), opts)
}

// Parse builds a tree from a listing and returns it with the root of the
// last directory seen. Lines that do not match the grammar are skipped.
func Parse(r io.Reader, opts *Options) (*tree.Tree, tree.NodeID, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024), 1024*1024)

	t := tree.New()
	width := opts.indentWidth()
	cursor := tree.NoParent
	cursorDepth := 0
	lineNum := 0

	for sc.Scan() {
		lineNum++
		raw := strings.TrimRight(sc.Text(), "\r")

		m := linePattern.FindStringSubmatch(raw)
		if m == nil {
			opts.skip(lineNum, raw, tree.ErrMalformedLine)
			continue
		}
		depth := len(m[1]) / width
		name, kind, sizeText := m[2], m[3], m[4]

		var size int64
		switch {
		case name == "":
			opts.skip(lineNum, raw, fmt.Errorf("%w: empty name", tree.ErrMalformedLine))
			continue
		case kind == "file" && sizeText == "":
			opts.skip(lineNum, raw, fmt.Errorf("%w: file without size", tree.ErrMalformedLine))
			continue
		case kind == "file":
			var err error
			if size, err = strconv.ParseInt(sizeText, 10, 64); err != nil {
				opts.skip(lineNum, raw, fmt.Errorf("%w: %v", tree.ErrMalformedLine, err))
				continue
			}
		}

		// Find the parent for this line's level. Depths are compared rather
		// than counted, so jumps of several levels are handled too. The cursor
		// only moves once the line is accepted.
		parent, parentDepth := cursor, cursorDepth
		for parent != tree.NoParent && parentDepth >= depth {
			parent = t.Parent(parent)
			parentDepth--
		}

		if kind == "dir" {
			id, err := t.NewContainer(name, parent)
			if err != nil {
				opts.skip(lineNum, raw, fmt.Errorf("%w: %v", tree.ErrMalformedLine, err))
				continue
			}
			cursor, cursorDepth = id, depth
			continue
		}

		if parent == tree.NoParent {
			opts.skip(lineNum, raw, fmt.Errorf("%w: file outside any directory", tree.ErrMalformedLine))
			continue
		}
		if _, err := t.NewLeaf(name, size, parent); err != nil {
			opts.skip(lineNum, raw, fmt.Errorf("%w: %v", tree.ErrMalformedLine, err))
			continue
		}
		cursor, cursorDepth = parent, parentDepth
	}
	if err := sc.Err(); err != nil {
		return nil, tree.NoParent, fmt.Errorf("failed to read listing: %w", err)
	}

	if cursor == tree.NoParent {
		return nil, tree.NoParent, tree.ErrEmptyInput
	}
	return t, t.Root(cursor), nil
}
