// Package history rebuilds a directory tree by replaying a shell transcript
// of "$ cd <dir>" and "$ ls" commands together with the ls output.
package history

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dirsize/internal/tree"
)

const (
	commandPrefix = "$"
	upMarker      = ".."
)

// ErrNavigation is returned when "cd .." is issued with nowhere to go.
var ErrNavigation = errors.New("cannot navigate above the root")

type Options struct {
	// OnSkip, if set, is called for every line that could not be used.
	OnSkip tree.SkipFunc
}

func (o *Options) skip(line int, text string, err error) {
	if o == nil || o.OnSkip == nil {
		return
	}
	o.OnSkip(&tree.LineError{Line: line, Text: text, Err: err})
}

// replayer holds the cursor for a single replay.
type replayer struct {
	t         *tree.Tree
	cwd       tree.NodeID
	inListing bool
	opts      *Options
}

// ReplayString is Replay over an in-memory transcript.
func ReplayString(text string, opts *Options) (*tree.Tree, tree.NodeID, error) {
	return Replay(strings.NewReader(text), opts)
}

// Replay walks the transcript in order and returns the tree it describes.
//
// Only ".." is special to cd; any other target, "/" included, names a child
// of the current directory. A cd into a directory that no ls has declared
// creates it. Repeating an ls for the same directory adds its files a second
// time.
func Replay(r io.Reader, opts *Options) (*tree.Tree, tree.NodeID, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024), 1024*1024)

	rp := &replayer{
		t:    tree.New(),
		cwd:  tree.NoParent,
		opts: opts,
	}

	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		var err error
		if strings.HasPrefix(line, commandPrefix) {
			rp.inListing = false
			err = rp.command(strings.TrimSpace(strings.TrimPrefix(line, commandPrefix)))
		} else if rp.inListing {
			err = rp.entry(strings.TrimSpace(line))
		} else {
			err = fmt.Errorf("%w: output outside of ls", tree.ErrMalformedLine)
		}

		if err == nil {
			continue
		}
		if errors.Is(err, ErrNavigation) {
			return nil, tree.NoParent, &tree.LineError{Line: lineNum, Text: line, Err: err}
		}
		opts.skip(lineNum, line, err)
	}
	if err := sc.Err(); err != nil {
		return nil, tree.NoParent, fmt.Errorf("failed to read transcript: %w", err)
	}

	if rp.cwd == tree.NoParent {
		return nil, tree.NoParent, tree.ErrEmptyInput
	}
	return rp.t, rp.t.Root(rp.cwd), nil
}

func (rp *replayer) command(cmd string) error {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "cd":
		if arg == "" {
			return fmt.Errorf("%w: cd needs a target", tree.ErrMalformedLine)
		}
		return rp.cd(arg)
	case "ls":
		if rp.cwd == tree.NoParent {
			return fmt.Errorf("%w: ls before any cd", tree.ErrMalformedLine)
		}
		rp.inListing = true
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", tree.ErrMalformedLine, name)
	}
}

func (rp *replayer) cd(target string) error {
	switch {
	case target == upMarker:
		if rp.cwd == tree.NoParent || rp.t.Parent(rp.cwd) == tree.NoParent {
			return ErrNavigation
		}
		rp.cwd = rp.t.Parent(rp.cwd)
		return nil

	case rp.cwd == tree.NoParent:
		id, err := rp.t.NewContainer(target, tree.NoParent)
		if err != nil {
			return fmt.Errorf("%w: %v", tree.ErrMalformedLine, err)
		}
		rp.cwd = id
		return nil
	}

	if child, ok := rp.t.FindChild(rp.cwd, target); ok && rp.t.IsContainer(child) {
		rp.cwd = child
		return nil
	}

	// The directory was never listed; create it rather than fail.
	id, err := rp.t.NewContainer(target, rp.cwd)
	if err != nil {
		return fmt.Errorf("%w: %v", tree.ErrMalformedLine, err)
	}
	rp.cwd = id
	return nil
}

// entry handles one line of ls output: "dir <name>" or "<size> <name>".
func (rp *replayer) entry(line string) error {
	head, name, ok := strings.Cut(line, " ")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("%w: expected two fields", tree.ErrMalformedLine)
	}

	if head == "dir" {
		// A file with the same name also blocks the directory.
		if _, exists := rp.t.ChildNames(rp.cwd)[name]; exists {
			return nil
		}
		if _, err := rp.t.NewContainer(name, rp.cwd); err != nil {
			return fmt.Errorf("%w: %v", tree.ErrMalformedLine, err)
		}
		return nil
	}

	size, err := strconv.ParseInt(head, 10, 64)
	if err != nil || size < 0 {
		return fmt.Errorf("%w: bad size %q", tree.ErrMalformedLine, head)
	}
	if _, err := rp.t.NewLeaf(name, size, rp.cwd); err != nil {
		return fmt.Errorf("%w: %v", tree.ErrMalformedLine, err)
	}
	return nil
}
