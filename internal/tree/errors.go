package tree

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput      = errors.New("empty input: no root could be established")
	ErrMalformedLine   = errors.New("malformed line")
	ErrNotContainer    = errors.New("parent is not a container")
	ErrAlreadyAttached = errors.New("node is already attached to another parent")
	ErrCycle           = errors.New("attachment would create a cycle")
	ErrUnknownNode     = errors.New("unknown node")
)

// LineError reports a problem with a single input line. Line is 1-based.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// SkipFunc is told about every line a parser ignored.
type SkipFunc func(*LineError)
