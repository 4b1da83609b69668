// Package source turns raw input text into a tree, whichever format it is in.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"dirsize/internal/history"
	"dirsize/internal/listing"
	"dirsize/internal/progress"
	"dirsize/internal/tree"
)

type Format string

const (
	Auto       Format = "auto"
	Listing    Format = "listing"
	Transcript Format = "transcript"
	JSON       Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return Auto, nil
	case Auto, Listing, Transcript, JSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want auto, listing, transcript or json)", s)
	}
}

// Detect guesses the format from the first non-blank line.
func Detect(text string) Format {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "$"):
			return Transcript
		case strings.HasPrefix(line, "{"):
			return JSON
		default:
			return Listing
		}
	}
	return Listing
}

type Options struct {
	IndentWidth int
	// OnSkip, if set, receives every skipped line along with the input name.
	OnSkip func(input string, e *tree.LineError)
}

type Result struct {
	Name    string
	Format  Format
	Tree    *tree.Tree
	Root    tree.NodeID
	Skipped int
}

// Parse builds a tree from text. name only labels the result and skip reports.
func Parse(name, text string, format Format, opts Options) (*Result, error) {
	if format == Auto || format == "" {
		format = Detect(text)
	}

	res := &Result{Name: name, Format: format}
	onSkip := func(e *tree.LineError) {
		res.Skipped++
		if opts.OnSkip != nil {
			opts.OnSkip(name, e)
		}
	}

	var err error
	switch format {
	case Listing:
		res.Tree, res.Root, err = listing.ParseString(text, &listing.Options{
			IndentWidth: opts.IndentWidth,
			OnSkip:      onSkip,
		})
	case Transcript:
		res.Tree, res.Root, err = history.ReplayString(text, &history.Options{OnSkip: onSkip})
	case JSON:
		res.Tree, res.Root, err = tree.Unmarshal([]byte(text))
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return res, nil
}

// LoadFile reads path, or stdin when path is "-", and parses it.
func LoadFile(path string, format Format, opts Options) (*Result, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(path, string(data), format, opts)
}

// LoadFiles loads every path with up to workers goroutines. Each tree is
// built and owned by a single goroutine. Results keep the order of paths.
func LoadFiles(ctx context.Context, paths []string, format Format, workers int, opts Options, bar *progress.Bar) ([]*Result, error) {
	if workers <= 0 {
		workers = 1
	}

	results := make([]*Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bar.Start(path)
			res, err := LoadFile(path, format, opts)
			bar.Done(path)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
