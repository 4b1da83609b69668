package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"dirsize/internal/config"
	"dirsize/internal/logging"
	"dirsize/internal/metrics"
	"dirsize/internal/progress"
	"dirsize/internal/source"
	"dirsize/internal/tree"
)

// errChanges signals that compare found differences. It maps to exit code 1.
var errChanges = errors.New("trees differ")

type app struct {
	configPath string
	format     string
	logLevel   string
	quiet      bool
	workers    int

	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "dirsize",
		Short:         "Rebuild directory trees from listings and transcripts and query their sizes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "dirsize.yaml", "Config file path")
	flags.StringVarP(&a.format, "format", "f", "auto", "Input format: auto, listing, transcript or json")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Hide the progress bar")
	flags.IntVarP(&a.workers, "workers", "w", 0, "Inputs loaded in parallel (default from config)")

	root.AddCommand(
		a.sizesCmd(),
		a.freeCmd(),
		a.walkCmd(),
		a.convertCmd(),
		a.compareCmd(),
		a.digestCmd(),
		a.scanCmd(),
		a.serveCmd(),
		a.mountCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.workers > 0 {
		cfg.Workers = a.workers
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}

	a.cfg = cfg
	a.logger = logging.L()
	a.metrics = metrics.New()
	return nil
}

// load parses every path with the configured format and workers. Skipped
// lines are logged at debug level and counted.
func (a *app) load(ctx context.Context, cmd *cobra.Command, paths []string) ([]*source.Result, error) {
	format, err := source.ParseFormat(a.format)
	if err != nil {
		return nil, err
	}

	var bar *progress.Bar
	if !a.quiet && len(paths) > 1 && isTerminal(cmd.ErrOrStderr()) {
		bar = progress.New(int64(len(paths)), cmd.ErrOrStderr())
	}

	opts := source.Options{
		IndentWidth: a.cfg.IndentWidth,
		OnSkip: func(input string, e *tree.LineError) {
			logging.SkippedLines(a.logger, input)(e)
		},
	}
	results, err := source.LoadFiles(ctx, paths, format, a.cfg.Workers, opts, bar)
	bar.Finish()
	if err != nil {
		a.metrics.RecordBuildError(string(format))
		return nil, err
	}

	for _, res := range results {
		a.metrics.RecordBuild(string(res.Format), res.Tree.Len(), res.Skipped)
		a.logger.Debug("tree built",
			zap.String("input", res.Name),
			zap.String("format", string(res.Format)),
			zap.Int("nodes", res.Tree.Len()),
			zap.Int("skipped", res.Skipped),
		)
		if res.Skipped > 0 {
			a.logger.Warn("ignored malformed lines",
				zap.String("input", res.Name),
				zap.Int("count", res.Skipped),
			)
		}
	}
	return results, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// override copies a flag value over the config only when the flag was given.
func override[T any](flags *pflag.FlagSet, name string, dst *T, v T) {
	if flags.Changed(name) {
		*dst = v
	}
}

func main() {
	err := newRootCmd().Execute()
	switch {
	case err == nil:
	case errors.Is(err, errChanges):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}
