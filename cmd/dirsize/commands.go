package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dirsize/internal/api"
	"dirsize/internal/compare"
	"dirsize/internal/hash"
	"dirsize/internal/listing"
	"dirsize/internal/mount"
	"dirsize/internal/query"
	"dirsize/internal/tree"
	"dirsize/internal/walker"
)

func (a *app) sizesCmd() *cobra.Command {
	var (
		minSize, maxSize int64
		list             bool
	)
	cmd := &cobra.Command{
		Use:   "sizes FILE...",
		Short: "Sum the sizes of directories within a size window",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			override(cmd.Flags(), "min", &a.cfg.MinSize, minSize)
			override(cmd.Flags(), "max", &a.cfg.MaxSize, maxSize)
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			results, err := a.load(cmd.Context(), cmd, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, res := range results {
				sizes := query.FilteredContainerSizes(res.Tree, res.Root, a.cfg.MinSize, a.cfg.MaxSize)
				a.metrics.RecordQuery("sizes", nil)
				if len(results) > 1 {
					fmt.Fprintf(out, "%s: ", res.Name)
				}
				fmt.Fprintf(out, "%d\n", query.Sum(sizes))
				if list {
					for _, s := range sizes {
						fmt.Fprintf(out, "  %d\n", s)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&minSize, "min", 0, "Smallest directory size counted (default from config)")
	cmd.Flags().Int64Var(&maxSize, "max", 0, "Largest directory size counted (default from config)")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "Also print each matching size")
	return cmd
}

func (a *app) freeCmd() *cobra.Command {
	var total, minFree int64
	cmd := &cobra.Command{
		Use:   "free FILE...",
		Short: "Find the smallest directory whose deletion frees enough space",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			override(cmd.Flags(), "total", &a.cfg.TotalCapacity, total)
			override(cmd.Flags(), "min-free", &a.cfg.MinFree, minFree)
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			results, err := a.load(cmd.Context(), cmd, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, res := range results {
				free, err := query.FreeSpace(res.Tree, res.Root, a.cfg.TotalCapacity, a.cfg.MinFree)
				a.metrics.RecordQuery("free", err)
				if err != nil {
					return fmt.Errorf("%s: %w", res.Name, err)
				}
				a.logger.Debug("free space",
					zap.String("input", res.Name),
					zap.Int64("available", free.Available),
					zap.Int64("deficit", free.Deficit),
				)
				if len(results) > 1 {
					fmt.Fprintf(out, "%s: ", res.Name)
				}
				fmt.Fprintf(out, "%d\n", free.Smallest)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&total, "total", 0, "Volume capacity (default from config)")
	cmd.Flags().Int64Var(&minFree, "min-free", 0, "Free space required (default from config)")
	return cmd
}

func (a *app) walkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "walk FILE",
		Short: "Print every node in pre-order with its kind and total size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.load(cmd.Context(), cmd, args)
			if err != nil {
				return err
			}
			res := results[0]
			out := cmd.OutOrStdout()
			for _, id := range tree.Walk(res.Tree, res.Root) {
				fmt.Fprintf(out, "%-4s %12d  %s\n", res.Tree.Kind(id), res.Tree.Size(id), res.Tree.Path(id))
			}
			return nil
		},
	}
}

// writeTree renders t as a listing or as JSON.
func (a *app) writeTree(w io.Writer, t *tree.Tree, root tree.NodeID, to string) error {
	switch to {
	case "listing":
		return listing.Render(w, t, root, &listing.Options{IndentWidth: a.cfg.IndentWidth})
	case "json":
		data, err := tree.Marshal(t, root)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	default:
		return fmt.Errorf("unknown output format %q (want listing or json)", to)
	}
}

// output opens path for writing, or returns stdout when path is empty.
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}

func (a *app) convertCmd() *cobra.Command {
	var to, outPath string
	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Rewrite an input as a listing or as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.load(cmd.Context(), cmd, args)
			if err != nil {
				return err
			}
			w, closeFn, err := output(cmd, outPath)
			if err != nil {
				return err
			}
			if err := a.writeTree(w, results[0].Tree, results[0].Root, to); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}
	cmd.Flags().StringVar(&to, "to", "listing", "Output format: listing or json")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func (a *app) compareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare OLD NEW",
		Short: "Report nodes added, modified or deleted between two inputs",
		Long:  "Report nodes added, modified or deleted between two inputs.\nExits 1 when the trees differ.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.load(cmd.Context(), cmd, args)
			if err != nil {
				return err
			}
			oldRes, newRes := results[0], results[1]

			result, err := compare.Compare(oldRes.Tree, oldRes.Root, newRes.Tree, newRes.Root)
			if err != nil {
				return fmt.Errorf("failed to compare trees: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), compare.FormatReport(result))

			if result.HasChanges() {
				return errChanges
			}
			return nil
		},
	}
}

func (a *app) digestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest FILE...",
		Short: "Print a content digest of each tree",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.load(cmd.Context(), cmd, args)
			if err != nil {
				return err
			}
			for _, res := range results {
				digest, err := hash.Digest(res.Tree, res.Root)
				if err != nil {
					return fmt.Errorf("%s: %w", res.Name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", digest, res.Name)
			}
			return nil
		},
	}
}

func (a *app) scanCmd() *cobra.Command {
	var to, outPath string
	cmd := &cobra.Command{
		Use:   "scan DIR",
		Short: "Build a tree from a real directory and write it out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absDirectory, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("failed to get absolute path: %w", err)
			}

			a.logger.Info("scanning directory", zap.String("path", absDirectory))
			result, err := walker.Scan(absDirectory, a.cfg.Exclude)
			if err != nil {
				return fmt.Errorf("failed to walk directory: %w", err)
			}
			a.metrics.RecordBuild("scan", result.Tree.Len(), len(result.Errors))
			for _, e := range result.Errors {
				a.logger.Warn("skipped entry", zap.Error(e))
			}
			a.logger.Info("scan complete",
				zap.Int("files", result.Files),
				zap.Int64("size", result.Tree.Size(result.Root)),
				zap.String("human_size", tree.FormatSize(result.Tree.Size(result.Root))),
			)

			w, closeFn, err := output(cmd, outPath)
			if err != nil {
				return err
			}
			if err := a.writeTree(w, result.Tree, result.Root, to); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}
	cmd.Flags().StringVar(&to, "to", "listing", "Output format: listing or json")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the size queries over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			override(cmd.Flags(), "listen", &a.cfg.Listen, listen)

			handler := api.NewHandler(a.cfg, a.metrics, a.logger)
			e := api.SetupRouter(handler)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("starting server", zap.String("addr", a.cfg.Listen))
				if err := e.Start(a.cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			a.logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config)")
	return cmd
}

func (a *app) mountCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "mount FILE DIR",
		Short: "Mount a tree as a read-only filesystem",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.load(cmd.Context(), cmd, args[:1])
			if err != nil {
				return err
			}
			res := results[0]

			srv, err := mount.Mount(args[1], res.Tree, res.Root, mount.Options{Debug: debug})
			if err != nil {
				return err
			}
			a.logger.Info("mounted", zap.String("input", res.Name), zap.String("dir", args[1]))

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-signals
				if err := srv.Unmount(); err != nil {
					a.logger.Error("unmount failed", zap.Error(err))
				}
			}()

			srv.Wait()
			a.logger.Info("unmounted", zap.String("dir", args[1]))
			return nil
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "Log FUSE requests")
	return cmd
}
