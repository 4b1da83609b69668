package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dirsize/internal/config"
	"dirsize/internal/hash"
	"dirsize/internal/history"
	"dirsize/internal/logging"
	"dirsize/internal/metrics"
	"dirsize/internal/query"
	"dirsize/internal/source"
	"dirsize/internal/tree"
)

// maxBodySize caps request bodies; inputs are parsed fully in memory.
const maxBodySize = 32 << 20

// Handler contains the HTTP handlers for the dirsize API.
type Handler struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewHandler(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{cfg: cfg, metrics: m, logger: logger}
}

type SizesResponse struct {
	Root    string  `json:"root"`
	Format  string  `json:"format"`
	Total   int64   `json:"total"`
	Digest  string  `json:"digest"`
	Skipped int     `json:"skipped"`
	Min     int64   `json:"min"`
	Max     int64   `json:"max"`
	Count   int     `json:"count"`
	Sum     int64   `json:"sum"`
	Sizes   []int64 `json:"sizes"`
}

type FreeResponse struct {
	Root          string `json:"root"`
	Total         int64  `json:"total"`
	TotalCapacity int64  `json:"total_capacity"`
	MinFree       int64  `json:"min_free"`
	query.Free
}

type WalkEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// HandleSizes handles POST /v1/sizes.
// The body is a listing or transcript; min and max override the configured window.
func (h *Handler) HandleSizes(c echo.Context) error {
	res, err := h.build(c)
	if err != nil {
		return mapError(c, err)
	}

	minSize, err := int64Param(c, "min", h.cfg.MinSize)
	if err != nil {
		return mapError(c, err)
	}
	maxSize, err := int64Param(c, "max", h.cfg.MaxSize)
	if err != nil {
		return mapError(c, err)
	}

	digest, err := hash.Digest(res.Tree, res.Root)
	if err != nil {
		return mapError(c, err)
	}

	sizes := query.FilteredContainerSizes(res.Tree, res.Root, minSize, maxSize)
	h.metrics.RecordQuery("sizes", nil)
	if sizes == nil {
		sizes = []int64{}
	}

	return c.JSON(http.StatusOK, SizesResponse{
		Root:    res.Tree.Name(res.Root),
		Format:  string(res.Format),
		Total:   res.Tree.Size(res.Root),
		Digest:  digest,
		Skipped: res.Skipped,
		Min:     minSize,
		Max:     maxSize,
		Count:   len(sizes),
		Sum:     query.Sum(sizes),
		Sizes:   sizes,
	})
}

// HandleFree handles POST /v1/free.
// total and min_free override the configured volume.
func (h *Handler) HandleFree(c echo.Context) error {
	res, err := h.build(c)
	if err != nil {
		return mapError(c, err)
	}

	total, err := int64Param(c, "total", h.cfg.TotalCapacity)
	if err != nil {
		return mapError(c, err)
	}
	minFree, err := int64Param(c, "min_free", h.cfg.MinFree)
	if err != nil {
		return mapError(c, err)
	}

	free, err := query.FreeSpace(res.Tree, res.Root, total, minFree)
	h.metrics.RecordQuery("free", err)
	if err != nil {
		return mapError(c, err)
	}

	return c.JSON(http.StatusOK, FreeResponse{
		Root:          res.Tree.Name(res.Root),
		Total:         res.Tree.Size(res.Root),
		TotalCapacity: total,
		MinFree:       minFree,
		Free:          free,
	})
}

// HandleWalk handles POST /v1/walk and returns every node in walk order.
func (h *Handler) HandleWalk(c echo.Context) error {
	res, err := h.build(c)
	if err != nil {
		return mapError(c, err)
	}

	ids := tree.Walk(res.Tree, res.Root)
	entries := make([]WalkEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, WalkEntry{
			Path: res.Tree.Path(id),
			Type: res.Tree.Kind(id).String(),
			Size: res.Tree.Size(id),
		})
	}
	return c.JSON(http.StatusOK, entries)
}

// build parses the request body in the format named by the format query param.
func (h *Handler) build(c echo.Context) (*source.Result, error) {
	format, err := source.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return nil, &badRequest{err}
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodySize+1))
	if err != nil {
		return nil, &badRequest{fmt.Errorf("failed to read body: %w", err)}
	}
	if len(body) > maxBodySize {
		return nil, &badRequest{fmt.Errorf("body exceeds %d bytes", maxBodySize)}
	}

	skip := logging.SkippedLines(h.logger, "request")
	res, err := source.Parse("request", string(body), format, source.Options{
		IndentWidth: h.cfg.IndentWidth,
		OnSkip: func(_ string, e *tree.LineError) {
			skip(e)
		},
	})
	if err != nil {
		h.metrics.RecordBuildError(string(format))
		return nil, &badRequest{err}
	}
	h.metrics.RecordBuild(string(res.Format), res.Tree.Len(), res.Skipped)
	return res, nil
}

type badRequest struct {
	err error
}

func (e *badRequest) Error() string { return e.err.Error() }

func (e *badRequest) Unwrap() error { return e.err }

func int64Param(c echo.Context, name string, fallback int64) (int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &badRequest{fmt.Errorf("invalid %s: %q", name, raw)}
	}
	return v, nil
}

// mapError translates errors into HTTP responses.
func mapError(c echo.Context, err error) error {
	var br *badRequest
	switch {
	case errors.As(err, &br),
		errors.Is(err, tree.ErrEmptyInput),
		errors.Is(err, history.ErrNavigation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, query.ErrUnsatisfiable):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
}
