// Package metrics provides Prometheus metrics for tree building and queries.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	TreesBuilt   *prometheus.CounterVec
	LinesSkipped *prometheus.CounterVec
	BuildErrors  *prometheus.CounterVec
	Queries      *prometheus.CounterVec
	TreeNodes    prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TreesBuilt: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirsize_trees_built_total",
				Help: "Total number of trees built, by input format",
			},
			[]string{"format"},
		),
		LinesSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirsize_lines_skipped_total",
				Help: "Total number of malformed input lines skipped",
			},
			[]string{"format"},
		),
		BuildErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirsize_build_errors_total",
				Help: "Total number of inputs that could not be turned into a tree",
			},
			[]string{"format"},
		),
		Queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirsize_queries_total",
				Help: "Total number of size queries, by query and result",
			},
			[]string{"query", "result"},
		),
		TreeNodes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dirsize_tree_nodes",
				Help:    "Number of nodes in built trees",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordBuild records one built tree of the given format and node count.
func (m *Metrics) RecordBuild(format string, nodes int, skipped int) {
	m.TreesBuilt.WithLabelValues(format).Inc()
	m.TreeNodes.Observe(float64(nodes))
	if skipped > 0 {
		m.LinesSkipped.WithLabelValues(format).Add(float64(skipped))
	}
}

func (m *Metrics) RecordBuildError(format string) {
	m.BuildErrors.WithLabelValues(format).Inc()
}

// RecordQuery records a query outcome; err == nil counts as "ok".
func (m *Metrics) RecordQuery(query string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Queries.WithLabelValues(query, result).Inc()
}
