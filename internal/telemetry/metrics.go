// Package telemetry defines the Prometheus collectors for search and
// snapshot activity and serves them for scraping.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search outcomes used as the "outcome" label.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeDegraded = "degraded"
	OutcomeInvalid  = "invalid"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SearchesTotal        *prometheus.CounterVec
	SearchLatency        prometheus.Histogram
	SearchResultsCount   prometheus.Histogram
	SubqueriesPerSearch  prometheus.Histogram
	BackendDegradedTotal *prometheus.CounterVec
	SnapshotGeneration   *prometheus.GaugeVec
	SnapshotChunks       prometheus.Gauge
	SnapshotReloadsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
// A nil reg gets a fresh registry, which keeps tests independent.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leedrag_searches_total",
				Help: "Total search requests by outcome (ok, empty, degraded, invalid).",
			},
			[]string{"outcome"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leedrag_search_latency_seconds",
				Help:    "End-to-end search latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leedrag_search_results_count",
				Help:    "Number of results returned per search.",
				Buckets: []float64{0, 1, 2, 4, 6, 8, 10, 25, 50, 100},
			},
		),
		SubqueriesPerSearch: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leedrag_search_subqueries",
				Help:    "Number of sub-queries produced by query expansion.",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 12},
			},
		),
		BackendDegradedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leedrag_backend_degraded_total",
				Help: "Backend calls that failed or timed out, by backend and error code.",
			},
			[]string{"backend", "code"},
		),
		SnapshotGeneration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "leedrag_snapshot_info",
				Help: "Currently served snapshot generation (value is always 1).",
			},
			[]string{"generation"},
		),
		SnapshotChunks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leedrag_snapshot_chunks",
				Help: "Number of chunks in the served snapshot.",
			},
		),
		SnapshotReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leedrag_snapshot_reloads_total",
				Help: "Snapshot reload attempts by status (success, failure).",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.SearchesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.SubqueriesPerSearch,
		m.BackendDegradedTotal,
		m.SnapshotGeneration,
		m.SnapshotChunks,
		m.SnapshotReloadsTotal,
	)

	return m
}

// ObserveSearch records one completed search.
func (m *Metrics) ObserveSearch(outcome string, took time.Duration, results, subqueries int) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(outcome).Inc()
	m.SearchLatency.Observe(took.Seconds())
	m.SearchResultsCount.Observe(float64(results))
	if subqueries > 0 {
		m.SubqueriesPerSearch.Observe(float64(subqueries))
	}
}

// RecordDegradation counts one failed backend call.
func (m *Metrics) RecordDegradation(backend, code string) {
	if m == nil {
		return
	}
	m.BackendDegradedTotal.WithLabelValues(backend, code).Inc()
}

// SetSnapshot publishes the served generation and its size.
func (m *Metrics) SetSnapshot(generation string, chunks int) {
	if m == nil {
		return
	}
	m.SnapshotGeneration.Reset()
	m.SnapshotGeneration.WithLabelValues(generation).Set(1)
	m.SnapshotChunks.Set(float64(chunks))
}

// RecordReload counts a reload attempt.
func (m *Metrics) RecordReload(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.SnapshotReloadsTotal.WithLabelValues(status).Inc()
}

// Handler returns the scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
