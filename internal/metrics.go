package internal

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "harness_session"

// Metrics holds the poller's Prometheus collectors
type Metrics struct {
	PollsTotal      prometheus.Counter
	LoadErrors      prometheus.Counter
	RowsDropped     prometheus.Counter
	SnapshotChanges prometheus.Counter
	FoldDuration    prometheus.Histogram
	EventsFolded    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics registers the poller collectors on reg. A nil reg uses a fresh
// private registry so several pollers never collide.
func NewMetrics(sessionID string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	labels := prometheus.Labels{"session_id": sessionID}

	return &Metrics{
		PollsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Name:        "polls_total",
				Help:        "Total polls of the row source",
				ConstLabels: labels,
			},
		),
		LoadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Name:        "load_errors_total",
				Help:        "Total failed row loads",
				ConstLabels: labels,
			},
		),
		RowsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Name:        "rows_dropped_total",
				Help:        "Total candidate rows rejected by validation",
				ConstLabels: labels,
			},
		),
		SnapshotChanges: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Name:        "snapshot_changes_total",
				Help:        "Total polls whose display snapshot differed from the previous one",
				ConstLabels: labels,
			},
		),
		FoldDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   metricsNamespace,
				Name:        "fold_duration_seconds",
				Help:        "Time to validate, order and fold one poll's rows",
				Buckets:     []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
				ConstLabels: labels,
			},
		),
		EventsFolded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   metricsNamespace,
				Name:        "events_folded",
				Help:        "Valid events folded on the latest poll",
				ConstLabels: labels,
			},
		),
		gatherer: reg,
	}
}

// RecordPoll records one successful poll
func (m *Metrics) RecordPoll(report *SessionReport, took time.Duration, changed bool) {
	m.PollsTotal.Inc()
	m.FoldDuration.Observe(took.Seconds())
	m.RowsDropped.Add(float64(report.RowsDropped()))
	m.EventsFolded.Set(float64(report.RowsValid))
	if changed {
		m.SnapshotChanges.Inc()
	}
}

// RecordLoadError records a poll whose rows could not be loaded
func (m *Metrics) RecordLoadError() {
	m.PollsTotal.Inc()
	m.LoadErrors.Inc()
}

// Handler serves the registry these metrics were registered on
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
