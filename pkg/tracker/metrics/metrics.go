// Package metrics provides Prometheus metrics for the pick pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics collects and exposes pipeline-related Prometheus metrics.
type PipelineMetrics struct {
	registry *prometheus.Registry

	// Candidate metrics
	CandidatesTotal *prometheus.CounterVec
	SkipsTotal      *prometheus.CounterVec
	EdgeObserved    *prometheus.HistogramVec
	RatingObserved  *prometheus.HistogramVec

	// Ledger metrics
	PicksTotal   *prometheus.CounterVec
	GradesTotal  *prometheus.CounterVec
	PendingPicks *prometheus.GaugeVec
	UnitsProfit  *prometheus.GaugeVec

	// Run metrics
	RunsTotal     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	PlaysEmitted  *prometheus.GaugeVec
}

// NewPipelineMetrics creates a new pipeline metrics collector on its own
// registry.
func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	m := &PipelineMetrics{
		registry: registry,

		CandidatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharpline_candidates_total",
				Help: "Total candidates evaluated by the decision policy",
			},
			[]string{"sport", "category", "outcome"},
		),
		SkipsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharpline_skips_total",
				Help: "Games or candidates skipped with a diagnostic reason",
			},
			[]string{"sport", "reason"},
		),
		EdgeObserved: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sharpline_edge_points",
				Help:    "Absolute edge of evaluated candidates in points",
				Buckets: []float64{0.5, 1, 1.5, 2, 3, 4, 6, 8, 12, 20},
			},
			[]string{"sport", "category"},
		),
		RatingObserved: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sharpline_rating",
				Help:    "Composite rating of evaluated candidates",
				Buckets: []float64{2.3, 2.6, 2.9, 3.2, 3.5, 3.8, 4.1, 4.4, 4.7, 4.9},
			},
			[]string{"sport", "category"},
		),

		PicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharpline_picks_total",
				Help: "Picks written to the ledger",
			},
			[]string{"sport", "category"},
		),
		GradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharpline_grades_total",
				Help: "Picks resolved against final results",
			},
			[]string{"sport", "result"},
		),
		PendingPicks: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sharpline_pending_picks",
				Help: "Picks currently awaiting a result",
			},
			[]string{"sport"},
		),
		UnitsProfit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sharpline_units_profit",
				Help: "Running net profit in units across terminal picks",
			},
			[]string{"sport"},
		),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharpline_runs_total",
				Help: "Pipeline runs by final status",
			},
			[]string{"sport", "status"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sharpline_stage_duration_seconds",
				Help:    "Wall time per pipeline stage",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
			},
			[]string{"stage"},
		),
		PlaysEmitted: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sharpline_plays_emitted",
				Help: "Plays in the last best-plays feed",
			},
			[]string{"sport"},
		),
	}

	registry.MustRegister(
		m.CandidatesTotal,
		m.SkipsTotal,
		m.EdgeObserved,
		m.RatingObserved,
		m.PicksTotal,
		m.GradesTotal,
		m.PendingPicks,
		m.UnitsProfit,
		m.RunsTotal,
		m.StageDuration,
		m.PlaysEmitted,
	)

	return m
}

// Handler returns an HTTP handler serving this collector's registry.
func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
