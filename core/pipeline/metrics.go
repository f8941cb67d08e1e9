// Package pipeline — Prometheus metrics.
package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	// Paragraphs counts processed paragraphs.
	// Labels: outcome (kept, filtered, rule_filtered)
	Paragraphs *prometheus.CounterVec

	// Labels counts kept paragraphs per style.
	// Labels: label
	Labels *prometheus.CounterVec

	// FilterReasons counts filter drops per reason.
	// Labels: reason
	FilterReasons *prometheus.CounterVec

	// ClassifyErrors counts classifier failures that left the original style.
	ClassifyErrors prometheus.Counter

	// RunDuration tracks how long a document takes.
	RunDuration prometheus.Histogram
}

// NewMetrics registers the pipeline collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Paragraphs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "parapipe",
				Subsystem: "pipeline",
				Name:      "paragraphs_total",
				Help:      "Total number of paragraphs processed by outcome",
			},
			[]string{"outcome"},
		),
		Labels: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "parapipe",
				Subsystem: "pipeline",
				Name:      "labels_total",
				Help:      "Total number of kept paragraphs by assigned style",
			},
			[]string{"label"},
		),
		FilterReasons: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "parapipe",
				Subsystem: "filter",
				Name:      "dropped_total",
				Help:      "Total number of paragraphs dropped by the filter by reason",
			},
			[]string{"reason"},
		),
		ClassifyErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "parapipe",
				Subsystem: "classifier",
				Name:      "errors_total",
				Help:      "Total number of classifier failures",
			},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "parapipe",
				Subsystem: "pipeline",
				Name:      "run_duration_seconds",
				Help:      "Duration of a document run in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}
