// Package middleware provides cross-cutting concerns for the panel services:
// Prometheus metrics and OpenTelemetry operation tracing.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-panel/internal/ports"
)

const namespace = "panel"

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It tracks service latency and outcomes along with the domain events of the
// panel: ratings, votes, bulk import rows and logins.
type PrometheusMetrics struct {
	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	ratingsSubmitted *prometheus.CounterVec
	votesCast        *prometheus.CounterVec
	importRows       *prometheus.CounterVec
	loginAttempts    *prometheus.CounterVec
	overallScore     *prometheus.HistogramVec
	stateGauges      *prometheus.GaugeVec
	histograms       *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// all metrics with reg. A nil reg registers with the default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Execution time of panel service operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      ports.MetricOperations,
				Help:      "Total number of panel service operations by outcome.",
			},
			[]string{"operation", "status"},
		),
		ratingsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      ports.MetricRatingsSubmitted,
				Help:      "Total number of accepted interview ratings.",
			},
			[]string{"schema"},
		),
		votesCast: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      ports.MetricVotesCast,
				Help:      "Total number of vote attempts by position and status.",
			},
			[]string{"position", "status"},
		),
		importRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      ports.MetricImportRows,
				Help:      "Total number of bulk import rows by outcome.",
			},
			[]string{"outcome"},
		),
		loginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      ports.MetricLoginAttempts,
				Help:      "Total number of login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		overallScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      ports.MetricOverallScore,
				Help:      "Distribution of candidate overall averages.",
				Buckets:   []float64{1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5},
			},
			[]string{"schema"},
		),
		stateGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "state",
				Help:      "Current state values such as nominee counts.",
			},
			[]string{"metric", "scope"},
		),
		histograms: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "observations",
				Help:      "Other observed values.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"metric"},
		),
	}
}

func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.operationLatency.WithLabelValues(operation, label(labels, "status")).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricOperations:
		pm.operationCounter.WithLabelValues(label(labels, "operation"), label(labels, "status")).Add(value)
	case ports.MetricRatingsSubmitted:
		pm.ratingsSubmitted.WithLabelValues(label(labels, "schema")).Add(value)
	case ports.MetricVotesCast:
		pm.votesCast.WithLabelValues(label(labels, "position"), label(labels, "status")).Add(value)
	case ports.MetricImportRows:
		pm.importRows.WithLabelValues(label(labels, "outcome")).Add(value)
	case ports.MetricLoginAttempts:
		pm.loginAttempts.WithLabelValues(label(labels, "outcome")).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, "success").Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.stateGauges.WithLabelValues(metric, label(labels, "scope")).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	if metric == ports.MetricOverallScore {
		pm.overallScore.WithLabelValues(label(labels, "schema")).Observe(value)
		return
	}
	pm.histograms.WithLabelValues(metric).Observe(value)
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
