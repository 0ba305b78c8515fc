package ports

import (
	"time"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus,
// OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like votes cast, rows imported, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like nominee counts per position.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like overall scores.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// NopMetrics is a MetricsCollector that discards everything. Services use it
// when no collector is configured.
type NopMetrics struct{}

// RecordLatency implements MetricsCollector.
func (NopMetrics) RecordLatency(string, time.Duration, map[string]string) {}

// RecordCounter implements MetricsCollector.
func (NopMetrics) RecordCounter(string, float64, map[string]string) {}

// RecordGauge implements MetricsCollector.
func (NopMetrics) RecordGauge(string, float64, map[string]string) {}

// RecordHistogram implements MetricsCollector.
func (NopMetrics) RecordHistogram(string, float64, map[string]string) {}

var _ MetricsCollector = NopMetrics{}

// Metric names recorded by the application services. Collectors map each name
// onto a concrete instrument; unknown names fall back to a generic one.
const (
	// MetricOperations counts service operations by outcome.
	MetricOperations = "operations_total"

	// MetricRatingsSubmitted counts accepted ratings, labelled by schema.
	MetricRatingsSubmitted = "ratings_submitted_total"

	// MetricVotesCast counts vote attempts, labelled by position and status.
	MetricVotesCast = "votes_cast_total"

	// MetricImportRows counts bulk import rows, labelled by outcome.
	MetricImportRows = "import_rows_total"

	// MetricLoginAttempts counts login attempts, labelled by outcome.
	MetricLoginAttempts = "login_attempts_total"

	// MetricOverallScore observes candidate overall averages, labelled by schema.
	MetricOverallScore = "overall_score"

	// MetricNominees gauges the number of nominees, labelled by position.
	MetricNominees = "nominees"
)
