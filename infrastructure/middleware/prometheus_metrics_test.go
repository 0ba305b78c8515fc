package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-panel/internal/ports"
)

// newTestMetrics registers a collector against a private registry so tests
// never collide on metric names.
func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusMetrics(reg), reg
}

// TestNewPrometheusMetrics verifies that every metric vector is initialized
// and registered.
func TestNewPrometheusMetrics(t *testing.T) {
	pm, reg := newTestMetrics(t)

	assert.NotNil(t, pm.operationLatency)
	assert.NotNil(t, pm.operationCounter)
	assert.NotNil(t, pm.ratingsSubmitted)
	assert.NotNil(t, pm.votesCast)
	assert.NotNil(t, pm.importRows)
	assert.NotNil(t, pm.loginAttempts)
	assert.NotNil(t, pm.overallScore)
	assert.NotNil(t, pm.stateGauges)
	assert.NotNil(t, pm.histograms)

	var _ ports.MetricsCollector = pm

	// Registering the same names twice on one registry must fail.
	assert.Panics(t, func() { NewPrometheusMetrics(reg) })
}

// TestPrometheusMetrics_RecordCounter routes each known metric name to its
// own counter.
func TestPrometheusMetrics_RecordCounter(t *testing.T) {
	pm, _ := newTestMetrics(t)

	tests := []struct {
		name    string
		metric  string
		labels  map[string]string
		counter func() prometheus.Collector
	}{
		{
			name:   "operations",
			metric: ports.MetricOperations,
			labels: map[string]string{"operation": "election.CastVote", "status": "success"},
			counter: func() prometheus.Collector {
				return pm.operationCounter.WithLabelValues("election.CastVote", "success")
			},
		},
		{
			name:    "ratings",
			metric:  ports.MetricRatingsSubmitted,
			labels:  map[string]string{"schema": "technical"},
			counter: func() prometheus.Collector { return pm.ratingsSubmitted.WithLabelValues("technical") },
		},
		{
			name:    "votes",
			metric:  ports.MetricVotesCast,
			labels:  map[string]string{"position": "Chairman", "status": "duplicate"},
			counter: func() prometheus.Collector { return pm.votesCast.WithLabelValues("Chairman", "duplicate") },
		},
		{
			name:    "import rows",
			metric:  ports.MetricImportRows,
			labels:  map[string]string{"outcome": "rejected"},
			counter: func() prometheus.Collector { return pm.importRows.WithLabelValues("rejected") },
		},
		{
			name:    "logins with missing label",
			metric:  ports.MetricLoginAttempts,
			labels:  nil,
			counter: func() prometheus.Collector { return pm.loginAttempts.WithLabelValues("unknown") },
		},
		{
			name:    "unknown metric falls back to operations",
			metric:  "custom_event",
			labels:  nil,
			counter: func() prometheus.Collector { return pm.operationCounter.WithLabelValues("custom_event", "success") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm.RecordCounter(tt.metric, 2, tt.labels)
			pm.RecordCounter(tt.metric, 1, tt.labels)
			assert.Equal(t, float64(3), testutil.ToFloat64(tt.counter()))
		})
	}
}

// TestPrometheusMetrics_GaugeAndHistograms checks gauges overwrite and
// histograms accumulate observations.
func TestPrometheusMetrics_GaugeAndHistograms(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordGauge(ports.MetricNominees, 4, map[string]string{"scope": "Chairman"})
	pm.RecordGauge(ports.MetricNominees, 2, map[string]string{"scope": "Chairman"})
	assert.Equal(t, float64(2), testutil.ToFloat64(pm.stateGauges.WithLabelValues(ports.MetricNominees, "Chairman")))

	pm.RecordHistogram(ports.MetricOverallScore, 3.5, map[string]string{"schema": "leadership"})
	pm.RecordHistogram("other", 1, nil)
	pm.RecordLatency("scoring.Dashboard", 20*time.Millisecond, map[string]string{"status": "success"})

	n, err := testutil.GatherAndCount(reg,
		"panel_overall_score", "panel_observations", "panel_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
