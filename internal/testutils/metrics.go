package testutils

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-panel/internal/ports"
)

var _ ports.MetricsCollector = (*Metrics)(nil)

// Metrics is an in-memory ports.MetricsCollector. Values are keyed by metric
// name plus sorted labels, e.g. "votes_cast_total{position=Chairman,status=success}".
type Metrics struct {
	mu         sync.Mutex
	latencies  map[string][]time.Duration
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		latencies:  make(map[string][]time.Duration),
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// Key formats a metric name and labels the way Metrics stores them.
func Key(metric string, labels map[string]string) string {
	if len(labels) == 0 {
		return metric
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return metric + "{" + strings.Join(pairs, ",") + "}"
}

func (m *Metrics) RecordLatency(operation string, d time.Duration, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies[operation] = append(m.latencies[operation], d)
}

func (m *Metrics) RecordCounter(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[Key(metric, labels)] += value
}

func (m *Metrics) RecordGauge(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[Key(metric, labels)] = value
}

func (m *Metrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[Key(metric, labels)] = append(m.histograms[Key(metric, labels)], value)
}

// Counter returns the accumulated value of a counter.
func (m *Metrics) Counter(metric string, labels map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[Key(metric, labels)]
}

// Gauge returns the last value set on a gauge.
func (m *Metrics) Gauge(metric string, labels map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[Key(metric, labels)]
}

// Observations returns a copy of the values recorded in a histogram.
func (m *Metrics) Observations(metric string, labels map[string]string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.histograms[Key(metric, labels)]...)
}

// Latencies returns how many latencies were recorded for operation.
func (m *Metrics) Latencies(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.latencies[operation])
}
