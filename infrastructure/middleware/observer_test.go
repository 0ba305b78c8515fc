package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

// recordingTracer captures the spans it starts.
type recordingTracer struct {
	noop.Tracer
	spans []*recordingSpan
}

func (r *recordingTracer) Start(
	ctx context.Context,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	s := &recordingSpan{name: name, attrs: map[attribute.Key]attribute.Value{}}
	cfg := trace.NewSpanStartConfig(opts...)
	for _, kv := range cfg.Attributes() {
		s.attrs[kv.Key] = kv.Value
	}
	r.spans = append(r.spans, s)
	return trace.ContextWithSpan(ctx, s), s
}

type recordingSpan struct {
	noop.Span
	name   string
	attrs  map[attribute.Key]attribute.Value
	code   codes.Code
	errs   []error
	events []string
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}
func (s *recordingSpan) SetStatus(c codes.Code, _ string) { s.code = c }
func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}
func (s *recordingSpan) AddEvent(name string, _ ...trace.EventOption) {
	s.events = append(s.events, name)
}
func (s *recordingSpan) End(...trace.SpanEndOption) { s.ended = true }

// countingMetrics records what the observer reports.
type countingMetrics struct {
	ports.NopMetrics
	latencies map[string]int
	counters  map[string]float64
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{latencies: map[string]int{}, counters: map[string]float64{}}
}

func (m *countingMetrics) RecordLatency(op string, _ time.Duration, labels map[string]string) {
	m.latencies[op+"/"+labels["status"]]++
}

func (m *countingMetrics) RecordCounter(metric string, v float64, labels map[string]string) {
	m.counters[metric+"/"+labels["status"]] += v
}

// TestOutcome maps errors onto status labels.
func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: StatusSuccess},
		{name: "not found", err: domain.NewRecordError("nominees", "x", "Get", domain.ErrNotFound), want: StatusNotFound},
		{name: "already voted", err: fmt.Errorf("cast: %w", domain.ErrAlreadyVoted), want: StatusDuplicate},
		{name: "forbidden", err: domain.ErrForbidden, want: StatusForbidden},
		{name: "ineligible", err: &domain.EligibilityError{Year: 1, Shift: 1}, want: StatusIneligible},
		{name: "credentials", err: domain.ErrInvalidCredentials, want: StatusDenied},
		{name: "envelope", err: domain.ErrInvalidEnvelope, want: StatusInvalid},
		{name: "validation", err: domain.NewValidationError("nominee"), want: StatusInvalid},
		{name: "storage", err: ports.NewStorageError("votes", "Insert", ports.ErrStoreClosed), want: StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

// TestObserver_Observe verifies span status and metrics for each outcome
// class.
func TestObserver_Observe(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   codes.Code
		wantStatus string
		wantErrs   int
		wantEvents int
	}{
		{name: "success", err: nil, wantCode: codes.Ok, wantStatus: StatusSuccess},
		{name: "domain outcome", err: domain.ErrAlreadyVoted, wantCode: codes.Unset, wantStatus: StatusDuplicate, wantEvents: 1},
		{name: "failure", err: errors.New("disk full"), wantCode: codes.Error, wantStatus: StatusError, wantErrs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer := &recordingTracer{}
			metrics := newCountingMetrics()
			o := NewObserver("election", metrics, tracer)

			err := o.Observe(context.Background(), "CastVote", func(context.Context) error {
				return tt.err
			}, attribute.String("position", "Chairman"))
			assert.Equal(t, tt.err, err)

			require.Len(t, tracer.spans, 1)
			span := tracer.spans[0]
			assert.Equal(t, "election.CastVote", span.name)
			assert.True(t, span.ended)
			assert.Equal(t, tt.wantCode, span.code)
			assert.Len(t, span.errs, tt.wantErrs)
			assert.Len(t, span.events, tt.wantEvents)
			assert.Equal(t, "Chairman", span.attrs["position"].AsString())
			assert.Equal(t, tt.wantStatus, span.attrs["panel.status"].AsString())

			assert.Equal(t, 1, metrics.latencies["election.CastVote/"+tt.wantStatus])
			assert.Equal(t, float64(1), metrics.counters[ports.MetricOperations+"/"+tt.wantStatus])
		})
	}
}

// TestObserved returns the value on success and the zero value on error.
func TestObserved(t *testing.T) {
	o := NewObserver("scoring", nil, &recordingTracer{})

	got, err := Observed(context.Background(), o, "Count", func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	got, err = Observed(context.Background(), o, "Count", func(context.Context) (int, error) {
		return 7, domain.ErrNotFound
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, got)
}

// TestNewObserver_Defaults ensures nil collaborators are replaced.
func TestNewObserver_Defaults(t *testing.T) {
	o := NewObserver("auth", nil, nil)
	assert.IsType(t, ports.NopMetrics{}, o.Metrics())
	assert.NoError(t, o.Observe(context.Background(), "Login", func(context.Context) error { return nil }))
}
