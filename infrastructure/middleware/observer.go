package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

// Operation outcomes used as the status label on metrics and span attributes.
const (
	StatusSuccess    = "success"
	StatusNotFound   = "not_found"
	StatusDuplicate  = "duplicate"
	StatusForbidden  = "forbidden"
	StatusInvalid    = "invalid"
	StatusIneligible = "ineligible"
	StatusDenied     = "denied"
	StatusError      = "error"
)

// Outcome classifies err into one of the status labels. Domain outcomes are
// told apart from infrastructure failures so dashboards can alert on the
// latter only.
func Outcome(err error) string {
	var validation *domain.ValidationError
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, domain.ErrNotFound):
		return StatusNotFound
	case errors.Is(err, domain.ErrDuplicate):
		return StatusDuplicate
	case errors.Is(err, domain.ErrForbidden):
		return StatusForbidden
	case errors.Is(err, domain.ErrIneligible):
		return StatusIneligible
	case errors.Is(err, domain.ErrInvalidCredentials):
		return StatusDenied
	case errors.Is(err, domain.ErrInvalidEnvelope), errors.As(err, &validation):
		return StatusInvalid
	default:
		return StatusError
	}
}

// Observer wraps service operations in an OpenTelemetry span and records
// their latency and outcome through a MetricsCollector.
type Observer struct {
	service string
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// NewObserver creates an Observer for the named service. A nil metrics
// collector discards metrics and a nil tracer uses the global provider.
func NewObserver(service string, metrics ports.MetricsCollector, tracer trace.Tracer) *Observer {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if tracer == nil {
		tracer = otel.Tracer("go-panel")
	}
	return &Observer{service: service, metrics: metrics, tracer: tracer}
}

// Metrics returns the collector the observer reports to.
func (o *Observer) Metrics() ports.MetricsCollector { return o.metrics }

// Observe runs fn inside a span named "<service>.<operation>". The span ends
// with an error status for infrastructure failures; domain outcomes such as
// not-found are recorded as attributes and leave the status unset.
func (o *Observer) Observe(
	ctx context.Context,
	operation string,
	fn func(ctx context.Context) error,
	attrs ...attribute.KeyValue,
) error {
	name := o.service + "." + operation
	ctx, span := o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	status := Outcome(err)
	span.SetAttributes(
		attribute.String("panel.status", status),
		attribute.Int64("panel.latency_ms", elapsed.Milliseconds()),
	)
	switch status {
	case StatusSuccess:
		span.SetStatus(codes.Ok, "")
	case StatusError:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	default:
		span.AddEvent("panel.rejected", trace.WithAttributes(attribute.String("reason", err.Error())))
	}

	labels := map[string]string{"operation": name, "status": status}
	o.metrics.RecordLatency(name, elapsed, labels)
	o.metrics.RecordCounter(ports.MetricOperations, 1, labels)
	return err
}

// Observed is the value-returning form of Observer.Observe.
func Observed[T any](
	ctx context.Context,
	o *Observer,
	operation string,
	fn func(ctx context.Context) (T, error),
	attrs ...attribute.KeyValue,
) (T, error) {
	var out T
	err := o.Observe(ctx, operation, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, attrs...)
	return out, err
}
