package application

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-panel/infrastructure/middleware"
	"github.com/ahrav/go-panel/internal/ports"
)

// ErrNoStore is returned by service constructors when Deps.Store is nil.
var ErrNoStore = errors.New("store is required")

// Deps carries the collaborators shared by every service. Only Store is
// required; the rest fall back to no-op or real-time defaults.
type Deps struct {
	Store ports.Store

	// Logger receives operation outcomes. Nil discards logs.
	Logger *slog.Logger

	// Metrics receives counters and latencies. Nil discards metrics.
	Metrics ports.MetricsCollector

	// Tracer starts operation spans. Nil uses the global provider.
	Tracer trace.Tracer

	// Now returns the current time. Nil uses time.Now.
	Now func() time.Time

	// NewID generates record identifiers. Nil uses random UUIDs.
	NewID func() string
}

func (d Deps) withDefaults() (Deps, error) {
	if d.Store == nil {
		return d, ErrNoStore
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Metrics == nil {
		d.Metrics = ports.NopMetrics{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return d, nil
}

func (d Deps) observer(service string) *middleware.Observer {
	return middleware.NewObserver(service, d.Metrics, d.Tracer)
}

func (d Deps) now() time.Time { return d.Now().UTC() }
