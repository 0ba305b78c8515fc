package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahrav/go-panel/infrastructure/middleware"
	"github.com/ahrav/go-panel/infrastructure/report"
	"github.com/ahrav/go-panel/infrastructure/storage/memory"
	"github.com/ahrav/go-panel/infrastructure/storage/sqlite"
	"github.com/ahrav/go-panel/internal/application"
	"github.com/ahrav/go-panel/internal/ports"
)

// app holds the services a command can use.
type app struct {
	cfg    application.Config
	logger *slog.Logger
	store  ports.Store
	out    io.Writer
	tables *report.Writer

	registry *prometheus.Registry

	auth     *application.AuthService
	scoring  *application.ScoringService
	election *application.ElectionService
	importer *application.ImportService
	data     *application.DataService
	reports  *application.ReportService
}

func newApp(ctx context.Context, configPath string, plain, metrics bool, stdout, stderr io.Writer) (*app, error) {
	cfg, err := application.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log, stderr)
	if cfg.Auth.TokenSecret == application.DevelopmentTokenSecret {
		logger.Warn("using the development token secret; set PANEL_AUTH_TOKEN_SECRET")
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		out:    stdout,
		tables: report.NewWriter(stdout, plain),
	}
	deps := application.Deps{Store: store, Logger: logger}
	if metrics || cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		deps.Metrics = middleware.NewPrometheusMetrics(a.registry)
	}

	if err := a.wire(deps); err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(deps application.Deps) error {
	var err error
	if a.auth, err = application.NewAuthService(deps, a.cfg.Auth); err != nil {
		return err
	}
	if a.scoring, err = application.NewScoringService(deps, a.cfg.Scoring); err != nil {
		return err
	}
	if a.election, err = application.NewElectionService(deps, a.cfg.Election); err != nil {
		return err
	}
	if a.importer, err = application.NewImportService(deps, a.cfg.Import); err != nil {
		return err
	}
	if a.data, err = application.NewDataService(deps); err != nil {
		return err
	}
	a.reports, err = application.NewReportService(deps, a.scoring)
	return err
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
}

func openStore(ctx context.Context, cfg application.StorageConfig) (ports.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return memory.New(), nil
	}
}

func newLogger(cfg application.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// printMetrics prints the counters and gauges recorded during the command.
func (a *app) printMetrics() {
	if a.registry == nil {
		return
	}
	families, err := a.registry.Gather()
	if err != nil {
		a.logger.Warn("metrics unavailable", "error", ports.NewMetricsError("", "Gather", err))
		return
	}

	var rows [][]string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)
			rows = append(rows, []string{mf.GetName(), strings.Join(labels, ","), fmt.Sprintf("%g", value)})
		}
	}
	a.tables.Table("Metrics", []string{"Metric", "Labels", "Value"}, rows)
}
