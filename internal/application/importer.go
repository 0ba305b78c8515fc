package application

import (
	"context"
	"fmt"

	"github.com/ahrav/go-panel/infrastructure/bulk"
	"github.com/ahrav/go-panel/infrastructure/middleware"
	"github.com/ahrav/go-panel/infrastructure/storage"
	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

// ImportReport describes the outcome of a bulk nominee import.
type ImportReport struct {
	// Imported holds the nominees written, or that would be written by a
	// preview.
	Imported []domain.Nominee `json:"imported"`

	// Duplicates holds rows whose email is already registered or repeated in
	// the batch.
	Duplicates []bulk.Duplicate `json:"duplicates"`

	// Rejected holds rows that could not be parsed or are ineligible.
	Rejected []*bulk.RowError `json:"rejected"`

	// NearDuplicates pairs imported names that closely resemble another
	// name. They are imported regardless.
	NearDuplicates []bulk.NearDuplicate `json:"near_duplicates"`
}

// ImportService loads nominees from tab-separated text, one per row.
// Imports are best-effort: bad rows are reported and skipped.
type ImportService struct {
	deps   Deps
	config ImportConfig
	obs    *middleware.Observer
	parser *bulk.Parser
}

// NewImportService creates an ImportService.
func NewImportService(deps Deps, config ImportConfig) (*ImportService, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	parser, err := bulk.NewParser(
		bulk.ParserConfig{MaxRows: config.MaxRows},
		deps.NewID,
		deps.Now,
		bulk.WithRowCheck(func(n domain.Nominee) error { return validateRecord("nominee", n) }),
	)
	if err != nil {
		return nil, err
	}
	return &ImportService{deps: deps, config: config, obs: deps.observer("import"), parser: parser}, nil
}

// Preview parses text and reports what ImportNominees would do, without
// writing anything.
func (s *ImportService) Preview(ctx context.Context, text string) (ImportReport, error) {
	return middleware.Observed(ctx, s.obs, "Preview", func(ctx context.Context) (ImportReport, error) {
		return s.plan(ctx, s.deps.Store, text)
	})
}

// ImportNominees parses text and stores every new, eligible nominee. The
// duplicate check and the writes run in one store transaction so concurrent
// nominations cannot slip between them. The caller needs manage_nominees.
func (s *ImportService) ImportNominees(ctx context.Context, p domain.Principal, text string) (ImportReport, error) {
	return middleware.Observed(ctx, s.obs, "ImportNominees", func(ctx context.Context) (ImportReport, error) {
		if err := p.Require(domain.CapManageNominees); err != nil {
			return ImportReport{}, err
		}

		var report ImportReport
		err := s.deps.Store.Atomically(ctx, func(tx ports.Collections) error {
			var err error
			report, err = s.plan(ctx, tx, text)
			if err != nil {
				return err
			}
			for _, n := range report.Imported {
				if err := storage.Insert(ctx, tx, domain.Nominees, n.ID, n); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return ImportReport{}, err
		}

		s.recordRows("imported", len(report.Imported))
		s.recordRows("duplicate", len(report.Duplicates))
		s.recordRows("rejected", len(report.Rejected))
		s.deps.Logger.InfoContext(ctx, "nominees imported",
			"imported", len(report.Imported),
			"duplicates", len(report.Duplicates),
			"rejected", len(report.Rejected),
			"near_duplicates", len(report.NearDuplicates),
			"by", p.Subject,
		)
		for _, nd := range report.NearDuplicates {
			s.deps.Logger.WarnContext(ctx, "possible duplicate nominee",
				"name", nd.A.Name, "similar_to", nd.B.Name, "distance", nd.Distance)
		}
		return report, nil
	})
}

func (s *ImportService) plan(ctx context.Context, c ports.Collections, text string) (ImportReport, error) {
	parsed, err := s.parser.Parse(text)
	if err != nil {
		return ImportReport{}, fmt.Errorf("parse nominees: %w", err)
	}
	existing, err := storage.All(ctx, c, domain.Nominees)
	if err != nil {
		return ImportReport{}, err
	}
	fresh, dups := bulk.Dedupe(parsed.Nominees, existing)
	return ImportReport{
		Imported:       fresh,
		Duplicates:     dups,
		Rejected:       parsed.Rejected,
		NearDuplicates: bulk.NearDuplicates(fresh, existing, s.config.NearDuplicateDistance),
	}, nil
}

func (s *ImportService) recordRows(outcome string, n int) {
	if n == 0 {
		return
	}
	s.deps.Metrics.RecordCounter(ports.MetricImportRows, float64(n), map[string]string{"outcome": outcome})
}
