package application

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/ahrav/go-panel/infrastructure/middleware"
	"github.com/ahrav/go-panel/internal/domain"
)

// GroupReport summarizes the candidates sharing a department or position.
type GroupReport struct {
	Group      string `json:"group"`
	Candidates int    `json:"candidates"`
	Rated      int    `json:"rated"`

	// AverageOverall is the mean overall score of rated candidates in the
	// group, or 0 when none are rated.
	AverageOverall float64 `json:"average_overall"`
}

// ReportService groups candidate scores for the reports page.
type ReportService struct {
	deps    Deps
	obs     *middleware.Observer
	scoring *ScoringService
}

// NewReportService creates a ReportService that reads scores through
// scoring.
func NewReportService(deps Deps, scoring *ScoringService) (*ReportService, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	return &ReportService{deps: deps, obs: deps.observer("reports"), scoring: scoring}, nil
}

// ByDepartment returns one row per department, ordered by department name.
// The caller needs view_reports.
func (s *ReportService) ByDepartment(ctx context.Context, p domain.Principal) ([]GroupReport, error) {
	return middleware.Observed(ctx, s.obs, "ByDepartment", func(ctx context.Context) ([]GroupReport, error) {
		rows, err := s.group(ctx, p, func(c domain.Candidate) string { return strings.TrimSpace(c.Department) })
		if err != nil {
			return nil, err
		}
		slices.SortFunc(rows, func(a, b GroupReport) int { return cmp.Compare(a.Group, b.Group) })
		return rows, nil
	})
}

// ByPosition returns one row per position in ballot order, including
// positions without candidates. The caller needs view_reports.
func (s *ReportService) ByPosition(ctx context.Context, p domain.Principal) ([]GroupReport, error) {
	return middleware.Observed(ctx, s.obs, "ByPosition", func(ctx context.Context) ([]GroupReport, error) {
		rows, err := s.group(ctx, p, func(c domain.Candidate) string { return string(c.Position) })
		if err != nil {
			return nil, err
		}
		byName := make(map[string]GroupReport, len(rows))
		for _, r := range rows {
			byName[r.Group] = r
		}
		out := make([]GroupReport, 0, len(domain.Positions()))
		for _, pos := range domain.Positions() {
			r, ok := byName[string(pos)]
			if !ok {
				r = GroupReport{Group: string(pos)}
			}
			out = append(out, r)
		}
		return out, nil
	})
}

// group buckets the dashboard standings by key, in first-seen order.
func (s *ReportService) group(
	ctx context.Context,
	p domain.Principal,
	key func(domain.Candidate) string,
) ([]GroupReport, error) {
	if err := p.Require(domain.CapViewReports); err != nil {
		return nil, err
	}
	dash, err := s.scoring.buildDashboard(ctx)
	if err != nil {
		return nil, err
	}

	var order []string
	rows := make(map[string]*GroupReport)
	sums := make(map[string]float64)
	for _, st := range dash.Standings {
		k := key(st.Candidate)
		row, ok := rows[k]
		if !ok {
			row = &GroupReport{Group: k}
			rows[k] = row
			order = append(order, k)
		}
		row.Candidates++
		if st.Overall() > 0 {
			row.Rated++
			sums[k] += st.Overall()
		}
	}

	out := make([]GroupReport, 0, len(order))
	for _, k := range order {
		row := *rows[k]
		if row.Rated > 0 {
			row.AverageOverall = sums[k] / float64(row.Rated)
		}
		out = append(out, row)
	}
	return out, nil
}
