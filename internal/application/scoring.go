package application

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-panel/infrastructure/middleware"
	"github.com/ahrav/go-panel/infrastructure/scoring"
	"github.com/ahrav/go-panel/infrastructure/storage"
	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

// NewCandidate is the registration form for an interview candidate.
type NewCandidate struct {
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	RegNo      string       `json:"reg_no"`
	Department string       `json:"department"`
	Shift      domain.Shift `json:"shift"`

	// Position is optional. When set it must match the position derived
	// from RegNo and Shift.
	Position domain.Position `json:"position,omitempty"`
	Photo    string          `json:"photo,omitempty"`
}

// RatingInput is an interviewer's score sheet for one candidate.
type RatingInput struct {
	CandidateID string `json:"candidate_id"`

	// Schema defaults to the configured schema when empty.
	Schema  domain.Schema            `json:"schema,omitempty"`
	Scores  map[domain.Parameter]int `json:"scores"`
	Remarks string                   `json:"remarks"`
}

// CandidateStanding is one row of the scoring dashboard.
type CandidateStanding struct {
	Candidate domain.Candidate `json:"candidate"`

	// Summary is nil until the candidate has been rated.
	Summary *domain.ScoreSummary `json:"summary,omitempty"`
}

// Overall returns the candidate's overall average, or 0 when unrated.
func (c CandidateStanding) Overall() float64 {
	if c.Summary == nil {
		return 0
	}
	return c.Summary.Overall
}

// Dashboard summarizes every candidate's scores.
type Dashboard struct {
	// Standings are ordered by overall average, highest first; unrated
	// candidates follow in registration order.
	Standings []CandidateStanding `json:"standings"`

	Candidates   int `json:"candidates"`
	Rated        int `json:"rated"`
	TotalRatings int `json:"total_ratings"`

	// PanelAverage is the mean overall average of rated candidates.
	PanelAverage float64 `json:"panel_average"`
}

// ScoringService registers candidates, records interviewer ratings and
// aggregates them.
type ScoringService struct {
	deps        Deps
	config      ScoringConfig
	obs         *middleware.Observer
	aggregators map[domain.Schema]*scoring.ScoreAggregator
	group       singleflight.Group
}

// NewScoringService creates a ScoringService with one aggregator per schema.
func NewScoringService(deps Deps, config ScoringConfig) (*ScoringService, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}

	aggregators := make(map[domain.Schema]*scoring.ScoreAggregator, len(domain.Schemas()))
	for _, schema := range domain.Schemas() {
		agg, err := scoring.NewScoreAggregator(scoring.AggregatorConfig{Schema: schema})
		if err != nil {
			return nil, err
		}
		aggregators[schema] = agg
	}

	return &ScoringService{
		deps:        deps,
		config:      config,
		obs:         deps.observer("scoring"),
		aggregators: aggregators,
	}, nil
}

// RegisterCandidate validates the form, derives year and position from the
// registration number and shift, and stores the candidate. Emails are unique
// ignoring case. The caller needs manage_candidates.
func (s *ScoringService) RegisterCandidate(
	ctx context.Context,
	p domain.Principal,
	in NewCandidate,
) (domain.Candidate, error) {
	return middleware.Observed(ctx, s.obs, "RegisterCandidate", func(ctx context.Context) (domain.Candidate, error) {
		if err := p.Require(domain.CapManageCandidates); err != nil {
			return domain.Candidate{}, err
		}
		var c domain.Candidate
		err := s.deps.Store.Atomically(ctx, func(tx ports.Collections) error {
			var err error
			c, err = s.registerCandidate(ctx, tx, in)
			return err
		})
		if err != nil {
			s.deps.Logger.InfoContext(ctx, "candidate rejected", "email", in.Email, "error", err)
			return domain.Candidate{}, err
		}
		s.deps.Logger.InfoContext(ctx, "candidate registered",
			"id", c.ID, "position", string(c.Position), "by", p.Subject)
		return c, nil
	})
}

func (s *ScoringService) registerCandidate(
	ctx context.Context,
	c ports.Collections,
	in NewCandidate,
) (domain.Candidate, error) {
	regNo := strings.TrimSpace(in.RegNo)
	year := domain.YearFromRegNo(regNo)

	position := in.Position
	if position == domain.PositionNone {
		position = domain.PositionFor(year, in.Shift)
		if position == domain.PositionNone {
			return domain.Candidate{}, &domain.EligibilityError{Year: year, Shift: in.Shift}
		}
	} else if err := domain.CheckEligibility(position, in.Shift, regNo); err != nil {
		return domain.Candidate{}, err
	}

	candidate := domain.Candidate{
		ID:         s.deps.NewID(),
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.TrimSpace(in.Email),
		RegNo:      regNo,
		Department: strings.TrimSpace(in.Department),
		Shift:      in.Shift,
		Year:       year,
		Position:   position,
		Photo:      in.Photo,
		AppliedAt:  s.deps.now(),
	}
	if err := validateRecord("candidate", candidate); err != nil {
		return domain.Candidate{}, err
	}

	existing, err := storage.All(ctx, c, domain.Candidates)
	if err != nil {
		return domain.Candidate{}, err
	}
	key := normalizeIdentifier(candidate.Email)
	for _, e := range existing {
		if normalizeIdentifier(e.Email) == key {
			return domain.Candidate{}, domain.NewRecordError(
				domain.Candidates.Name(), e.ID, "RegisterCandidate", domain.ErrDuplicate)
		}
	}

	if err := storage.Insert(ctx, c, domain.Candidates, candidate.ID, candidate); err != nil {
		return domain.Candidate{}, err
	}
	return candidate, nil
}

// ListCandidates returns every candidate in registration order. The caller
// needs view_candidates.
func (s *ScoringService) ListCandidates(ctx context.Context, p domain.Principal) ([]domain.Candidate, error) {
	return middleware.Observed(ctx, s.obs, "ListCandidates", func(ctx context.Context) ([]domain.Candidate, error) {
		if err := p.Require(domain.CapViewCandidates); err != nil {
			return nil, err
		}
		return storage.All(ctx, s.deps.Store, domain.Candidates)
	})
}

// GetCandidate returns one candidate. The caller needs view_candidates.
func (s *ScoringService) GetCandidate(ctx context.Context, p domain.Principal, id string) (domain.Candidate, error) {
	return middleware.Observed(ctx, s.obs, "GetCandidate", func(ctx context.Context) (domain.Candidate, error) {
		if err := p.Require(domain.CapViewCandidates); err != nil {
			return domain.Candidate{}, err
		}
		return storage.Get(ctx, s.deps.Store, domain.Candidates, id)
	})
}

// SearchCandidates returns candidates whose name, department, position or
// registration number contains query, ignoring case. An empty query matches
// everyone. The caller needs view_candidates.
func (s *ScoringService) SearchCandidates(
	ctx context.Context,
	p domain.Principal,
	query string,
) ([]domain.Candidate, error) {
	return middleware.Observed(ctx, s.obs, "SearchCandidates", func(ctx context.Context) ([]domain.Candidate, error) {
		if err := p.Require(domain.CapViewCandidates); err != nil {
			return nil, err
		}
		caser := cases.Fold()
		q := caser.String(strings.TrimSpace(query))
		return storage.Filter(ctx, s.deps.Store, domain.Candidates, func(c domain.Candidate) bool {
			for _, field := range []string{c.Name, c.Department, string(c.Position), c.RegNo} {
				if strings.Contains(caser.String(field), q) {
					return true
				}
			}
			return false
		})
	})
}

// SubmitRating records the principal's rating of a candidate. Every
// parameter of the schema must be scored between 1 and 5, and an interviewer
// can rate a candidate only once; the check and the insert run in one store
// transaction. All ratings of a candidate must share a schema. The caller
// needs rate_candidates.
func (s *ScoringService) SubmitRating(
	ctx context.Context,
	p domain.Principal,
	in RatingInput,
) (domain.Rating, error) {
	return middleware.Observed(ctx, s.obs, "SubmitRating", func(ctx context.Context) (domain.Rating, error) {
		if err := p.Require(domain.CapRateCandidates); err != nil {
			return domain.Rating{}, err
		}

		schema := in.Schema
		if schema == "" {
			schema = s.config.DefaultSchema
		}
		rating := domain.Rating{
			ID:          s.deps.NewID(),
			CandidateID: in.CandidateID,
			Interviewer: p.Subject,
			Schema:      schema,
			Scores:      in.Scores,
			Remarks:     strings.TrimSpace(in.Remarks),
			RatedAt:     s.deps.now(),
		}
		if err := validateRating(rating); err != nil {
			return domain.Rating{}, err
		}

		var siblings []domain.Rating
		err := s.deps.Store.Atomically(ctx, func(tx ports.Collections) error {
			if _, err := storage.Get(ctx, tx, domain.Candidates, in.CandidateID); err != nil {
				return err
			}
			existing, err := storage.Filter(ctx, tx, domain.Ratings, func(r domain.Rating) bool {
				return r.CandidateID == in.CandidateID
			})
			if err != nil {
				return err
			}
			for _, r := range existing {
				if normalizeIdentifier(r.Interviewer) == normalizeIdentifier(rating.Interviewer) {
					return domain.NewRecordError(domain.Ratings.Name(), r.ID, "SubmitRating", domain.ErrAlreadyRated)
				}
				if r.Schema != rating.Schema {
					verr := domain.NewValidationError("rating")
					verr.AddErrorf("candidate is rated under the %s rubric, not %s", r.Schema, rating.Schema)
					return verr
				}
			}
			siblings = append(existing, rating)
			return storage.Insert(ctx, tx, domain.Ratings, rating.ID, rating)
		})
		if err != nil {
			s.deps.Logger.InfoContext(ctx, "rating rejected",
				"candidate", in.CandidateID, "interviewer", p.Subject, "error", err)
			return domain.Rating{}, err
		}

		labels := map[string]string{"schema": string(schema)}
		s.deps.Metrics.RecordCounter(ports.MetricRatingsSubmitted, 1, labels)
		if summary := s.aggregators[schema].Aggregate(siblings); summary != nil {
			s.deps.Metrics.RecordHistogram(ports.MetricOverallScore, summary.Overall, labels)
		}
		s.deps.Logger.InfoContext(ctx, "rating submitted",
			"candidate", rating.CandidateID, "interviewer", rating.Interviewer, "mean", rating.Mean())
		return rating, nil
	}, attribute.String("candidate_id", in.CandidateID))
}

// validateRating applies struct-tag rules and requires the scores to cover
// exactly the schema's parameters.
func validateRating(r domain.Rating) error {
	if err := validateRecord("rating", r); err != nil {
		return err
	}
	verr := domain.NewValidationError("rating")
	for _, param := range r.Schema.Parameters() {
		if _, ok := r.Scores[param]; !ok {
			verr.AddErrorf("%s must be rated", param)
		}
	}
	keys := make([]string, 0, len(r.Scores))
	for param := range r.Scores {
		if !r.Schema.Has(param) {
			keys = append(keys, string(param))
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		verr.AddErrorf("%s is not part of the %s rubric", k, r.Schema)
	}
	return verr.OrNil()
}

// RatingsForCandidate returns the candidate's ratings in submission order.
// The caller needs view_ratings.
func (s *ScoringService) RatingsForCandidate(
	ctx context.Context,
	p domain.Principal,
	candidateID string,
) ([]domain.Rating, error) {
	return middleware.Observed(ctx, s.obs, "RatingsForCandidate", func(ctx context.Context) ([]domain.Rating, error) {
		if err := p.Require(domain.CapViewRatings); err != nil {
			return nil, err
		}
		if _, err := storage.Get(ctx, s.deps.Store, domain.Candidates, candidateID); err != nil {
			return nil, err
		}
		return s.ratingsFor(ctx, candidateID)
	})
}

func (s *ScoringService) ratingsFor(ctx context.Context, candidateID string) ([]domain.Rating, error) {
	return storage.Filter(ctx, s.deps.Store, domain.Ratings, func(r domain.Rating) bool {
		return r.CandidateID == candidateID
	})
}

// RatingsByInterviewer returns every rating the interviewer submitted. The
// caller needs view_ratings.
func (s *ScoringService) RatingsByInterviewer(
	ctx context.Context,
	p domain.Principal,
	interviewer string,
) ([]domain.Rating, error) {
	return middleware.Observed(ctx, s.obs, "RatingsByInterviewer", func(ctx context.Context) ([]domain.Rating, error) {
		if err := p.Require(domain.CapViewRatings); err != nil {
			return nil, err
		}
		key := normalizeIdentifier(interviewer)
		return storage.Filter(ctx, s.deps.Store, domain.Ratings, func(r domain.Rating) bool {
			return normalizeIdentifier(r.Interviewer) == key
		})
	})
}

// HasRated reports whether interviewer has already rated the candidate.
func (s *ScoringService) HasRated(ctx context.Context, candidateID, interviewer string) (bool, error) {
	ratings, err := s.ratingsFor(ctx, candidateID)
	if err != nil {
		return false, err
	}
	key := normalizeIdentifier(interviewer)
	for _, r := range ratings {
		if normalizeIdentifier(r.Interviewer) == key {
			return true, nil
		}
	}
	return false, nil
}

// CandidateScores aggregates the candidate's ratings. It returns a nil
// summary when the candidate has not been rated. The caller needs
// view_ratings.
func (s *ScoringService) CandidateScores(
	ctx context.Context,
	p domain.Principal,
	candidateID string,
) (*domain.ScoreSummary, error) {
	return middleware.Observed(ctx, s.obs, "CandidateScores", func(ctx context.Context) (*domain.ScoreSummary, error) {
		if err := p.Require(domain.CapViewRatings); err != nil {
			return nil, err
		}
		if _, err := storage.Get(ctx, s.deps.Store, domain.Candidates, candidateID); err != nil {
			return nil, err
		}
		ratings, err := s.ratingsFor(ctx, candidateID)
		if err != nil {
			return nil, err
		}
		return s.aggregate(ratings), nil
	})
}

// aggregate summarizes ratings with the aggregator for their schema. Ratings
// of one candidate always share a schema.
func (s *ScoringService) aggregate(ratings []domain.Rating) *domain.ScoreSummary {
	if len(ratings) == 0 {
		return nil
	}
	agg, ok := s.aggregators[ratings[0].Schema]
	if !ok {
		agg = s.aggregators[s.config.DefaultSchema]
	}
	return agg.Aggregate(ratings)
}

// Dashboard ranks every candidate by overall average. Concurrent callers
// share a single computation. The caller needs view_candidates.
func (s *ScoringService) Dashboard(ctx context.Context, p domain.Principal) (Dashboard, error) {
	return middleware.Observed(ctx, s.obs, "Dashboard", func(ctx context.Context) (Dashboard, error) {
		if err := p.Require(domain.CapViewCandidates); err != nil {
			return Dashboard{}, err
		}
		v, err, shared := s.group.Do("dashboard", func() (any, error) {
			return s.buildDashboard(ctx)
		})
		if err != nil {
			return Dashboard{}, err
		}
		if shared {
			s.deps.Logger.DebugContext(ctx, "dashboard computation shared")
		}
		return v.(Dashboard), nil
	})
}

func (s *ScoringService) buildDashboard(ctx context.Context) (Dashboard, error) {
	candidates, err := storage.All(ctx, s.deps.Store, domain.Candidates)
	if err != nil {
		return Dashboard{}, err
	}
	ratings, err := storage.All(ctx, s.deps.Store, domain.Ratings)
	if err != nil {
		return Dashboard{}, err
	}

	byCandidate := make(map[string][]domain.Rating, len(candidates))
	for _, r := range ratings {
		byCandidate[r.CandidateID] = append(byCandidate[r.CandidateID], r)
	}

	d := Dashboard{
		Standings:  make([]CandidateStanding, 0, len(candidates)),
		Candidates: len(candidates),
	}
	var sum float64
	for _, c := range candidates {
		rs := byCandidate[c.ID]
		summary := s.aggregate(rs)
		d.Standings = append(d.Standings, CandidateStanding{Candidate: c, Summary: summary})
		d.TotalRatings += len(rs)
		if summary != nil && summary.Overall > 0 {
			d.Rated++
			sum += summary.Overall
		}
	}
	if d.Rated > 0 {
		d.PanelAverage = sum / float64(d.Rated)
	}

	slices.SortStableFunc(d.Standings, func(a, b CandidateStanding) int {
		if (a.Summary == nil) != (b.Summary == nil) {
			if a.Summary == nil {
				return 1
			}
			return -1
		}
		return cmp.Compare(b.Overall(), a.Overall())
	})
	return d, nil
}

// PendingFor lists candidates the interviewer has not rated yet, in
// registration order. An empty interviewer means the principal itself. The
// caller needs view_candidates.
func (s *ScoringService) PendingFor(
	ctx context.Context,
	p domain.Principal,
	interviewer string,
) ([]domain.Candidate, error) {
	return middleware.Observed(ctx, s.obs, "PendingFor", func(ctx context.Context) ([]domain.Candidate, error) {
		if err := p.Require(domain.CapViewCandidates); err != nil {
			return nil, err
		}
		if interviewer == "" {
			interviewer = p.Subject
		}
		key := normalizeIdentifier(interviewer)

		rated := make(map[string]bool)
		ratings, err := storage.All(ctx, s.deps.Store, domain.Ratings)
		if err != nil {
			return nil, err
		}
		for _, r := range ratings {
			if normalizeIdentifier(r.Interviewer) == key {
				rated[r.CandidateID] = true
			}
		}
		return storage.Filter(ctx, s.deps.Store, domain.Candidates, func(c domain.Candidate) bool {
			return !rated[c.ID]
		})
	})
}
