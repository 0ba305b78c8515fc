package application

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ahrav/go-panel/infrastructure/middleware"
	"github.com/ahrav/go-panel/infrastructure/scoring"
	"github.com/ahrav/go-panel/infrastructure/storage"
	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

// NewNominee is the nomination form for an election candidate.
type NewNominee struct {
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	RegNo      string          `json:"reg_no"`
	Shift      domain.Shift    `json:"shift"`
	Department string          `json:"department"`
	Position   domain.Position `json:"position"`
}

// ElectionService manages nominees, records votes and ranks results.
//
// Voting is open: voters are identified by registration number only, and a
// registration number may vote once per position.
type ElectionService struct {
	deps  Deps
	obs   *middleware.Observer
	tally *scoring.VoteTally
}

// NewElectionService creates an ElectionService.
func NewElectionService(deps Deps, config ElectionConfig) (*ElectionService, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	tally, err := scoring.NewVoteTally(scoring.TallyConfig{TieBreaker: scoring.TieBreaker(config.TieBreaker)})
	if err != nil {
		return nil, err
	}
	return &ElectionService{deps: deps, obs: deps.observer("election"), tally: tally}, nil
}

// AddNominee validates the form, checks that the registration year and shift
// qualify for the requested position, and stores the nominee with zero votes.
// Emails are unique ignoring case. The caller needs manage_nominees.
func (s *ElectionService) AddNominee(ctx context.Context, p domain.Principal, in NewNominee) (domain.Nominee, error) {
	return middleware.Observed(ctx, s.obs, "AddNominee", func(ctx context.Context) (domain.Nominee, error) {
		if err := p.Require(domain.CapManageNominees); err != nil {
			return domain.Nominee{}, err
		}

		position := in.Position
		if parsed, ok := domain.ParsePosition(string(in.Position)); ok {
			position = parsed
		}
		nominee := domain.Nominee{
			ID:          s.deps.NewID(),
			Name:        strings.TrimSpace(in.Name),
			Email:       strings.TrimSpace(in.Email),
			RegNo:       strings.TrimSpace(in.RegNo),
			Shift:       in.Shift,
			Department:  strings.TrimSpace(in.Department),
			Position:    position,
			NominatedAt: s.deps.now(),
		}
		if err := validateRecord("nominee", nominee); err != nil {
			return domain.Nominee{}, err
		}
		if err := domain.CheckEligibility(nominee.Position, nominee.Shift, nominee.RegNo); err != nil {
			s.deps.Logger.InfoContext(ctx, "nominee ineligible", "reg_no", nominee.RegNo, "error", err)
			return domain.Nominee{}, err
		}

		err := s.deps.Store.Atomically(ctx, func(tx ports.Collections) error {
			if err := rejectTakenEmail(ctx, tx, nominee.Email, "AddNominee"); err != nil {
				return err
			}
			return storage.Insert(ctx, tx, domain.Nominees, nominee.ID, nominee)
		})
		if err != nil {
			return domain.Nominee{}, err
		}

		s.deps.Logger.InfoContext(ctx, "nominee added",
			"id", nominee.ID, "position", string(nominee.Position), "by", p.Subject)
		s.recordNomineeGauges(ctx)
		return nominee, nil
	})
}

// rejectTakenEmail fails with domain.ErrDuplicate when a stored nominee
// already uses email.
func rejectTakenEmail(ctx context.Context, c ports.Collections, email, op string) error {
	existing, err := storage.All(ctx, c, domain.Nominees)
	if err != nil {
		return err
	}
	key := normalizeIdentifier(email)
	for _, n := range existing {
		if normalizeIdentifier(n.Email) == key {
			return domain.NewRecordError(domain.Nominees.Name(), n.ID, op, domain.ErrDuplicate)
		}
	}
	return nil
}

// ListNominees returns the nominees standing for position in nomination
// order. PositionNone lists every nominee.
func (s *ElectionService) ListNominees(ctx context.Context, position domain.Position) ([]domain.Nominee, error) {
	return middleware.Observed(ctx, s.obs, "ListNominees", func(ctx context.Context) ([]domain.Nominee, error) {
		return s.nomineesFor(ctx, s.deps.Store, position)
	}, attribute.String("position", string(position)))
}

func (s *ElectionService) nomineesFor(
	ctx context.Context,
	c ports.Collections,
	position domain.Position,
) ([]domain.Nominee, error) {
	return storage.Filter(ctx, c, domain.Nominees, func(n domain.Nominee) bool {
		return position == domain.PositionNone || n.Position == position
	})
}

// GetNominee returns one nominee.
func (s *ElectionService) GetNominee(ctx context.Context, id string) (domain.Nominee, error) {
	return middleware.Observed(ctx, s.obs, "GetNominee", func(ctx context.Context) (domain.Nominee, error) {
		return storage.Get(ctx, s.deps.Store, domain.Nominees, id)
	})
}

// DeleteNominee removes a nominee. Votes already cast for the nominee stay
// recorded, so their voters still cannot vote again for that position. The
// caller needs manage_nominees.
func (s *ElectionService) DeleteNominee(ctx context.Context, p domain.Principal, id string) error {
	return s.obs.Observe(ctx, "DeleteNominee", func(ctx context.Context) error {
		if err := p.Require(domain.CapManageNominees); err != nil {
			return err
		}
		if err := s.deps.Store.Delete(ctx, domain.Nominees.Name(), id); err != nil {
			return err
		}
		s.deps.Logger.InfoContext(ctx, "nominee deleted", "id", id, "by", p.Subject)
		s.recordNomineeGauges(ctx)
		return nil
	})
}

// HasVoted reports whether voterRegNo has voted for position.
func (s *ElectionService) HasVoted(ctx context.Context, voterRegNo string, position domain.Position) (bool, error) {
	votes, err := storage.All(ctx, s.deps.Store, domain.Votes)
	if err != nil {
		return false, err
	}
	return scoring.HasVoted(votes, voterRegNo, position), nil
}

// CastVote records a vote by voterRegNo for the nominee. The eligibility
// check, the vote record and the nominee's count increment happen in one
// store transaction: either all of them take effect or none does. A second
// vote for the same position fails with domain.ErrAlreadyVoted.
func (s *ElectionService) CastVote(ctx context.Context, voterRegNo, nomineeID string) (domain.Vote, error) {
	return middleware.Observed(ctx, s.obs, "CastVote", func(ctx context.Context) (domain.Vote, error) {
		voterRegNo = strings.TrimSpace(voterRegNo)
		if voterRegNo == "" {
			verr := domain.NewValidationError("vote")
			verr.AddError("voter registration number is required")
			return domain.Vote{}, verr
		}

		var (
			vote     domain.Vote
			position domain.Position
		)
		err := s.deps.Store.Atomically(ctx, func(tx ports.Collections) error {
			nominee, err := storage.Get(ctx, tx, domain.Nominees, nomineeID)
			if err != nil {
				return err
			}
			position = nominee.Position
			votes, err := storage.All(ctx, tx, domain.Votes)
			if err != nil {
				return err
			}
			if scoring.HasVoted(votes, voterRegNo, nominee.Position) {
				return domain.NewRecordError(domain.Votes.Name(), voterRegNo, "CastVote", domain.ErrAlreadyVoted)
			}

			vote = domain.Vote{
				ID:         s.deps.NewID(),
				NomineeID:  nominee.ID,
				Position:   nominee.Position,
				VoterRegNo: voterRegNo,
				VotedAt:    s.deps.now(),
			}
			if err := storage.Insert(ctx, tx, domain.Votes, vote.ID, vote); err != nil {
				return err
			}
			nominee.Votes++
			return storage.Put(ctx, tx, domain.Nominees, nominee.ID, nominee)
		})

		s.deps.Metrics.RecordCounter(ports.MetricVotesCast, 1, map[string]string{
			"position": string(position),
			"status":   middleware.Outcome(err),
		})
		if err != nil {
			s.deps.Logger.InfoContext(ctx, "vote rejected", "voter", voterRegNo, "nominee", nomineeID, "error", err)
			return domain.Vote{}, err
		}
		s.deps.Logger.InfoContext(ctx, "vote cast", "voter", voterRegNo, "position", string(vote.Position))
		return vote, nil
	}, attribute.String("nominee_id", nomineeID))
}

// Results ranks the nominees for position by votes. The caller needs
// view_results.
func (s *ElectionService) Results(
	ctx context.Context,
	p domain.Principal,
	position domain.Position,
) ([]scoring.Standing, error) {
	return middleware.Observed(ctx, s.obs, "Results", func(ctx context.Context) ([]scoring.Standing, error) {
		if err := p.Require(domain.CapViewResults); err != nil {
			return nil, err
		}
		if !position.Valid() {
			verr := domain.NewValidationError("results")
			verr.AddErrorf("position %q is not a known position", string(position))
			return nil, verr
		}
		nominees, err := s.nomineesFor(ctx, s.deps.Store, position)
		if err != nil {
			return nil, err
		}
		return s.tally.Rank(nominees), nil
	}, attribute.String("position", string(position)))
}

// recordNomineeGauges publishes the number of nominees per position.
// Failures are logged and otherwise ignored.
func (s *ElectionService) recordNomineeGauges(ctx context.Context) {
	nominees, err := storage.All(ctx, s.deps.Store, domain.Nominees)
	if err != nil {
		s.deps.Logger.WarnContext(ctx, "nominee gauge refresh failed", "error", err)
		return
	}
	counts := make(map[domain.Position]int, len(domain.Positions()))
	for _, n := range nominees {
		counts[n.Position]++
	}
	for _, position := range domain.Positions() {
		s.deps.Metrics.RecordGauge(ports.MetricNominees, float64(counts[position]),
			map[string]string{"scope": string(position)})
	}
}
