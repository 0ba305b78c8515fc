package scoring

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/ahrav/go-panel/internal/domain"
)

// Standing is a nominee's place in the results for one position.
type Standing struct {
	Nominee domain.Nominee `json:"nominee"`

	// Rank uses standard competition ranking: equal vote counts share a rank
	// and the next rank skips accordingly (1, 1, 3).
	Rank int `json:"rank"`

	// Share is the nominee's fraction of all votes in the set, or 0 when no
	// votes were cast.
	Share float64 `json:"share"`
}

// TallyConfig controls how a VoteTally orders nominees.
type TallyConfig struct {
	TieBreaker TieBreaker `yaml:"tie_breaker" json:"tie_breaker" validate:"required,oneof=input name"`
}

// DefaultTallyConfig keeps tied nominees in input order.
func DefaultTallyConfig() TallyConfig { return TallyConfig{TieBreaker: TieInput} }

// VoteTally orders nominees by descending vote count. It never mutates its
// input and is safe for concurrent use.
type VoteTally struct {
	config TallyConfig
}

// NewVoteTally creates a tally with a validated configuration.
func NewVoteTally(config TallyConfig) (*VoteTally, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &VoteTally{config: config}, nil
}

// Tally returns a copy of nominees sorted by descending vote count.
func (t *VoteTally) Tally(nominees []domain.Nominee) []domain.Nominee {
	out := slices.Clone(nominees)
	slices.SortStableFunc(out, func(a, b domain.Nominee) int {
		if c := cmp.Compare(b.Votes, a.Votes); c != 0 {
			return c
		}
		if t.config.TieBreaker == TieName {
			if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
				return c
			}
			return strings.Compare(a.ID, b.ID)
		}
		return 0
	})
	return out
}

// Rank tallies nominees and assigns competition ranks and vote shares.
func (t *VoteTally) Rank(nominees []domain.Nominee) []Standing {
	sorted := t.Tally(nominees)

	total := 0
	for _, n := range sorted {
		total += n.Votes
	}

	standings := make([]Standing, len(sorted))
	for i, n := range sorted {
		rank := i + 1
		if i > 0 && n.Votes == sorted[i-1].Votes {
			rank = standings[i-1].Rank
		}
		share := 0.0
		if total > 0 {
			share = float64(n.Votes) / float64(total)
		}
		standings[i] = Standing{Nominee: n, Rank: rank, Share: share}
	}
	return standings
}

// HasVoted reports whether votes contains a vote by voterRegNo for position.
// Registration numbers are compared ignoring surrounding space and case.
func HasVoted(votes []domain.Vote, voterRegNo string, position domain.Position) bool {
	voterRegNo = strings.TrimSpace(voterRegNo)
	for _, v := range votes {
		if v.Position == position && strings.EqualFold(strings.TrimSpace(v.VoterRegNo), voterRegNo) {
			return true
		}
	}
	return false
}
