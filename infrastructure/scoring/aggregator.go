package scoring

import (
	"fmt"

	"github.com/ahrav/go-panel/internal/domain"
)

var _ domain.Aggregator = (*ScoreAggregator)(nil)

// ScoreAggregator reduces a set of ratings under one rubric schema into
// per-parameter averages and an overall average.
//
// The overall average is a mean of means: each parameter is averaged over the
// ratings that scored it, and the overall figure is the mean of the non-zero
// parameter averages. A parameter nobody scored therefore averages 0 and is
// left out of the overall denominator rather than dragging it down.
//
// ScoreAggregator is stateless after construction and safe for concurrent use.
type ScoreAggregator struct {
	config AggregatorConfig
	params []domain.Parameter
}

// AggregatorConfig selects the rubric an aggregator works with.
type AggregatorConfig struct {
	// Schema is the rubric whose parameters are averaged. Scores for keys
	// outside the schema are ignored.
	Schema domain.Schema `yaml:"schema" json:"schema" validate:"required,oneof=technical leadership"`
}

// NewScoreAggregator creates an aggregator for the configured schema.
func NewScoreAggregator(config AggregatorConfig) (*ScoreAggregator, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &ScoreAggregator{config: config, params: config.Schema.Parameters()}, nil
}

// Schema returns the rubric this aggregator was built for.
func (a *ScoreAggregator) Schema() domain.Schema { return a.config.Schema }

// Aggregate implements domain.Aggregator. It returns nil when ratings is
// empty. Ratings recorded under a different schema still contribute the
// scores whose keys belong to this aggregator's schema.
func (a *ScoreAggregator) Aggregate(ratings []domain.Rating) *domain.ScoreSummary {
	if len(ratings) == 0 {
		return nil
	}

	summary := &domain.ScoreSummary{
		Schema:     a.config.Schema,
		Parameters: make([]domain.ParameterAverage, 0, len(a.params)),
		Ratings:    len(ratings),
	}

	var (
		overallSum float64
		nonZero    int
	)
	for _, p := range a.params {
		var sum, n int
		for _, r := range ratings {
			score, ok := r.Scores[p]
			if !ok {
				continue
			}
			sum += score
			n++
		}

		avg := 0.0
		if n > 0 {
			avg = float64(sum) / float64(n)
		}
		summary.Parameters = append(summary.Parameters, domain.ParameterAverage{
			Parameter:    p,
			Average:      avg,
			Observations: n,
		})

		if avg != 0 {
			overallSum += avg
			nonZero++
		}
	}

	if nonZero > 0 {
		summary.Overall = overallSum / float64(nonZero)
	}
	return summary
}
