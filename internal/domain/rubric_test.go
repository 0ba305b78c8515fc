package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSchemas_TenDistinctParameters verifies that both rubrics enumerate ten
// distinct parameters.
func TestSchemas_TenDistinctParameters(t *testing.T) {
	for _, s := range Schemas() {
		t.Run(string(s), func(t *testing.T) {
			params := s.Parameters()
			assert.Len(t, params, 10)

			seen := make(map[Parameter]bool)
			for _, p := range params {
				assert.False(t, seen[p], "duplicate parameter %s", p)
				seen[p] = true
				assert.True(t, s.Has(p))
			}
			assert.NoError(t, s.Validate())
		})
	}
}

func TestSchema_Distinct(t *testing.T) {
	assert.True(t, SchemaTechnical.Has(ParamTechnicalSkills))
	assert.False(t, SchemaLeadership.Has(ParamTechnicalSkills))
	assert.True(t, SchemaLeadership.Has(ParamVisionAndMission))
	assert.False(t, SchemaTechnical.Has(ParamVisionAndMission))

	assert.Error(t, Schema("creative").Validate())
	assert.Empty(t, Schema("creative").Parameters())
}

func TestSchema_ParametersIsCopy(t *testing.T) {
	params := SchemaTechnical.Parameters()
	params[0] = "mutated"
	assert.Equal(t, ParamPresentation, SchemaTechnical.Parameters()[0])
}

func TestScoreSummary_Average(t *testing.T) {
	s := &ScoreSummary{
		Schema: SchemaLeadership,
		Parameters: []ParameterAverage{
			{Parameter: ParamPresentation, Average: 3.5, Observations: 2},
		},
	}
	assert.Equal(t, 3.5, s.Average(ParamPresentation))
	assert.Equal(t, 0.0, s.Average(ParamTeamwork))

	var empty *ScoreSummary
	assert.Equal(t, 0.0, empty.Average(ParamPresentation))
}

func TestRating_Mean(t *testing.T) {
	r := Rating{Scores: map[Parameter]int{ParamPresentation: 4, ParamTeamwork: 2, ParamLeadership: 3}}
	assert.InDelta(t, 3.0, r.Mean(), 1e-9)
	assert.Equal(t, 0.0, Rating{}.Mean())
}
