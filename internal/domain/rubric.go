package domain

import (
	"fmt"
	"slices"
)

// Parameter names one rubric criterion an interviewer scores.
type Parameter string

// Rubric parameters. Some appear in both schemas.
const (
	ParamPresentation            Parameter = "presentation"
	ParamCommunication           Parameter = "communication"
	ParamTechnicalSkills         Parameter = "technicalSkills"
	ParamProblemSolving          Parameter = "problemSolving"
	ParamTeamwork                Parameter = "teamwork"
	ParamLeadership              Parameter = "leadership"
	ParamInitiative              Parameter = "initiative"
	ParamAttitude                Parameter = "attitude"
	ParamAdaptability            Parameter = "adaptability"
	ParamOverallImpression       Parameter = "overallImpression"
	ParamVisionAndMission        Parameter = "visionAndMission"
	ParamAchievements            Parameter = "achievements"
	ParamCreativityAndInnovation Parameter = "creativityAndInnovation"
	ParamMotivationAndPassion    Parameter = "motivationAndPassion"
	ParamProfessionalism         Parameter = "professionalism"
)

// Score bounds for a single rubric parameter.
const (
	MinScore = 1
	MaxScore = 5
)

// MaxRemarksLength is the maximum number of characters in rating remarks.
const MaxRemarksLength = 500

// Schema identifies one of the two fixed rubrics. Ratings produced under
// different schemas are never aggregated together.
type Schema string

// Supported rubric schemas.
const (
	// SchemaTechnical scores general interview performance.
	SchemaTechnical Schema = "technical"

	// SchemaLeadership scores suitability for a club leadership role.
	SchemaLeadership Schema = "leadership"
)

var schemaParameters = map[Schema][]Parameter{
	SchemaTechnical: {
		ParamPresentation,
		ParamCommunication,
		ParamTechnicalSkills,
		ParamProblemSolving,
		ParamTeamwork,
		ParamLeadership,
		ParamInitiative,
		ParamAttitude,
		ParamAdaptability,
		ParamOverallImpression,
	},
	SchemaLeadership: {
		ParamPresentation,
		ParamCommunication,
		ParamVisionAndMission,
		ParamAchievements,
		ParamLeadership,
		ParamProblemSolving,
		ParamTeamwork,
		ParamCreativityAndInnovation,
		ParamMotivationAndPassion,
		ParamProfessionalism,
	},
}

// Schemas returns every supported schema.
func Schemas() []Schema { return []Schema{SchemaTechnical, SchemaLeadership} }

// Validate returns an error when s is not a supported schema.
func (s Schema) Validate() error {
	if _, ok := schemaParameters[s]; !ok {
		return fmt.Errorf("unknown rubric schema %q", string(s))
	}
	return nil
}

// Parameters returns the ordered parameters of the schema. The returned slice
// is a copy and may be modified by the caller.
func (s Schema) Parameters() []Parameter {
	return slices.Clone(schemaParameters[s])
}

// Has reports whether p belongs to the schema.
func (s Schema) Has(p Parameter) bool {
	return slices.Contains(schemaParameters[s], p)
}

// ParameterAverage is the mean score of one parameter across ratings.
type ParameterAverage struct {
	Parameter Parameter `json:"parameter"`
	Average   float64   `json:"average"`
	// Observations counts the ratings that scored this parameter.
	Observations int `json:"observations"`
}

// ScoreSummary is the aggregate of a set of ratings under one schema.
type ScoreSummary struct {
	Schema Schema `json:"schema"`

	// Parameters holds one entry per schema parameter, in schema order.
	// Parameters with no observations carry an average of 0.
	Parameters []ParameterAverage `json:"parameters"`

	// Overall is the mean of the non-zero parameter averages.
	Overall float64 `json:"overall"`

	// Ratings is the number of ratings that were aggregated.
	Ratings int `json:"ratings"`
}

// Average returns the average for p, or 0 when p is not part of the summary.
func (s *ScoreSummary) Average(p Parameter) float64 {
	if s == nil {
		return 0
	}
	for _, pa := range s.Parameters {
		if pa.Parameter == p {
			return pa.Average
		}
	}
	return 0
}

// Aggregator defines the interface for reducing a set of ratings into
// per-parameter and overall averages.
type Aggregator interface {
	// Aggregate combines ratings into a ScoreSummary. It returns nil when
	// ratings is empty.
	Aggregate(ratings []Rating) *ScoreSummary
}
