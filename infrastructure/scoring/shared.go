// Package scoring implements the pure computations behind interview scoring
// and election results: rubric aggregation and vote tallying.
package scoring

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// TieBreaker represents the strategy for ordering nominees with equal vote
// counts.
type TieBreaker string

// Supported tie-breaking strategies.
const (
	// TieInput keeps tied nominees in the order they were supplied.
	TieInput TieBreaker = "input"

	// TieName orders tied nominees by name, then by ID.
	TieName TieBreaker = "name"
)

// ErrInvalidConfig is returned when a scoring component is constructed with a
// configuration that fails validation.
var ErrInvalidConfig = errors.New("invalid scoring configuration")

// Package-level validator instance for configuration validation.
var validate = validator.New()
