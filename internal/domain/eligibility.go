package domain

import "strings"

// DefaultYear is the class year assigned to registration numbers whose prefix
// matches no known intake. No position accepts it.
const DefaultYear = 1

// Registration-number prefixes of the two intakes that can hold office.
const (
	thirdYearPrefix  = "23"
	secondYearPrefix = "24"
)

// YearFromRegNo derives a class year from a registration-number prefix.
// Only the prefix is inspected; length and numeric content are not validated.
func YearFromRegNo(regNo string) int {
	switch {
	case strings.HasPrefix(regNo, thirdYearPrefix):
		return 3
	case strings.HasPrefix(regNo, secondYearPrefix):
		return 2
	default:
		return DefaultYear
	}
}

// Shift is the teaching shift a student attends.
type Shift int

// Supported shifts.
const (
	ShiftOne Shift = 1
	ShiftTwo Shift = 2
)

// Valid reports whether s is one of the two known shifts.
func (s Shift) Valid() bool { return s == ShiftOne || s == ShiftTwo }

// Position is one of the four fixed leadership positions.
type Position string

// Supported positions. PositionNone marks an ineligible year/shift pair.
const (
	PositionNone           Position = ""
	PositionChairman       Position = "Chairman"
	PositionViceChairman   Position = "Vice Chairman"
	PositionSecretary      Position = "Secretary"
	PositionJointSecretary Position = "Joint Secretary"
)

// Positions returns the four positions in ballot order.
func Positions() []Position {
	return []Position{
		PositionChairman,
		PositionViceChairman,
		PositionSecretary,
		PositionJointSecretary,
	}
}

type requirement struct {
	year  int
	shift Shift
}

var positionRules = map[Position]requirement{
	PositionChairman:       {year: 3, shift: ShiftOne},
	PositionViceChairman:   {year: 3, shift: ShiftTwo},
	PositionSecretary:      {year: 2, shift: ShiftOne},
	PositionJointSecretary: {year: 2, shift: ShiftTwo},
}

// Valid reports whether p is one of the four known positions.
func (p Position) Valid() bool {
	_, ok := positionRules[p]
	return ok
}

// Requirement returns the year and shift a position is reserved for.
// ok is false for PositionNone and unknown positions.
func (p Position) Requirement() (year int, shift Shift, ok bool) {
	r, ok := positionRules[p]
	return r.year, r.shift, ok
}

// ParsePosition converts a label into a Position, ignoring case and
// surrounding whitespace.
func ParsePosition(label string) (Position, bool) {
	label = strings.TrimSpace(label)
	for _, p := range Positions() {
		if strings.EqualFold(string(p), label) {
			return p, true
		}
	}
	return PositionNone, false
}

// PositionFor maps a class year and shift to the single position they are
// eligible for, or PositionNone when no rule matches.
func PositionFor(year int, shift Shift) Position {
	for _, p := range Positions() {
		r := positionRules[p]
		if r.year == year && r.shift == shift {
			return p
		}
	}
	return PositionNone
}

// CheckEligibility recomputes the year from regNo and verifies that both year
// and shift match the rule for position. The returned *EligibilityError names
// the required year and shift.
func CheckEligibility(position Position, shift Shift, regNo string) error {
	year := YearFromRegNo(regNo)
	r, ok := positionRules[position]
	if !ok {
		return &EligibilityError{Position: position, Year: year, Shift: shift}
	}
	if r.year != year || r.shift != shift {
		return &EligibilityError{
			Position:      position,
			Year:          year,
			Shift:         shift,
			RequiredYear:  r.year,
			RequiredShift: r.shift,
		}
	}
	return nil
}

// IsEligible is the boolean form of CheckEligibility.
func IsEligible(position Position, shift Shift, regNo string) bool {
	return CheckEligibility(position, shift, regNo) == nil
}
