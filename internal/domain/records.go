package domain

import (
	"time"
)

// Candidate is a person registered by an administrator to be interviewed.
type Candidate struct {
	// ID uniquely identifies the candidate (typically a UUID).
	ID string `json:"id" validate:"required"`

	Name       string `json:"name" validate:"required,min=1,max=200"`
	Email      string `json:"email" validate:"required,email"`
	RegNo      string `json:"reg_no" validate:"required"`
	Department string `json:"department" validate:"required"`

	// Shift is the teaching shift the candidate attends.
	Shift Shift `json:"shift" validate:"oneof=1 2"`

	// Year is derived from RegNo at registration time.
	Year int `json:"year"`

	// Position is the leadership position the candidate is interviewing for.
	Position Position `json:"position" validate:"required,position"`

	// Photo is an optional image URL or data URI.
	Photo string `json:"photo,omitempty"`

	AppliedAt time.Time `json:"applied_at"`
}

// Rating is one interviewer's scoring of one candidate. Exactly one rating
// per (CandidateID, Interviewer) pair is allowed.
type Rating struct {
	ID          string `json:"id" validate:"required"`
	CandidateID string `json:"candidate_id" validate:"required"`
	Interviewer string `json:"interviewer" validate:"required"`

	// Schema names the rubric the scores were given under.
	Schema Schema `json:"schema" validate:"required,rubric"`

	// Scores maps each rubric parameter to an integer score in [1,5].
	Scores map[Parameter]int `json:"scores" validate:"required,dive,min=1,max=5"`

	Remarks string    `json:"remarks" validate:"max=500"`
	RatedAt time.Time `json:"rated_at"`
}

// Mean returns the plain mean of every score in the rating, or 0 when the
// rating has no scores.
func (r Rating) Mean() float64 {
	if len(r.Scores) == 0 {
		return 0
	}
	var sum int
	for _, v := range r.Scores {
		sum += v
	}
	return float64(sum) / float64(len(r.Scores))
}

// Nominee is a student standing for one of the four election positions.
type Nominee struct {
	ID         string   `json:"id" validate:"required"`
	Name       string   `json:"name" validate:"required,min=3"`
	Email      string   `json:"email" validate:"required,email"`
	RegNo      string   `json:"reg_no" validate:"required,min=8"`
	Shift      Shift    `json:"shift" validate:"oneof=1 2"`
	Department string   `json:"department" validate:"required"`
	Position   Position `json:"position" validate:"required,position"`

	// Votes is incremented exactly once per accepted vote.
	Votes int `json:"votes" validate:"min=0"`

	NominatedAt time.Time `json:"nominated_at"`
}

// Vote records one voter's choice for one position. At most one vote per
// (VoterRegNo, Position) pair is allowed.
type Vote struct {
	ID         string    `json:"id" validate:"required"`
	NomineeID  string    `json:"nominee_id" validate:"required"`
	Position   Position  `json:"position" validate:"required,position"`
	VoterRegNo string    `json:"voter_reg_no" validate:"required"`
	VotedAt    time.Time `json:"voted_at"`
}

// User is a login account for an administrator or interviewer.
type User struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`

	// PasswordHash is a bcrypt hash of the account secret.
	PasswordHash string `json:"password_hash" validate:"required"`

	Role Role `json:"role" validate:"required,oneof=admin interviewer"`
}
