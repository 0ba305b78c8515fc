package domain

import (
	"fmt"
	"slices"
)

// Role is the closed set of account roles.
type Role string

// Supported roles.
const (
	RoleAdmin       Role = "admin"
	RoleInterviewer Role = "interviewer"
)

// Capability names a protected operation class.
type Capability string

// Capabilities checked by the application services.
const (
	CapManageCandidates Capability = "manage_candidates"
	CapViewCandidates   Capability = "view_candidates"
	CapRateCandidates   Capability = "rate_candidates"
	CapViewRatings      Capability = "view_ratings"
	CapViewReports      Capability = "view_reports"
	CapManageNominees   Capability = "manage_nominees"
	CapViewResults      Capability = "view_results"
	CapManageData       Capability = "manage_data"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		CapManageCandidates,
		CapViewCandidates,
		CapViewRatings,
		CapViewReports,
		CapManageNominees,
		CapViewResults,
		CapManageData,
	},
	RoleInterviewer: {
		CapViewCandidates,
		CapRateCandidates,
		CapViewRatings,
	},
}

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleCapabilities[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Can reports whether the role grants capability c.
func (r Role) Can(c Capability) bool {
	return slices.Contains(roleCapabilities[r], c)
}

// Capabilities returns a copy of the role's capability set.
func (r Role) Capabilities() []Capability {
	return slices.Clone(roleCapabilities[r])
}

// Principal is an authenticated actor.
type Principal struct {
	// Subject is the login identifier (email) of the user.
	Subject string `json:"sub"`
	Role    Role   `json:"role"`
}

// Require returns ErrForbidden wrapped with context when the principal's role
// does not grant capability c.
func (p Principal) Require(c Capability) error {
	if !p.Role.Can(c) {
		return fmt.Errorf("%w: %s (role %q) lacks %s", ErrForbidden, p.Subject, string(p.Role), string(c))
	}
	return nil
}
