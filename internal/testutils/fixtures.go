package testutils

import (
	"github.com/ahrav/go-panel/internal/domain"
)

// Principals used across service tests.
var (
	Admin        = domain.Principal{Subject: "admin@srcas.ac.in", Role: domain.RoleAdmin}
	Interviewer  = domain.Principal{Subject: "interviewer1@srcas.ac.in", Role: domain.RoleInterviewer}
	Interviewer2 = domain.Principal{Subject: "interviewer2@srcas.ac.in", Role: domain.RoleInterviewer}
)

// UniformScores scores every parameter of schema with v.
func UniformScores(schema domain.Schema, v int) map[domain.Parameter]int {
	scores := make(map[domain.Parameter]int, len(schema.Parameters()))
	for _, p := range schema.Parameters() {
		scores[p] = v
	}
	return scores
}

// NomineeRow formats one tab-separated bulk import row.
func NomineeRow(name, email, regNo, shift, department string) string {
	return name + "\t" + email + "\t" + regNo + "\t" + shift + "\t" + department
}
