package bulk

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-panel/internal/domain"
)

// Duplicate is an incoming nominee whose email is already taken.
type Duplicate struct {
	Nominee domain.Nominee `json:"nominee"`

	// ExistingID is the stored nominee with the same email, or empty when the
	// clash is with an earlier row of the same batch.
	ExistingID string `json:"existing_id,omitempty"`
}

// NearDuplicate pairs two nominees whose names differ by only a few edits,
// such as "Sri Thraishika.S" and "Sri Thraishika S". It is informational;
// neither record is skipped because of it.
type NearDuplicate struct {
	A        domain.Nominee `json:"a"`
	B        domain.Nominee `json:"b"`
	Distance int            `json:"distance"`
}

// foldKey normalizes a string for case-insensitive comparison using Unicode
// case folding.
func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Dedupe splits incoming into nominees with unseen emails and duplicates.
// Emails are compared after Unicode case folding, against existing and
// against earlier rows of incoming. Duplicates are never merged or
// overwritten.
func Dedupe(incoming, existing []domain.Nominee) (fresh []domain.Nominee, dups []Duplicate) {
	seen := make(map[string]string, len(existing)+len(incoming))
	for _, n := range existing {
		seen[foldKey(n.Email)] = n.ID
	}

	fresh = make([]domain.Nominee, 0, len(incoming))
	dups = []Duplicate{}
	for _, n := range incoming {
		key := foldKey(n.Email)
		if id, ok := seen[key]; ok {
			dups = append(dups, Duplicate{Nominee: n, ExistingID: id})
			continue
		}
		// Later rows with this email clash with the batch, not the store.
		seen[key] = ""
		fresh = append(fresh, n)
	}
	return fresh, dups
}

// NearDuplicates reports pairs of nominees whose case-folded names are within
// maxDistance Levenshtein edits. Each incoming nominee is compared with every
// later incoming nominee and with every existing one. A negative maxDistance
// disables the check.
func NearDuplicates(incoming, existing []domain.Nominee, maxDistance int) []NearDuplicate {
	out := []NearDuplicate{}
	if maxDistance < 0 {
		return out
	}

	check := func(a, b domain.Nominee) {
		d := levenshtein.ComputeDistance(foldKey(a.Name), foldKey(b.Name))
		if d <= maxDistance {
			out = append(out, NearDuplicate{A: a, B: b, Distance: d})
		}
	}

	for i, a := range incoming {
		for _, b := range incoming[i+1:] {
			check(a, b)
		}
		for _, b := range existing {
			check(a, b)
		}
	}
	return out
}
