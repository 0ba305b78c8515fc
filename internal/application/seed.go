package application

import (
	"context"
	"errors"

	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

// SeedData is the initial content installed into an empty store.
type SeedData struct {
	Users      []NewUser      `json:"users" yaml:"users"`
	Candidates []NewCandidate `json:"candidates" yaml:"candidates"`
}

// SeedReport counts what Seed installed.
type SeedReport struct {
	Users      int `json:"users"`
	Candidates int `json:"candidates"`

	// Skipped counts seed candidates dropped as duplicates.
	Skipped int `json:"skipped"`
}

// DefaultSeed returns the panel's stock accounts and the sample candidate
// list. The default passwords are meant for first login only.
func DefaultSeed() SeedData {
	return SeedData{
		Users: []NewUser{
			{Name: "Admin", Email: "admin@srcas.ac.in", Password: "admin123", Role: domain.RoleAdmin},
			{Name: "Interviewer 1", Email: "interviewer1@srcas.ac.in", Password: "club123", Role: domain.RoleInterviewer},
			{Name: "Interviewer 2", Email: "interviewer2@srcas.ac.in", Password: "club123", Role: domain.RoleInterviewer},
			{Name: "Interviewer 3", Email: "interviewer3@srcas.ac.in", Password: "club123", Role: domain.RoleInterviewer},
		},
		Candidates: []NewCandidate{
			{Name: "NILASHREE G", Email: "23107104@srcas.ac.in", RegNo: "23107104", Shift: 2, Department: "BSC IT"},
			{Name: "Ayyappadas TV", Email: "tvayyappadas@gmail.com", RegNo: "24129008", Shift: 2, Department: "BSC CT"},
			{Name: "Dharsini S", Email: "24128017@srcas.ac.in", RegNo: "24128017", Shift: 2, Department: "BSC CS AI DS"},
			{Name: "Dhananjay R S", Email: "24106078@srcas.ac.in", RegNo: "24106078", Shift: 2, Department: "BSC Computer Science"},
			{Name: "Sri Thraishika S", Email: "24128062@srcas.ac.in", RegNo: "24128062", Shift: 2, Department: "BSC CS AI DS"},
			{Name: "Choudhry", Email: "24107078@srcas.ac.in", RegNo: "24107078", Shift: 2, Department: "BSC IT"},
			{Name: "Samrutha S", Email: "samruthasenthilkumar06@gmail.com", RegNo: "24127056", Shift: 1, Department: "BSC CS DA"},
			{Name: "KAVIYAN S", Email: "skaviyan004@gmail.com", RegNo: "24127034", Shift: 1, Department: "BSC CS DA"},
			{Name: "Kavinraj J S", Email: "kaviee2507@gmail.com", RegNo: "24127033", Shift: 1, Department: "BSC CS DA"},
			{Name: "Sarath P", Email: "23107116@srcas.ac.in", RegNo: "23107116", Shift: 2, Department: "BSC IT"},
			{Name: "Mathivathani AG", Email: "mathianand1036@gmail.com", RegNo: "24129029", Shift: 2, Department: "BSC CT"},
			{Name: "Pravin B", Email: "23127035@srcas.ac.in", RegNo: "23127035", Shift: 1, Department: "BSC CS DA"},
			{Name: "Kaniskha C", Email: "23128025@srcas.ac.in", RegNo: "23128025", Shift: 2, Department: "BSC CS AI DS"},
			{Name: "Choudhry", Email: "24107078@srcas.ac.in", RegNo: "24107078", Shift: 2, Department: "BSC IT"},
			{Name: "Samrutha S", Email: "samruthasenthilkumar06@gmail.com", RegNo: "24127056", Shift: 1, Department: "BSC CS DA"},
		},
	}
}

// Seed installs data into collections that are still empty. A collection
// that already holds records is left alone, so Seed is safe to run on every
// start. Duplicate seed candidates are skipped and counted.
func Seed(ctx context.Context, auth *AuthService, scoring *ScoringService, data SeedData) (SeedReport, error) {
	var report SeedReport
	store, logger := auth.deps.Store, auth.deps.Logger

	err := store.Atomically(ctx, func(tx ports.Collections) error {
		users, err := tx.Scan(ctx, domain.Users.Name())
		if err != nil {
			return err
		}
		if len(users) == 0 {
			for _, u := range data.Users {
				if _, err := auth.createUser(ctx, tx, u); err != nil {
					return err
				}
				report.Users++
			}
		}

		candidates, err := tx.Scan(ctx, domain.Candidates.Name())
		if err != nil {
			return err
		}
		if len(candidates) > 0 {
			return nil
		}
		for _, c := range data.Candidates {
			_, err := scoring.registerCandidate(ctx, tx, c)
			if errors.Is(err, domain.ErrDuplicate) {
				logger.WarnContext(ctx, "duplicate seed candidate skipped", "email", c.Email)
				report.Skipped++
				continue
			}
			if err != nil {
				return err
			}
			report.Candidates++
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, err
	}

	logger.InfoContext(ctx, "store seeded",
		"users", report.Users, "candidates", report.Candidates, "skipped", report.Skipped)
	return report, nil
}

// IsEmpty reports whether every collection in the store is empty.
func IsEmpty(ctx context.Context, c ports.Collections) (bool, error) {
	for _, name := range domain.CollectionNames() {
		records, err := c.Scan(ctx, name)
		if err != nil {
			return false, err
		}
		if len(records) > 0 {
			return false, nil
		}
	}
	return true, nil
}
