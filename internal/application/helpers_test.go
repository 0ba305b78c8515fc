package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-panel/infrastructure/storage/memory"
	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/testutils"
)

type testEnv struct {
	deps    Deps
	clock   *testutils.Clock
	metrics *testutils.Metrics
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { _ = store.Close() })

	clock := testutils.NewClock(time.Time{})
	metrics := testutils.NewMetrics()
	return testEnv{
		deps: Deps{
			Store:   store,
			Metrics: metrics,
			Now:     clock.Now,
			NewID:   testutils.NewSequence("rec").Next,
		},
		clock:   clock,
		metrics: metrics,
	}
}

func testAuthConfig() AuthConfig {
	cfg := DefaultConfig().Auth
	cfg.BcryptCost = 4
	return cfg
}

func newScoring(t *testing.T, env testEnv) *ScoringService {
	t.Helper()
	svc, err := NewScoringService(env.deps, DefaultConfig().Scoring)
	require.NoError(t, err)
	return svc
}

func newElection(t *testing.T, env testEnv) *ElectionService {
	t.Helper()
	svc, err := NewElectionService(env.deps, DefaultConfig().Election)
	require.NoError(t, err)
	return svc
}

func registerCandidate(t *testing.T, svc *ScoringService, name, email, regNo string, shift domain.Shift) domain.Candidate {
	t.Helper()
	c, err := svc.RegisterCandidate(context.Background(), testutils.Admin, NewCandidate{
		Name:       name,
		Email:      email,
		RegNo:      regNo,
		Department: "BSC IT",
		Shift:      shift,
	})
	require.NoError(t, err)
	return c
}

func addNominee(t *testing.T, svc *ElectionService, name, email, regNo string, shift domain.Shift, pos domain.Position) domain.Nominee {
	t.Helper()
	n, err := svc.AddNominee(context.Background(), testutils.Admin, NewNominee{
		Name:       name,
		Email:      email,
		RegNo:      regNo,
		Shift:      shift,
		Department: "BSC CS",
		Position:   pos,
	})
	require.NoError(t, err)
	return n
}
