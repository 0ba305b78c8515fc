package application

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/testutils"
)

// TestDataService_RoundTrip verifies export followed by import into an empty
// store reproduces users, candidates and ratings.
func TestDataService_RoundTrip(t *testing.T) {
	ctx := context.Background()

	src := newTestEnv(t)
	auth := newAuth(t, src, testAuthConfig())
	scoring := newScoring(t, src)
	c := registerCandidate(t, scoring, "Pravin B", "p@x.com", "23127035", 1)
	_, err := scoring.SubmitRating(ctx, testutils.Interviewer, RatingInput{
		CandidateID: c.ID,
		Scores:      testutils.UniformScores(domain.SchemaTechnical, 4),
		Remarks:     "steady",
	})
	require.NoError(t, err)

	data := exportFrom(t, src)

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.Len(t, keys, 3)
	assert.Contains(t, keys, "users")
	assert.Contains(t, keys, "candidates")
	assert.Contains(t, keys, "ratings")

	dst := newTestEnv(t)
	svc, err := NewDataService(dst.deps)
	require.NoError(t, err)
	require.NoError(t, svc.Import(ctx, testutils.Admin, data))

	assert.JSONEq(t, string(data), string(exportFrom(t, dst)))

	users, err := auth.ListUsers(ctx, testutils.Admin)
	require.NoError(t, err)
	imported, err := NewAuthService(dst.deps, testAuthConfig())
	require.NoError(t, err)
	got, err := imported.ListUsers(ctx, testutils.Admin)
	require.NoError(t, err)
	assert.Equal(t, users, got)
}

func exportFrom(t *testing.T, env testEnv) []byte {
	t.Helper()
	svc, err := NewDataService(env.deps)
	require.NoError(t, err)
	data, err := svc.Export(context.Background(), testutils.Admin)
	require.NoError(t, err)
	return data
}

// TestDataService_ImportRejects covers malformed documents; the store must be
// unchanged after each.
func TestDataService_ImportRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"users": [`},
		{"not an object", `[1, 2, 3]`},
		{"missing ratings", `{"users": [], "candidates": []}`},
		{"null candidates", `{"users": [], "candidates": null, "ratings": []}`},
		{"wrong shape", `{"users": {}, "candidates": [], "ratings": []}`},
		{"record without id", `{"users": [{"name": "x"}], "candidates": [], "ratings": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			scoring := newScoring(t, env)
			registerCandidate(t, scoring, "Pravin B", "p@x.com", "23127035", 1)

			svc, err := NewDataService(env.deps)
			require.NoError(t, err)
			err = svc.Import(context.Background(), testutils.Admin, []byte(tt.data))
			assert.ErrorIs(t, err, domain.ErrInvalidEnvelope)

			all, err := scoring.ListCandidates(context.Background(), testutils.Admin)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

// TestDataService_Permissions verifies both directions need manage_data.
func TestDataService_Permissions(t *testing.T) {
	env := newTestEnv(t)
	svc, err := NewDataService(env.deps)
	require.NoError(t, err)

	_, err = svc.Export(context.Background(), testutils.Interviewer)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	err = svc.Import(context.Background(), testutils.Interviewer, []byte(`{"users":[],"candidates":[],"ratings":[]}`))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// TestDataService_ImportReplaces verifies an import discards records absent
// from the document.
func TestDataService_ImportReplaces(t *testing.T) {
	env := newTestEnv(t)
	scoring := newScoring(t, env)
	registerCandidate(t, scoring, "Pravin B", "p@x.com", "23127035", 1)

	svc, err := NewDataService(env.deps)
	require.NoError(t, err)
	require.NoError(t, svc.Import(context.Background(), testutils.Admin, []byte(`{"users":[],"candidates":[],"ratings":[]}`)))

	all, err := scoring.ListCandidates(context.Background(), testutils.Admin)
	require.NoError(t, err)
	assert.Empty(t, all)
}
