package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
	"github.com/ahrav/go-panel/internal/testutils"
)

func newAuth(t *testing.T, env testEnv, cfg AuthConfig) *AuthService {
	t.Helper()
	svc, err := NewAuthService(env.deps, cfg)
	require.NoError(t, err)
	_, err = svc.AddUser(context.Background(), testutils.Admin, NewUser{
		Name: "Interviewer 1", Email: "Interviewer1@srcas.ac.in", Password: "club123", Role: domain.RoleInterviewer,
	})
	require.NoError(t, err)
	return svc
}

// TestNewAuthService_Validation verifies constructor checks.
func TestNewAuthService_Validation(t *testing.T) {
	_, err := NewAuthService(Deps{}, testAuthConfig())
	assert.ErrorIs(t, err, ErrNoStore)

	env := newTestEnv(t)
	cfg := testAuthConfig()
	cfg.TokenSecret = "x"
	_, err = NewAuthService(env.deps, cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

// TestAuthService_Login covers credential matching.
func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		secret     string
		wantErr    error
	}{
		{"exact email", "Interviewer1@srcas.ac.in", "club123", nil},
		{"case and space insensitive", "  interviewer1@SRCAS.ac.in ", "club123", nil},
		{"wrong password", "interviewer1@srcas.ac.in", "club124", domain.ErrInvalidCredentials},
		{"unknown user", "nobody@srcas.ac.in", "club123", domain.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			svc := newAuth(t, env, testAuthConfig())

			session, err := svc.Login(context.Background(), tt.identifier, tt.secret)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, session.Token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Interviewer1@srcas.ac.in", session.Principal.Subject)
			assert.Equal(t, domain.RoleInterviewer, session.Principal.Role)
			assert.Equal(t, "Interviewer 1", session.Name)
			assert.Equal(t, env.clock.Now().Add(12*time.Hour), session.ExpiresAt)
			assert.NotEmpty(t, session.Token)
		})
	}
}

// TestAuthService_LoginThrottle verifies failed attempts exhaust the burst
// and a later success is still refused until tokens refill.
func TestAuthService_LoginThrottle(t *testing.T) {
	env := newTestEnv(t)
	cfg := testAuthConfig()
	cfg.LoginRate = 1
	cfg.LoginBurst = 2
	svc := newAuth(t, env, cfg)
	ctx := context.Background()

	for range 2 {
		_, err := svc.Login(ctx, "interviewer1@srcas.ac.in", "wrong")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
		require.NotErrorIs(t, err, ErrTooManyAttempts)
	}

	_, err := svc.Login(ctx, "interviewer1@srcas.ac.in", "club123")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// One attempt per minute refills.
	env.clock.Advance(time.Minute)
	_, err = svc.Login(ctx, "interviewer1@srcas.ac.in", "club123")
	require.NoError(t, err)

	assert.Equal(t, float64(2), env.metrics.Counter(ports.MetricLoginAttempts, map[string]string{"outcome": "denied"}))
	assert.Equal(t, float64(1), env.metrics.Counter(ports.MetricLoginAttempts, map[string]string{"outcome": "throttled"}))
	assert.Equal(t, float64(1), env.metrics.Counter(ports.MetricLoginAttempts, map[string]string{"outcome": "success"}))
}

// TestAuthService_LoginForgetsIdleBuckets verifies buckets for identifiers
// that have fully refilled are dropped once a new identifier is throttled,
// while buckets still holding failures are kept.
func TestAuthService_LoginForgetsIdleBuckets(t *testing.T) {
	env := newTestEnv(t)
	cfg := testAuthConfig()
	cfg.LoginRate = 1
	cfg.LoginBurst = 2
	svc := newAuth(t, env, cfg)
	ctx := context.Background()

	for _, id := range []string{"ghost1@x.com", "ghost2@x.com"} {
		_, err := svc.Login(ctx, id, "wrong")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
	assert.Len(t, svc.limiters, 2, "unrefilled buckets are kept")

	env.clock.Advance(2 * time.Minute)
	_, err := svc.Login(ctx, "ghost3@x.com", "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	assert.Len(t, svc.limiters, 1)
	assert.Contains(t, svc.limiters, "ghost3@x.com")
}

// TestAuthService_Verify covers token round trips, expiry and tampering.
func TestAuthService_Verify(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuth(t, env, testAuthConfig())

	session, err := svc.Login(context.Background(), "interviewer1@srcas.ac.in", "club123")
	require.NoError(t, err)

	p, err := svc.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Principal, p)

	_, err = svc.Verify(session.Token + "x")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	other, err := NewAuthService(env.deps, AuthConfig{
		TokenSecret: "a-completely-different-secret",
		TokenTTL:    time.Hour,
		LoginRate:   5,
		LoginBurst:  5,
		BcryptCost:  4,
	})
	require.NoError(t, err)
	_, err = other.Verify(session.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	env.clock.Advance(13 * time.Hour)
	_, err = svc.Verify(session.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

// TestAuthService_AddUser covers permissions and validation on account
// creation.
func TestAuthService_AddUser(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuth(t, env, testAuthConfig())
	ctx := context.Background()

	tests := []struct {
		name    string
		p       domain.Principal
		in      NewUser
		wantErr error
	}{
		{
			name:    "interviewer cannot add users",
			p:       testutils.Interviewer,
			in:      NewUser{Name: "X", Email: "x@srcas.ac.in", Password: "secret1", Role: domain.RoleInterviewer},
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "duplicate email ignoring case",
			p:       testutils.Admin,
			in:      NewUser{Name: "Dup", Email: "INTERVIEWER1@srcas.ac.in", Password: "secret1", Role: domain.RoleInterviewer},
			wantErr: domain.ErrDuplicate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddUser(ctx, tt.p, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("short password and bad role", func(t *testing.T) {
		_, err := svc.AddUser(ctx, testutils.Admin, NewUser{Name: "Y", Email: "y@srcas.ac.in", Password: "123", Role: domain.RoleAdmin})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)

		_, err = svc.AddUser(ctx, testutils.Admin, NewUser{Name: "Y", Email: "y@srcas.ac.in", Password: "123456", Role: "guest"})
		require.ErrorAs(t, err, &verr)
	})

	users, err := svc.ListUsers(ctx, testutils.Admin)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.NotEqual(t, "club123", users[0].PasswordHash)
}
