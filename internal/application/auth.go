package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-panel/infrastructure/middleware"
	"github.com/ahrav/go-panel/infrastructure/storage"
	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

// ErrTooManyAttempts is returned by Login when an identifier has exhausted
// its failed-attempt allowance. It wraps domain.ErrInvalidCredentials.
var ErrTooManyAttempts = fmt.Errorf("too many login attempts: %w", domain.ErrInvalidCredentials)

// Session is the result of a successful login.
type Session struct {
	Principal domain.Principal `json:"principal"`
	Name      string           `json:"name"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
}

type sessionClaims struct {
	Role domain.Role `json:"role"`
	Name string      `json:"name,omitempty"`
	jwt.RegisteredClaims
}

const tokenIssuer = "go-panel"

// AuthService authenticates users against the users collection and issues
// signed session tokens.
//
// Failed logins are throttled per identifier with a token bucket. A
// successful login clears the identifier's bucket, and buckets that have
// fully refilled are dropped when a new identifier is seen.
type AuthService struct {
	deps   Deps
	config AuthConfig
	obs    *middleware.Observer

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewAuthService creates an AuthService.
func NewAuthService(deps Deps, config AuthConfig) (*AuthService, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	return &AuthService{
		deps:     deps,
		config:   config,
		obs:      deps.observer("auth"),
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

func normalizeIdentifier(identifier string) string {
	return cases.Fold().String(strings.TrimSpace(identifier))
}

// limiter returns the bucket for key. Inserting a new bucket first evicts
// buckets that have refilled completely, since they remember no failures.
func (s *AuthService) limiter(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lim, ok := s.limiters[key]; ok {
		return lim
	}
	for k, lim := range s.limiters {
		if lim.TokensAt(now) >= float64(lim.Burst()) {
			delete(s.limiters, k)
		}
	}
	lim := rate.NewLimiter(rate.Limit(s.config.LoginRate/60), s.config.LoginBurst)
	s.limiters[key] = lim
	return lim
}

func (s *AuthService) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.limiters, key)
}

// Login checks identifier (an email address, compared case-insensitively)
// and secret against the stored users.
func (s *AuthService) Login(ctx context.Context, identifier, secret string) (Session, error) {
	return middleware.Observed(ctx, s.obs, "Login", func(ctx context.Context) (Session, error) {
		key := normalizeIdentifier(identifier)
		now := s.deps.now()
		lim := s.limiter(key, now)

		if lim.TokensAt(now) < 1 {
			s.recordLogin("throttled")
			s.deps.Logger.WarnContext(ctx, "login throttled", "identifier", key)
			return Session{}, ErrTooManyAttempts
		}

		user, err := s.findUser(ctx, s.deps.Store, key)
		if err == nil {
			err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(secret))
		}
		if err != nil {
			if ports.IsStorageFailure(err) {
				return Session{}, err
			}
			lim.AllowN(now, 1)
			s.recordLogin("denied")
			s.deps.Logger.InfoContext(ctx, "login denied", "identifier", key)
			return Session{}, domain.ErrInvalidCredentials
		}

		s.forget(key)
		session, err := s.issue(user, now)
		if err != nil {
			return Session{}, err
		}
		s.recordLogin("success")
		s.deps.Logger.InfoContext(ctx, "login succeeded", "identifier", key, "role", string(user.Role))
		return session, nil
	})
}

func (s *AuthService) recordLogin(outcome string) {
	s.deps.Metrics.RecordCounter(ports.MetricLoginAttempts, 1, map[string]string{"outcome": outcome})
}

// findUser returns the user whose folded email equals key.
func (s *AuthService) findUser(ctx context.Context, c ports.Collections, key string) (domain.User, error) {
	users, err := storage.All(ctx, c, domain.Users)
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range users {
		if normalizeIdentifier(u.Email) == key {
			return u, nil
		}
	}
	return domain.User{}, domain.NewRecordError(domain.Users.Name(), key, "Login", domain.ErrNotFound)
}

func (s *AuthService) issue(user domain.User, now time.Time) (Session, error) {
	expires := now.Add(s.config.TokenTTL)
	claims := sessionClaims{
		Role: user.Role,
		Name: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return Session{}, fmt.Errorf("sign session token: %w", err)
	}
	return Session{
		Principal: domain.Principal{Subject: user.Email, Role: user.Role},
		Name:      user.Name,
		Token:     token,
		ExpiresAt: expires,
	}, nil
}

// Verify parses a session token and returns the principal it was issued to.
// Expired, tampered or foreign tokens fail with domain.ErrInvalidCredentials.
func (s *AuthService) Verify(token string) (domain.Principal, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(*jwt.Token) (any, error) { return []byte(s.config.TokenSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.deps.Now),
	)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
	}
	role, err := domain.ParseRole(string(claims.Role))
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
	}
	return domain.Principal{Subject: claims.Subject, Role: role}, nil
}

// NewUser describes an account to create.
type NewUser struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// AddUser creates an account. The caller needs manage_data.
func (s *AuthService) AddUser(ctx context.Context, p domain.Principal, in NewUser) (domain.User, error) {
	return middleware.Observed(ctx, s.obs, "AddUser", func(ctx context.Context) (domain.User, error) {
		if err := p.Require(domain.CapManageData); err != nil {
			return domain.User{}, err
		}
		var user domain.User
		err := s.deps.Store.Atomically(ctx, func(tx ports.Collections) error {
			var err error
			user, err = s.createUser(ctx, tx, in)
			return err
		})
		if err != nil {
			return domain.User{}, err
		}
		s.deps.Logger.InfoContext(ctx, "user added", "email", user.Email, "role", string(user.Role), "by", p.Subject)
		return user, nil
	})
}

// createUser hashes the password and inserts the user, rejecting emails that
// are already registered.
func (s *AuthService) createUser(ctx context.Context, c ports.Collections, in NewUser) (domain.User, error) {
	if len(in.Password) < 6 {
		verr := domain.NewValidationError("user")
		verr.AddError("password must be at least 6 characters")
		return domain.User{}, verr
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.config.BcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           s.deps.NewID(),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		Role:         in.Role,
	}
	if err := validateRecord("user", user); err != nil {
		return domain.User{}, err
	}

	key := normalizeIdentifier(user.Email)
	if _, err := s.findUser(ctx, c, key); err == nil {
		return domain.User{}, domain.NewRecordError(domain.Users.Name(), user.Email, "AddUser", domain.ErrDuplicate)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	if err := storage.Insert(ctx, c, domain.Users, user.ID, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// ListUsers returns every account. The caller needs manage_data.
func (s *AuthService) ListUsers(ctx context.Context, p domain.Principal) ([]domain.User, error) {
	return middleware.Observed(ctx, s.obs, "ListUsers", func(ctx context.Context) ([]domain.User, error) {
		if err := p.Require(domain.CapManageData); err != nil {
			return nil, err
		}
		return storage.All(ctx, s.deps.Store, domain.Users)
	})
}
