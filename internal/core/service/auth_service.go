package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/propspace/marketplace/internal/api/metrics"
	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

const minPasswordLength = 6

// AuthService is the hosted auth provider: credentials, access tokens and
// rotating refresh tokens.
type AuthService struct {
	repo       ports.AuthRepository
	tokens     ports.TokenIssuer
	sessions   ports.SessionTokenStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	validate   *validator.Validate
	log        zerolog.Logger
}

func NewAuthService(
	repo ports.AuthRepository,
	tokens ports.TokenIssuer,
	sessions ports.SessionTokenStore,
	accessTTL, refreshTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &AuthService{
		repo:       repo,
		tokens:     tokens,
		sessions:   sessions,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		validate:   validator.New(),
		log:        log,
	}
}

// SignUp creates a credential and stores attrs verbatim so they come back
// unchanged on every later session for the principal.
func (s *AuthService) SignUp(ctx context.Context, email, password string, attrs domain.SignupAttributes) (*domain.AuthSession, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		s.count("signup", false)
		return nil, domain.ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		s.count("signup", false)
		return nil, domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("sign up: hash password: %w", err)
	}

	now := time.Now().UTC()
	cred := &domain.Credential{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Attributes:   attrs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := s.repo.Create(ctx, cred)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			s.count("signup", false)
		}
		return nil, err
	}

	s.count("signup", true)
	s.log.Info().Str("principal_id", created.ID).Str("role", attrs.Role).Msg("account created")
	return s.issue(ctx, created.Principal(), uuid.NewString())
}

// SignInWithPassword checks credentials. Unknown emails and wrong passwords
// are both reported as domain.ErrInvalidCredentials.
func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		s.count("signin", false)
		return nil, domain.ErrInvalidCredentials
	}

	cred, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.count("signin", false)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		s.count("signin", false)
		return nil, domain.ErrInvalidCredentials
	}

	s.count("signin", true)
	return s.issue(ctx, cred.Principal(), uuid.NewString())
}

// Refresh exchanges a refresh token for a new token pair. Refresh tokens are
// single use.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthSession, error) {
	if refreshToken == "" {
		s.count("refresh", false)
		return nil, domain.ErrInvalidToken
	}
	grant, err := s.sessions.ConsumeRefresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			s.count("refresh", false)
		}
		return nil, err
	}

	revoked, err := s.sessions.IsRevoked(ctx, grant.SessionID)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if revoked {
		s.count("refresh", false)
		return nil, domain.ErrInvalidToken
	}

	cred, err := s.repo.FindByID(ctx, grant.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.count("refresh", false)
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	s.count("refresh", true)
	return s.issue(ctx, cred.Principal(), grant.SessionID)
}

// SignOut revokes the session behind accessToken. Outstanding refresh tokens
// of that session stop working as well.
func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		s.count("signout", false)
		return err
	}
	if err := s.sessions.Revoke(ctx, claims.SessionID, time.Now().Add(s.refreshTTL)); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	s.count("signout", true)
	s.log.Info().Str("principal_id", claims.Principal.ID).Str("session_id", claims.SessionID).Msg("session revoked")
	return nil
}

// Verify parses accessToken and rejects revoked sessions.
func (s *AuthService) Verify(ctx context.Context, accessToken string) (*domain.Principal, error) {
	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		return nil, err
	}
	revoked, err := s.sessions.IsRevoked(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if revoked {
		return nil, domain.ErrInvalidToken
	}
	p := claims.Principal
	return &p, nil
}

// User returns the principal behind accessToken as currently stored.
func (s *AuthService) User(ctx context.Context, accessToken string) (*domain.Principal, error) {
	p, err := s.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	cred, err := s.repo.FindByID(ctx, p.ID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	principal := cred.Principal()
	return &principal, nil
}

func (s *AuthService) issue(ctx context.Context, principal domain.Principal, sessionID string) (*domain.AuthSession, error) {
	access, expiresAt, err := s.tokens.Issue(principal, sessionID, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh := rand.Text()
	grant := ports.RefreshGrant{UserID: principal.ID, SessionID: sessionID}
	if err := s.sessions.SaveRefresh(ctx, refresh, grant, s.refreshTTL); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &domain.AuthSession{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		Principal:    principal,
	}, nil
}

func (s *AuthService) count(op string, ok bool) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	metrics.AuthOperationsTotal.WithLabelValues(op, result).Inc()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
