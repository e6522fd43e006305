package ports

import (
	"context"
	"time"

	"github.com/propspace/marketplace/internal/core/domain"
)

// AuthRepository persists the auth provider's credentials.
type AuthRepository interface {
	// Create stores a new credential. A duplicate email yields domain.ErrUserExists.
	Create(ctx context.Context, cred *domain.Credential) (*domain.Credential, error)
	// FindByEmail and FindByID return domain.ErrUserNotFound when nothing matches.
	FindByEmail(ctx context.Context, email string) (*domain.Credential, error)
	FindByID(ctx context.Context, id string) (*domain.Credential, error)
}

// AccessClaims are the verified contents of an access token.
type AccessClaims struct {
	Principal domain.Principal
	SessionID string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies access tokens.
type TokenIssuer interface {
	Issue(principal domain.Principal, sessionID string, ttl time.Duration) (token string, expiresAt time.Time, err error)
	// Parse returns domain.ErrInvalidToken for malformed, forged or expired tokens.
	Parse(token string) (*AccessClaims, error)
}

// RefreshGrant is what a refresh token resolves to.
type RefreshGrant struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// SessionTokenStore keeps refresh tokens and revoked session ids.
type SessionTokenStore interface {
	SaveRefresh(ctx context.Context, token string, grant RefreshGrant, ttl time.Duration) error
	// ConsumeRefresh deletes the token and returns its grant; an unknown
	// token yields domain.ErrInvalidToken.
	ConsumeRefresh(ctx context.Context, token string) (*RefreshGrant, error)
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}
