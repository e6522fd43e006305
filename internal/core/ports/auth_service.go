package ports

import (
	"context"

	"github.com/propspace/marketplace/internal/core/domain"
)

// AuthService is the hosted auth provider exposed by the API.
type AuthService interface {
	SignUp(ctx context.Context, email, password string, attrs domain.SignupAttributes) (*domain.AuthSession, error)
	SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthSession, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthSession, error)
	SignOut(ctx context.Context, accessToken string) error
	// Verify checks an access token and returns the principal it was issued to.
	Verify(ctx context.Context, accessToken string) (*domain.Principal, error)
	// User is Verify followed by a fresh read of the stored credential.
	User(ctx context.Context, accessToken string) (*domain.Principal, error)
}
