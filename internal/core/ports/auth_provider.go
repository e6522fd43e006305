package ports

import (
	"context"

	"github.com/propspace/marketplace/internal/core/domain"
)

// AuthStateListener receives provider-pushed transitions in emission order.
type AuthStateListener func(event domain.AuthEvent)

// AuthProvider is the client-side view of the auth provider consumed by the
// session manager.
type AuthProvider interface {
	// CurrentSession returns the persisted session, or nil when signed out.
	CurrentSession(ctx context.Context) (*domain.AuthSession, error)
	// SignUp embeds attrs as signup attributes of the new principal.
	SignUp(ctx context.Context, email, password string, attrs domain.SignupAttributes) (*domain.AuthSession, error)
	SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthSession, error)
	SignOut(ctx context.Context) error
	// OnAuthStateChange registers l and returns a function that removes it.
	OnAuthStateChange(l AuthStateListener) (unsubscribe func())
}
