package ports

import (
	"context"
	"time"

	"github.com/propspace/marketplace/internal/core/domain"
)

// ProfileReader reads a profile by principal id. A missing profile yields
// domain.ErrProfileNotFound; any other error is a store failure.
type ProfileReader interface {
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
}

// ProfileRepository is the server-side profile store.
type ProfileRepository interface {
	ProfileReader
	// CreateIfAbsent inserts p unless a row with the same id exists, and
	// returns the stored row. inserted is false when the row already existed.
	CreateIfAbsent(ctx context.Context, p *domain.Profile) (stored *domain.Profile, inserted bool, err error)
	UpdateDetails(ctx context.Context, id string, details domain.ProfileDetails, updatedAt time.Time) (*domain.Profile, error)
	UpdateRole(ctx context.Context, id string, role domain.Role, updatedAt time.Time) (*domain.Profile, error)
}

// ProfileCache is a read-through cache in front of the profile store. Get
// returns (nil, nil) on a miss.
type ProfileCache interface {
	Get(ctx context.Context, id string) (*domain.Profile, error)
	Set(ctx context.Context, p *domain.Profile) error
	Invalidate(ctx context.Context, id string) error
}

// CreateProfileInput is the payload of the privileged creation service.
type CreateProfileInput struct {
	ID          string
	Email       string
	Role        domain.Role
	DisplayName string
}

// ProfileCreator creates a profile or returns the existing one. It must be
// safe to call more than once for the same id.
type ProfileCreator interface {
	CreateProfile(ctx context.Context, in CreateProfileInput) (*domain.Profile, error)
}

// ProfileProvisioner is the server-side form of ProfileCreator. created is
// true only for the call that inserted the row.
type ProfileProvisioner interface {
	Provision(ctx context.Context, in CreateProfileInput) (profile *domain.Profile, created bool, err error)
}

// IdentityResolver turns a principal into an EffectiveSession.
type IdentityResolver interface {
	Resolve(ctx context.Context, principal *domain.Principal) (domain.EffectiveSession, error)
	Refresh(ctx context.Context, current domain.EffectiveSession) (domain.EffectiveSession, error)
}

// ProfileService covers profile edits and role administration.
type ProfileService interface {
	Get(ctx context.Context, id string) (*domain.Profile, error)
	UpdateDetails(ctx context.Context, id string, details domain.ProfileDetails) (*domain.Profile, error)
	ChangeRole(ctx context.Context, id string, role domain.Role) (*domain.Profile, error)
}
