package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/propspace/marketplace/internal/api/metrics"
	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

// Resolution outcomes, used as metric labels.
const (
	outcomeExisting   = "existing"
	outcomeCreated    = "created"
	outcomeDegraded   = "degraded"
	outcomeUnresolved = "unresolved"
	outcomeError      = "error"
)

// IdentityResolver reconciles an authenticated principal with its profile.
// It is a two-step pipeline: LookupProfile, then CreateProfileIfAbsent only
// when the lookup reported that no profile exists.
type IdentityResolver struct {
	profiles ports.ProfileReader
	creator  ports.ProfileCreator
	log      zerolog.Logger
}

// NewIdentityResolver wires the resolver to a profile store and a creation
// service. The same resolver is used by the API middleware (Mongo-backed)
// and by the CLI (HTTP-backed).
func NewIdentityResolver(profiles ports.ProfileReader, creator ports.ProfileCreator, log zerolog.Logger) *IdentityResolver {
	return &IdentityResolver{profiles: profiles, creator: creator, log: log}
}

// LookupProfile reads the profile for id. It returns domain.ErrProfileNotFound
// when none exists and an error matching domain.ErrProfileLookup for every
// other store failure.
func (r *IdentityResolver) LookupProfile(ctx context.Context, id string) (*domain.Profile, error) {
	p, err := r.profiles.FindByID(ctx, id)
	switch {
	case err == nil && p != nil:
		return p, nil
	case err == nil, errors.Is(err, domain.ErrProfileNotFound):
		return nil, domain.ErrProfileNotFound
	default:
		return nil, classify(domain.ErrProfileLookup, err)
	}
}

// CreateProfileIfAbsent asks the creation service for a profile built from
// the principal's signup attributes. Without a valid signup role nothing is
// written and domain.ErrRoleUndetermined is returned.
func (r *IdentityResolver) CreateProfileIfAbsent(ctx context.Context, principal *domain.Principal) (*domain.Profile, error) {
	role, err := domain.ParseRole(principal.SignupAttributes.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: principal %s has no usable signup role", domain.ErrRoleUndetermined, principal.ID)
	}

	displayName := principal.SignupAttributes.DisplayName
	if displayName == "" {
		displayName = domain.DefaultDisplayName(principal.Email)
	}

	p, err := r.creator.CreateProfile(ctx, ports.CreateProfileInput{
		ID:          principal.ID,
		Email:       principal.Email,
		Role:        role,
		DisplayName: displayName,
	})
	if err != nil {
		return nil, classify(domain.ErrProfileCreation, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: creation service returned no profile", domain.ErrProfileCreation)
	}
	return p, nil
}

// Resolve produces the EffectiveSession for principal. At most one creation
// attempt is made, and only when the store reported no profile. On failure
// the returned session still carries the principal, an absent profile and
// Err; the same error is also returned.
func (r *IdentityResolver) Resolve(ctx context.Context, principal *domain.Principal) (domain.EffectiveSession, error) {
	if principal == nil {
		return domain.EffectiveSession{}, domain.ErrNoPrincipal
	}
	start := time.Now()
	p := *principal
	session := domain.EffectiveSession{Principal: &p}

	outcome := outcomeExisting
	profile, err := r.LookupProfile(ctx, p.ID)
	absent := errors.Is(err, domain.ErrProfileNotFound)
	if absent {
		outcome = outcomeCreated
		profile, err = r.CreateProfileIfAbsent(ctx, &p)
	}

	session.Profile = profile
	role, roleErr := deriveRole(profile, absent, p.SignupAttributes)
	session.EffectiveRole = role

	switch {
	case err != nil:
		session.Err = err
		if errors.Is(err, domain.ErrRoleUndetermined) {
			outcome = outcomeUnresolved
		} else if outcome == outcomeCreated {
			outcome = outcomeDegraded
		} else {
			outcome = outcomeError
		}
	case roleErr != nil:
		session.Err = roleErr
		outcome = outcomeUnresolved
	}

	metrics.IdentityResolutionsTotal.WithLabelValues(outcome).Inc()
	metrics.IdentityResolutionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if session.Err != nil {
		r.log.Warn().Err(session.Err).
			Str("principal_id", p.ID).
			Str("outcome", outcome).
			Msg("identity resolution incomplete")
		return session, session.Err
	}

	r.log.Debug().
		Str("principal_id", p.ID).
		Str("role", role.String()).
		Str("outcome", outcome).
		Msg("identity resolved")
	return session, nil
}

// Refresh re-reads the profile for the current principal without attempting
// creation. It is used after profile edits.
func (r *IdentityResolver) Refresh(ctx context.Context, current domain.EffectiveSession) (domain.EffectiveSession, error) {
	if current.Principal == nil {
		return domain.EffectiveSession{}, domain.ErrNoPrincipal
	}
	p := *current.Principal
	session := domain.EffectiveSession{Principal: &p}

	profile, err := r.LookupProfile(ctx, p.ID)
	session.Profile = profile
	role, roleErr := deriveRole(profile, errors.Is(err, domain.ErrProfileNotFound), p.SignupAttributes)
	session.EffectiveRole = role

	switch {
	case err != nil:
		session.Err = err
	case roleErr != nil:
		session.Err = roleErr
	}
	if session.Err != nil {
		r.log.Warn().Err(session.Err).Str("principal_id", p.ID).Msg("profile refresh incomplete")
		return session, session.Err
	}
	return session, nil
}

// deriveRole applies domain.DeriveRole only when the store gave a definite
// answer. After a failed lookup the stored role is unknown, so the signup
// role is not reported in its place.
func deriveRole(profile *domain.Profile, absent bool, attrs domain.SignupAttributes) (domain.Role, error) {
	if profile == nil && !absent {
		return domain.RoleUnresolved, nil
	}
	return domain.DeriveRole(profile, attrs)
}

// classify tags a store or service error with its taxonomy sentinel, adding
// domain.ErrTimeout when the call ran past its deadline.
func classify(kind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrTimeout) {
		return fmt.Errorf("%w: %w: %w", kind, domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}
