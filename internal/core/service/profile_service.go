package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/propspace/marketplace/internal/api/metrics"
	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

const (
	maxDisplayNameLength = 100
	maxPhoneLength       = 32
	maxBioLength         = 2000
)

// ProfileCreationService is the privileged create-or-return endpoint behind
// lazy profile creation. Calling it twice for the same id yields one row.
type ProfileCreationService struct {
	repo   ports.ProfileRepository
	cache  ports.ProfileCache
	events ports.ProfileEventSink
	clean  ports.TextSanitizer
	log    zerolog.Logger
}

// NewProfileCreationService builds the creation service. cache and events
// may be nil.
func NewProfileCreationService(repo ports.ProfileRepository, cache ports.ProfileCache, events ports.ProfileEventSink, clean ports.TextSanitizer, log zerolog.Logger) *ProfileCreationService {
	return &ProfileCreationService{repo: repo, cache: cache, events: events, clean: clean, log: log}
}

// CreateProfile implements ports.ProfileCreator.
func (s *ProfileCreationService) CreateProfile(ctx context.Context, in ports.CreateProfileInput) (*domain.Profile, error) {
	p, _, err := s.Provision(ctx, in)
	return p, err
}

// Provision validates in and inserts the profile unless one already exists
// for in.ID, in which case the stored row is returned untouched.
func (s *ProfileCreationService) Provision(ctx context.Context, in ports.CreateProfileInput) (*domain.Profile, bool, error) {
	if in.ID == "" || strings.TrimSpace(in.Email) == "" {
		return nil, false, fmt.Errorf("create profile: %w: id and email are required", domain.ErrInvalidInput)
	}
	if !in.Role.Valid() {
		return nil, false, fmt.Errorf("create profile: %w: %q", domain.ErrInvalidRole, string(in.Role))
	}

	displayName := strings.TrimSpace(s.clean.Sanitize(in.DisplayName))
	if displayName == "" {
		displayName = domain.DefaultDisplayName(in.Email)
	}
	if utf8.RuneCountInString(displayName) > maxDisplayNameLength {
		return nil, false, fmt.Errorf("create profile: %w: display name too long", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	stored, inserted, err := s.repo.CreateIfAbsent(ctx, &domain.Profile{
		ID:          in.ID,
		Email:       strings.TrimSpace(in.Email),
		Role:        in.Role,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, false, fmt.Errorf("create profile: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, stored); err != nil {
			s.log.Warn().Err(err).Str("profile_id", stored.ID).Msg("failed to cache profile")
		}
	}

	if !inserted {
		s.log.Debug().Str("profile_id", stored.ID).Msg("profile already existed")
		return stored, false, nil
	}

	metrics.ProfilesCreatedTotal.WithLabelValues(string(stored.Role)).Inc()
	s.emit(domain.ProfileCreated, stored)
	s.log.Info().Str("profile_id", stored.ID).Str("role", string(stored.Role)).Msg("profile created")
	return stored, true, nil
}

func (s *ProfileCreationService) emit(t domain.ProfileEventType, p *domain.Profile) {
	if s.events == nil {
		return
	}
	s.events.Enqueue(domain.ProfileEvent{Type: t, ProfileID: p.ID, Role: p.Role, OccurredAt: time.Now().UTC()})
}

// ProfileService implements profile reads, edits and role administration.
type ProfileService struct {
	reader ports.ProfileReader
	repo   ports.ProfileRepository
	cache  ports.ProfileCache
	events ports.ProfileEventSink
	clean  ports.TextSanitizer
	log    zerolog.Logger
}

// NewProfileService wires the service. reader is usually the cached reader
// in front of repo; cache and events may be nil.
func NewProfileService(reader ports.ProfileReader, repo ports.ProfileRepository, cache ports.ProfileCache, events ports.ProfileEventSink, clean ports.TextSanitizer, log zerolog.Logger) *ProfileService {
	return &ProfileService{reader: reader, repo: repo, cache: cache, events: events, clean: clean, log: log}
}

func (s *ProfileService) Get(ctx context.Context, id string) (*domain.Profile, error) {
	return s.reader.FindByID(ctx, id)
}

// UpdateDetails replaces all editable fields at once.
func (s *ProfileService) UpdateDetails(ctx context.Context, id string, details domain.ProfileDetails) (*domain.Profile, error) {
	clean := domain.ProfileDetails{
		DisplayName: strings.TrimSpace(s.clean.Sanitize(details.DisplayName)),
		Phone:       strings.TrimSpace(s.clean.Sanitize(details.Phone)),
		Bio:         strings.TrimSpace(s.clean.Sanitize(details.Bio)),
	}
	switch {
	case utf8.RuneCountInString(clean.DisplayName) > maxDisplayNameLength:
		return nil, fmt.Errorf("update profile: %w: display name too long", domain.ErrInvalidInput)
	case utf8.RuneCountInString(clean.Phone) > maxPhoneLength:
		return nil, fmt.Errorf("update profile: %w: phone too long", domain.ErrInvalidInput)
	case utf8.RuneCountInString(clean.Bio) > maxBioLength:
		return nil, fmt.Errorf("update profile: %w: bio too long", domain.ErrInvalidInput)
	}

	p, err := s.repo.UpdateDetails(ctx, id, clean, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.invalidate(ctx, id)
	s.emit(domain.ProfileUpdated, p)
	return p, nil
}

// ChangeRole is the administrative role change. The stored role wins over
// the signup role from the next resolution on.
func (s *ProfileService) ChangeRole(ctx context.Context, id string, role domain.Role) (*domain.Profile, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("change role: %w: %q", domain.ErrInvalidRole, string(role))
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("change role: %w", err)
	}
	if current.Role == role {
		return current, nil
	}

	p, err := s.repo.UpdateRole(ctx, id, role, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("change role: %w", err)
	}
	s.invalidate(ctx, id)
	s.emit(domain.ProfileRoleChanged, p)
	s.log.Info().Str("profile_id", id).Str("from", string(current.Role)).Str("to", string(role)).Msg("profile role changed")
	return p, nil
}

func (s *ProfileService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("profile_id", id).Msg("failed to invalidate cached profile")
	}
}

func (s *ProfileService) emit(t domain.ProfileEventType, p *domain.Profile) {
	if s.events == nil {
		return
	}
	s.events.Enqueue(domain.ProfileEvent{Type: t, ProfileID: p.ID, Role: p.Role, OccurredAt: time.Now().UTC()})
}

// CachedProfileReader is a read-through cache in front of a profile store.
// Cache failures fall back to the store; misses are never cached.
type CachedProfileReader struct {
	store ports.ProfileReader
	cache ports.ProfileCache
	log   zerolog.Logger
}

func NewCachedProfileReader(store ports.ProfileReader, cache ports.ProfileCache, log zerolog.Logger) *CachedProfileReader {
	return &CachedProfileReader{store: store, cache: cache, log: log}
}

func (r *CachedProfileReader) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	cached, err := r.cache.Get(ctx, id)
	switch {
	case err != nil:
		metrics.ProfileCacheTotal.WithLabelValues("error").Inc()
		r.log.Warn().Err(err).Str("profile_id", id).Msg("profile cache read failed")
	case cached != nil:
		metrics.ProfileCacheTotal.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.ProfileCacheTotal.WithLabelValues("miss").Inc()
	}

	p, err := r.store.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			return nil, fmt.Errorf("find profile: %w", err)
		}
		return nil, err
	}
	if err := r.cache.Set(ctx, p); err != nil {
		r.log.Warn().Err(err).Str("profile_id", id).Msg("profile cache write failed")
	}
	return p, nil
}
