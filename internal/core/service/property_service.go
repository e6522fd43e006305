package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/propspace/marketplace/internal/api/metrics"
	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

type PropertyService struct {
	repo      ports.PropertyRepository
	images    ports.ImageRepository
	favorites ports.FavoriteRepository
	clean     ports.TextSanitizer
	logger    zerolog.Logger
}

func NewPropertyService(repo ports.PropertyRepository, images ports.ImageRepository, favorites ports.FavoriteRepository, clean ports.TextSanitizer, logger zerolog.Logger) *PropertyService {
	return &PropertyService{repo: repo, images: images, favorites: favorites, clean: clean, logger: logger}
}

// Create stores a new listing owned by ownerID.
func (s *PropertyService) Create(ctx context.Context, ownerID string, in ports.PropertyInput) (*domain.Property, error) {
	in = s.sanitize(in)
	if err := validateProperty(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &domain.Property{ID: uuid.NewString(), OwnerID: ownerID, CreatedAt: now}
	applyInput(p, in, now)

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create property: %w", err)
	}
	metrics.PropertiesCreatedTotal.Inc()
	s.logger.Info().Str("property_id", p.ID).Str("owner_id", ownerID).Msg("property created")
	p.Images = []domain.Image{}
	return p, nil
}

// Get returns one listing with its gallery.
func (s *PropertyService) Get(ctx context.Context, id string) (*domain.Property, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.withImages(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns active listings matching filter.
func (s *PropertyService) List(ctx context.Context, filter domain.PropertyFilter) ([]*domain.Property, error) {
	if filter.MinPrice < 0 || filter.MaxPrice < 0 || filter.Bedrooms < 0 {
		return nil, fmt.Errorf("list properties: %w: negative filter", domain.ErrInvalidInput)
	}
	if filter.MaxPrice > 0 && filter.MinPrice > filter.MaxPrice {
		return nil, fmt.Errorf("list properties: %w: min_price above max_price", domain.ErrInvalidInput)
	}
	filter.City = strings.TrimSpace(filter.City)
	filter.ActiveOnly = true
	props, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.withImages(ctx, props...); err != nil {
		return nil, err
	}
	return props, nil
}

// ListByOwner returns every listing of ownerID, active or not.
func (s *PropertyService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Property, error) {
	props, err := s.repo.List(ctx, domain.PropertyFilter{OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	if err := s.withImages(ctx, props...); err != nil {
		return nil, err
	}
	return props, nil
}

// Update replaces the editable fields. Only the owner may update.
func (s *PropertyService) Update(ctx context.Context, ownerID, id string, in ports.PropertyInput) (*domain.Property, error) {
	p, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	in = s.sanitize(in)
	if err := validateProperty(in); err != nil {
		return nil, err
	}
	applyInput(p, in, time.Now().UTC())
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update property: %w", err)
	}
	if err := s.withImages(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a listing with its gallery and every favorite pointing at it.
func (s *PropertyService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if err := s.images.DeleteByProperty(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("property_id", id).Msg("failed to delete images of removed property")
	}
	if err := s.favorites.DeleteByProperty(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("property_id", id).Msg("failed to delete favorites of removed property")
	}
	return nil
}

// PutImage stores url in the gallery slot at position, replacing whatever
// the slot held.
func (s *PropertyService) PutImage(ctx context.Context, ownerID, propertyID string, position int, rawURL string) (*domain.Image, error) {
	if position < 0 || position > domain.MaxImagePosition {
		return nil, fmt.Errorf("%w: position must be between 0 and %d", domain.ErrInvalidInput, domain.MaxImagePosition)
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, fmt.Errorf("%w: image url must be an absolute http(s) url", domain.ErrInvalidInput)
	}
	if _, err := s.owned(ctx, ownerID, propertyID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	img, err := s.images.Upsert(ctx, &domain.Image{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		URL:        u.String(),
		Position:   position,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("put image: %w", err)
	}
	s.logger.Info().Str("property_id", propertyID).Int("position", position).Msg("property image stored")
	return img, nil
}

// RemoveImage clears the gallery slot at position.
func (s *PropertyService) RemoveImage(ctx context.Context, ownerID, propertyID string, position int) error {
	if _, err := s.owned(ctx, ownerID, propertyID); err != nil {
		return err
	}
	return s.images.Delete(ctx, propertyID, position)
}

// withImages attaches each listing's gallery in a single repository call.
func (s *PropertyService) withImages(ctx context.Context, props ...*domain.Property) error {
	if len(props) == 0 {
		return nil
	}
	ids := make([]string, len(props))
	byID := make(map[string]*domain.Property, len(props))
	for i, p := range props {
		ids[i] = p.ID
		byID[p.ID] = p
		p.Images = []domain.Image{}
	}
	imgs, err := s.images.ListByProperties(ctx, ids)
	if err != nil {
		return fmt.Errorf("load images: %w", err)
	}
	for _, img := range imgs {
		if p, ok := byID[img.PropertyID]; ok {
			p.Images = append(p.Images, *img)
		}
	}
	return nil
}

func (s *PropertyService) owned(ctx context.Context, ownerID, id string) (*domain.Property, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	return p, nil
}

func (s *PropertyService) sanitize(in ports.PropertyInput) ports.PropertyInput {
	in.Title = strings.TrimSpace(s.clean.Sanitize(in.Title))
	in.Description = strings.TrimSpace(s.clean.Sanitize(in.Description))
	in.Address = strings.TrimSpace(s.clean.Sanitize(in.Address))
	in.City = strings.TrimSpace(s.clean.Sanitize(in.City))
	in.State = strings.TrimSpace(s.clean.Sanitize(in.State))
	in.Zip = strings.TrimSpace(s.clean.Sanitize(in.Zip))
	return in
}

func validateProperty(in ports.PropertyInput) error {
	switch {
	case in.Title == "", in.Address == "", in.City == "", in.State == "":
		return fmt.Errorf("%w: title, address, city and state are required", domain.ErrInvalidInput)
	case in.Price <= 0:
		return fmt.Errorf("%w: price must be positive", domain.ErrInvalidInput)
	case in.Bedrooms < 0, in.Bathrooms < 0, in.Size < 0:
		return fmt.Errorf("%w: negative bedrooms, bathrooms or size", domain.ErrInvalidInput)
	case in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90):
		return fmt.Errorf("%w: latitude out of range", domain.ErrInvalidInput)
	case in.Longitude != nil && (*in.Longitude < -180 || *in.Longitude > 180):
		return fmt.Errorf("%w: longitude out of range", domain.ErrInvalidInput)
	}
	return nil
}

func applyInput(p *domain.Property, in ports.PropertyInput, now time.Time) {
	p.Title = in.Title
	p.Description = in.Description
	p.Price = in.Price
	p.Bedrooms = in.Bedrooms
	p.Bathrooms = in.Bathrooms
	p.Size = in.Size
	p.Address = in.Address
	p.City = in.City
	p.State = in.State
	p.Zip = in.Zip
	p.Latitude = in.Latitude
	p.Longitude = in.Longitude
	p.IsActive = in.IsActive
	p.UpdatedAt = now
}
