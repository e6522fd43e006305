package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

type FavoriteService struct {
	favorites  ports.FavoriteRepository
	properties ports.PropertyRepository
	logger     zerolog.Logger
}

func NewFavoriteService(favorites ports.FavoriteRepository, properties ports.PropertyRepository, logger zerolog.Logger) *FavoriteService {
	return &FavoriteService{favorites: favorites, properties: properties, logger: logger}
}

// Add saves propertyID for userID. Saving the same property twice returns
// the first favorite.
func (s *FavoriteService) Add(ctx context.Context, userID, propertyID string) (*domain.Favorite, error) {
	if _, err := s.properties.FindByID(ctx, propertyID); err != nil {
		return nil, err
	}
	f, err := s.favorites.Add(ctx, &domain.Favorite{
		ID:         uuid.NewString(),
		UserID:     userID,
		PropertyID: propertyID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("add favorite: %w", err)
	}
	return f, nil
}

func (s *FavoriteService) Remove(ctx context.Context, userID, propertyID string) error {
	if err := s.favorites.Remove(ctx, userID, propertyID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// List returns the user's favorites newest first, each with its property.
// Favorites whose property has disappeared are skipped.
func (s *FavoriteService) List(ctx context.Context, userID string) ([]ports.FavoriteView, error) {
	favs, err := s.favorites.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	if len(favs) == 0 {
		return []ports.FavoriteView{}, nil
	}

	ids := make([]string, 0, len(favs))
	for _, f := range favs {
		ids = append(ids, f.PropertyID)
	}
	props, err := s.properties.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	byID := make(map[string]*domain.Property, len(props))
	for _, p := range props {
		byID[p.ID] = p
	}

	out := make([]ports.FavoriteView, 0, len(favs))
	for _, f := range favs {
		p, ok := byID[f.PropertyID]
		if !ok {
			s.logger.Debug().Str("property_id", f.PropertyID).Msg("favorite points at missing property")
			continue
		}
		out = append(out, ports.FavoriteView{Favorite: *f, Property: p})
	}
	return out, nil
}

func (s *FavoriteService) IsFavorite(ctx context.Context, userID, propertyID string) (bool, error) {
	ok, err := s.favorites.Exists(ctx, userID, propertyID)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return ok, nil
}
