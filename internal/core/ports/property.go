package ports

import (
	"context"

	"github.com/propspace/marketplace/internal/core/domain"
)

// PropertyRepository persists listings.
type PropertyRepository interface {
	Create(ctx context.Context, p *domain.Property) error
	// FindByID returns domain.ErrPropertyNotFound when nothing matches.
	FindByID(ctx context.Context, id string) (*domain.Property, error)
	List(ctx context.Context, filter domain.PropertyFilter) ([]*domain.Property, error)
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Property, error)
	Update(ctx context.Context, p *domain.Property) error
	Delete(ctx context.Context, id string) error
}

// ImageRepository persists listing galleries.
type ImageRepository interface {
	// Upsert writes the image at (PropertyID, Position), keeping the id and
	// created_at of a row already there, and returns the stored row.
	Upsert(ctx context.Context, img *domain.Image) (*domain.Image, error)
	// ListByProperties returns the images of every listed property, ordered
	// by property then position.
	ListByProperties(ctx context.Context, propertyIDs []string) ([]*domain.Image, error)
	// Delete returns domain.ErrImageNotFound when the slot is empty.
	Delete(ctx context.Context, propertyID string, position int) error
	DeleteByProperty(ctx context.Context, propertyID string) error
}

// FavoriteRepository persists saved properties.
type FavoriteRepository interface {
	// Add is idempotent per (user, property) and returns the stored favorite.
	Add(ctx context.Context, f *domain.Favorite) (*domain.Favorite, error)
	Remove(ctx context.Context, userID, propertyID string) error
	ListByUser(ctx context.Context, userID string) ([]*domain.Favorite, error)
	Exists(ctx context.Context, userID, propertyID string) (bool, error)
	DeleteByProperty(ctx context.Context, propertyID string) error
}

// PropertyInput carries the editable listing fields.
type PropertyInput struct {
	Title       string
	Description string
	Price       float64
	Bedrooms    int
	Bathrooms   int
	Size        float64
	Address     string
	City        string
	State       string
	Zip         string
	Latitude    *float64
	Longitude   *float64
	IsActive    bool
}

// PropertyService defines listing use cases.
type PropertyService interface {
	Create(ctx context.Context, ownerID string, in PropertyInput) (*domain.Property, error)
	Get(ctx context.Context, id string) (*domain.Property, error)
	List(ctx context.Context, filter domain.PropertyFilter) ([]*domain.Property, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Property, error)
	Update(ctx context.Context, ownerID, id string, in PropertyInput) (*domain.Property, error)
	Delete(ctx context.Context, ownerID, id string) error
	// PutImage sets the image at position. Only the owner may write.
	PutImage(ctx context.Context, ownerID, propertyID string, position int, url string) (*domain.Image, error)
	RemoveImage(ctx context.Context, ownerID, propertyID string, position int) error
}

// FavoriteView pairs a favorite with its property.
type FavoriteView struct {
	Favorite domain.Favorite
	Property *domain.Property
}

// FavoriteService defines the saved-properties use cases.
type FavoriteService interface {
	Add(ctx context.Context, userID, propertyID string) (*domain.Favorite, error)
	Remove(ctx context.Context, userID, propertyID string) error
	List(ctx context.Context, userID string) ([]FavoriteView, error)
	IsFavorite(ctx context.Context, userID, propertyID string) (bool, error)
}
