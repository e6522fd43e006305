package domain

import "time"

// Property is a rental listing owned by a landlord.
type Property struct {
	ID          string    `json:"id" bson:"_id"`
	OwnerID     string    `json:"owner_id" bson:"owner_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Price       float64   `json:"price" bson:"price"`
	Bedrooms    int       `json:"bedrooms,omitempty" bson:"bedrooms,omitempty"`
	Bathrooms   int       `json:"bathrooms,omitempty" bson:"bathrooms,omitempty"`
	Size        float64   `json:"size,omitempty" bson:"size,omitempty"`
	Address     string    `json:"address" bson:"address"`
	City        string    `json:"city" bson:"city"`
	State       string    `json:"state" bson:"state"`
	Zip         string    `json:"zip,omitempty" bson:"zip,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty" bson:"longitude,omitempty"`
	IsActive    bool      `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`

	// Images is filled in on reads, ordered by position. It is stored in its
	// own collection.
	Images []Image `json:"images" bson:"-"`
}

// MaxImagePosition is the highest gallery slot a listing may use.
const MaxImagePosition = 19

// Image is one slot of a listing's gallery. A listing holds at most one
// image per position; writing a taken position replaces its URL.
type Image struct {
	ID         string    `json:"id" bson:"_id"`
	PropertyID string    `json:"property_id" bson:"property_id"`
	URL        string    `json:"url" bson:"url"`
	Position   int       `json:"position" bson:"position"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// PropertyFilter narrows a listing query. Zero values mean "no filter".
type PropertyFilter struct {
	City       string // case-insensitive substring
	MinPrice   float64
	MaxPrice   float64
	Bedrooms   int
	OwnerID    string
	ActiveOnly bool
}

// Favorite records that a user saved a property.
type Favorite struct {
	ID         string    `json:"id" bson:"_id"`
	UserID     string    `json:"user_id" bson:"user_id"`
	PropertyID string    `json:"property_id" bson:"property_id"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
