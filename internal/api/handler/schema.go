package handler

import (
	"time"

	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type signUpRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	Password    string `json:"password"     validate:"required,min=6"`
	Role        string `json:"role"         validate:"omitempty,oneof=landlord tenant"`
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
}

type signInRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// --- Profiles ---

type createProfileRequest struct {
	Role        string `json:"role"         validate:"required,oneof=landlord tenant"`
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
	Phone       string `json:"phone"        validate:"omitempty,max=32"`
	Bio         string `json:"bio"          validate:"omitempty,max=2000"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=landlord tenant"`
}

type sessionResponse struct {
	Principal         *domain.Principal `json:"principal"`
	Profile           *domain.Profile   `json:"profile"`
	EffectiveRole     string            `json:"effective_role"`
	NeedsProfileSetup bool              `json:"needs_profile_setup"`
	Error             string            `json:"error,omitempty"`
}

func toSessionResponse(s domain.EffectiveSession) sessionResponse {
	resp := sessionResponse{
		Principal:         s.Principal,
		Profile:           s.Profile,
		EffectiveRole:     s.EffectiveRole.String(),
		NeedsProfileSetup: s.NeedsProfileSetup(),
	}
	if s.Err != nil {
		resp.Error = s.Err.Error()
	}
	return resp
}

// --- Properties ---

type propertyRequest struct {
	Title       string   `json:"title"       validate:"required,max=200"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	Price       float64  `json:"price"       validate:"required,gt=0"`
	Bedrooms    int      `json:"bedrooms"    validate:"gte=0"`
	Bathrooms   int      `json:"bathrooms"   validate:"gte=0"`
	Size        float64  `json:"size"        validate:"gte=0"`
	Address     string   `json:"address"     validate:"required"`
	City        string   `json:"city"        validate:"required"`
	State       string   `json:"state"       validate:"required"`
	Zip         string   `json:"zip"`
	Latitude    *float64 `json:"latitude"    validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude"   validate:"omitempty,gte=-180,lte=180"`
	IsActive    *bool    `json:"is_active"`
}

func (r propertyRequest) toInput() ports.PropertyInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return ports.PropertyInput{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Bedrooms:    r.Bedrooms,
		Bathrooms:   r.Bathrooms,
		Size:        r.Size,
		Address:     r.Address,
		City:        r.City,
		State:       r.State,
		Zip:         r.Zip,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		IsActive:    active,
	}
}

type listPropertiesQuery struct {
	City     string  `query:"city"`
	MinPrice float64 `query:"min_price" validate:"gte=0"`
	MaxPrice float64 `query:"max_price" validate:"gte=0"`
	Bedrooms int     `query:"bedrooms"  validate:"gte=0"`
}

// imageRequest is the body of PUT /properties/{id}/images/{position}.
type imageRequest struct {
	URL string `json:"url" validate:"required,url,max=2048" example:"https://cdn.example.com/p/1/0.jpg"`
}

type propertyListResponse struct {
	Items []*domain.Property `json:"items"`
	Count int                `json:"count"`
}

// --- Favorites ---

type favoriteResponse struct {
	ID         string           `json:"id"`
	PropertyID string           `json:"property_id"`
	CreatedAt  time.Time        `json:"created_at"`
	Property   *domain.Property `json:"property,omitempty"`
}

type favoriteListResponse struct {
	Items []favoriteResponse `json:"items"`
	Count int                `json:"count"`
}

type favoriteStatusResponse struct {
	PropertyID string `json:"property_id"`
	Favorite   bool   `json:"favorite"`
}
