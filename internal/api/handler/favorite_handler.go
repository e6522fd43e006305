package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/propspace/marketplace/internal/core/ports"
)

// FavoriteHandler handles the caller's saved properties.
type FavoriteHandler struct {
	service ports.FavoriteService
}

func NewFavoriteHandler(service ports.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

// List handles GET /favorites.
//
// @Summary      List saved properties
// @Tags         favorites
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  favoriteListResponse
// @Failure      401  {object}  errorResponse
// @Router       /favorites [get]
func (h *FavoriteHandler) List(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	views, err := h.service.List(c.Request().Context(), principal.ID)
	if err != nil {
		return err
	}

	items := make([]favoriteResponse, 0, len(views))
	for _, v := range views {
		items = append(items, favoriteResponse{
			ID:         v.Favorite.ID,
			PropertyID: v.Favorite.PropertyID,
			CreatedAt:  v.Favorite.CreatedAt,
			Property:   v.Property,
		})
	}

	return c.JSON(http.StatusOK, favoriteListResponse{Items: items, Count: len(items)})
}

// Check handles GET /favorites/:propertyID.
//
// @Summary      Is a property saved
// @Tags         favorites
// @Produce      json
// @Security     BearerAuth
// @Param        propertyID  path      string  true  "Property id"
// @Success      200         {object}  favoriteStatusResponse
// @Failure      401         {object}  errorResponse
// @Router       /favorites/{propertyID} [get]
func (h *FavoriteHandler) Check(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	propertyID := c.Param("propertyID")
	ok, err := h.service.IsFavorite(c.Request().Context(), principal.ID, propertyID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, favoriteStatusResponse{PropertyID: propertyID, Favorite: ok})
}

// Add handles POST /favorites/:propertyID. Saving twice is a no-op.
//
// @Summary      Save a property
// @Tags         favorites
// @Produce      json
// @Security     BearerAuth
// @Param        propertyID  path      string  true  "Property id"
// @Success      201         {object}  favoriteResponse
// @Failure      401         {object}  errorResponse
// @Failure      404         {object}  errorResponse
// @Router       /favorites/{propertyID} [post]
func (h *FavoriteHandler) Add(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	fav, err := h.service.Add(c.Request().Context(), principal.ID, c.Param("propertyID"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, favoriteResponse{
		ID:         fav.ID,
		PropertyID: fav.PropertyID,
		CreatedAt:  fav.CreatedAt,
	})
}

// Remove handles DELETE /favorites/:propertyID.
//
// @Summary      Unsave a property
// @Tags         favorites
// @Security     BearerAuth
// @Param        propertyID  path  string  true  "Property id"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /favorites/{propertyID} [delete]
func (h *FavoriteHandler) Remove(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.service.Remove(c.Request().Context(), principal.ID, c.Param("propertyID")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
