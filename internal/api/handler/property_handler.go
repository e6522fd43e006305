package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

// PropertyHandler handles HTTP requests for listings.
type PropertyHandler struct {
	service ports.PropertyService
}

func NewPropertyHandler(service ports.PropertyService) *PropertyHandler {
	return &PropertyHandler{service: service}
}

// List handles GET /properties.
//
// @Summary      Search active listings
// @Tags         properties
// @Produce      json
// @Param        city       query     string  false  "City (case-insensitive substring)"
// @Param        min_price  query     number  false  "Minimum price"
// @Param        max_price  query     number  false  "Maximum price"
// @Param        bedrooms   query     int     false  "Minimum bedrooms"
// @Success      200        {object}  propertyListResponse
// @Failure      400        {object}  errorResponse
// @Router       /properties [get]
func (h *PropertyHandler) List(c echo.Context) error {
	var q listPropertiesQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	items, err := h.service.List(c.Request().Context(), domain.PropertyFilter{
		City:     q.City,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Bedrooms: q.Bedrooms,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, propertyListResponse{Items: nonNil(items), Count: len(items)})
}

// Get handles GET /properties/:id.
//
// @Summary      Get a listing
// @Tags         properties
// @Produce      json
// @Param        id   path      string  true  "Property id"
// @Success      200  {object}  domain.Property
// @Failure      404  {object}  errorResponse
// @Router       /properties/{id} [get]
func (h *PropertyHandler) Get(c echo.Context) error {
	p, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Mine handles GET /properties/mine.
//
// @Summary      List own listings
// @Tags         properties
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  propertyListResponse
// @Failure      403  {object}  errorResponse
// @Router       /properties/mine [get]
func (h *PropertyHandler) Mine(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	items, err := h.service.ListByOwner(c.Request().Context(), principal.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, propertyListResponse{Items: nonNil(items), Count: len(items)})
}

// Create handles POST /properties.
//
// @Summary      Create a listing
// @Tags         properties
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      propertyRequest  true  "Listing"
// @Success      201   {object}  domain.Property
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /properties [post]
func (h *PropertyHandler) Create(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req propertyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	p, err := h.service.Create(c.Request().Context(), principal.ID, req.toInput())
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderLocation, "/properties/"+p.ID)
	return c.JSON(http.StatusCreated, p)
}

// Update handles PUT /properties/:id.
//
// @Summary      Replace a listing
// @Tags         properties
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Property id"
// @Param        body  body      propertyRequest  true  "Listing"
// @Success      200   {object}  domain.Property
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /properties/{id} [put]
func (h *PropertyHandler) Update(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req propertyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	p, err := h.service.Update(c.Request().Context(), principal.ID, c.Param("id"), req.toInput())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /properties/:id.
//
// @Summary      Delete a listing
// @Tags         properties
// @Security     BearerAuth
// @Param        id   path  string  true  "Property id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /properties/{id} [delete]
func (h *PropertyHandler) Delete(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), principal.ID, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// PutImage handles PUT /properties/:id/images/:position.
//
// @Summary      Set a gallery image
// @Description  Stores the image URL in the given slot, replacing the previous one.
// @Tags         properties
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id        path      string        true  "Property id"
// @Param        position  path      int           true  "Gallery slot (0-19)"
// @Param        body      body      imageRequest  true  "Image"
// @Success      200       {object}  domain.Image
// @Failure      400       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Failure      422       {object}  errorResponse
// @Router       /properties/{id}/images/{position} [put]
func (h *PropertyHandler) PutImage(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	position, err := positionParam(c)
	if err != nil {
		return err
	}

	var req imageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	img, err := h.service.PutImage(c.Request().Context(), principal.ID, c.Param("id"), position, req.URL)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, img)
}

// RemoveImage handles DELETE /properties/:id/images/:position.
//
// @Summary      Clear a gallery slot
// @Tags         properties
// @Security     BearerAuth
// @Param        id        path  string  true  "Property id"
// @Param        position  path  int     true  "Gallery slot"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /properties/{id}/images/{position} [delete]
func (h *PropertyHandler) RemoveImage(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	position, err := positionParam(c)
	if err != nil {
		return err
	}

	if err := h.service.RemoveImage(c.Request().Context(), principal.ID, c.Param("id"), position); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func positionParam(c echo.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("position"))
	if err != nil || n < 0 || n > domain.MaxImagePosition {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid image position")
	}
	return n, nil
}

func nonNil(items []*domain.Property) []*domain.Property {
	if items == nil {
		return []*domain.Property{}
	}
	return items
}
