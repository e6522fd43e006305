package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

// ProfileHandler serves profile reads, lazy creation and edits.
type ProfileHandler struct {
	profiles ports.ProfileService
	creator  ports.ProfileProvisioner
}

func NewProfileHandler(profiles ports.ProfileService, creator ports.ProfileProvisioner) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, creator: creator}
}

// Me returns the caller's profile. A caller without one gets 404 so the
// client can run profile creation.
//
// @Summary      Get own profile
// @Tags         profiles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Profile
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /profiles/me [get]
func (h *ProfileHandler) Me(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	profile, err := h.profiles.Get(c.Request().Context(), principal.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profile)
}

// Create creates the caller's profile, or returns it when it already exists.
// The id and email always come from the bearer token.
//
// @Summary      Create own profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createProfileRequest  true  "Role and display name"
// @Success      200   {object}  domain.Profile  "Profile already existed"
// @Success      201   {object}  domain.Profile
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /profiles [post]
func (h *ProfileHandler) Create(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req createProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	profile, created, err := h.creator.Provision(c.Request().Context(), ports.CreateProfileInput{
		ID:          principal.ID,
		Email:       principal.Email,
		Role:        domain.Role(req.Role),
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return err
	}

	if !created {
		return c.JSON(http.StatusOK, profile)
	}
	return c.JSON(http.StatusCreated, profile)
}

// UpdateMe replaces the caller's editable profile fields.
//
// @Summary      Update own profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Editable fields"
// @Success      200   {object}  domain.Profile
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /profiles/me [put]
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	profile, err := h.profiles.UpdateDetails(c.Request().Context(), session.Principal.ID, domain.ProfileDetails{
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		Bio:         req.Bio,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profile)
}

// ChangeRole sets a user's role. Privileged.
//
// @Summary      Change a user's role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     ServiceKey
// @Param        id    path      string             true  "Profile id"
// @Param        body  body      changeRoleRequest  true  "New role"
// @Success      200   {object}  domain.Profile
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /admin/profiles/{id}/role [put]
func (h *ProfileHandler) ChangeRole(c echo.Context) error {
	var req changeRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	profile, err := h.profiles.ChangeRole(c.Request().Context(), c.Param("id"), domain.Role(req.Role))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profile)
}
