package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/propspace/marketplace/internal/api/middleware"
	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignUp creates a new account and signs it in.
//
// @Summary      Sign up
// @Description  role and display_name are stored as signup attributes and returned unchanged with every later session.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Account details"
// @Success      201   {object}  domain.AuthSession
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	session, err := h.authService.SignUp(c.Request().Context(), req.Email, req.Password, domain.SignupAttributes{
		Role:        req.Role,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, session)
}

// SignIn authenticates with email and password.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  domain.AuthSession
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	session, err := h.authService.SignInWithPassword(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, session)
}

// Refresh exchanges a refresh token for a new session. Refresh tokens are
// single use.
//
// @Summary      Refresh a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  domain.AuthSession
// @Failure      401   {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	session, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, session)
}

// SignOut revokes the session behind the bearer token.
//
// @Summary      Sign out
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401   {object}  errorResponse
// @Router       /auth/signout [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	token := middleware.AccessTokenFrom(c)
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	if err := h.authService.SignOut(c.Request().Context(), token); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// User returns the principal behind the bearer token, read fresh from the
// credential store.
//
// @Summary      Current principal
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  domain.Principal
// @Failure      401   {object}  errorResponse
// @Router       /auth/user [get]
func (h *AuthHandler) User(c echo.Context) error {
	token := middleware.AccessTokenFrom(c)
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	principal, err := h.authService.User(c.Request().Context(), token)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, principal)
}
