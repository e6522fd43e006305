package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/propspace/marketplace/internal/api/middleware"
	"github.com/propspace/marketplace/internal/core/domain"
)

// ctxPrincipal returns the principal injected by the Auth middleware and
// fails fast when the route was mounted without it.
func ctxPrincipal(c echo.Context) (*domain.Principal, error) {
	p := middleware.PrincipalFrom(c)
	if p == nil || p.ID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}

// ctxSession returns the session resolved by the Identity middleware.
func ctxSession(c echo.Context) (domain.EffectiveSession, error) {
	s, ok := middleware.SessionFrom(c)
	if !ok || s.Principal == nil {
		return domain.EffectiveSession{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return s, nil
}
