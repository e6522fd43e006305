package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/propspace/marketplace/internal/core/domain"
)

// Context keys set by the middleware in this package.
const (
	KeyPrincipal   = "principal"
	KeyAccessToken = "access_token"
	KeySession     = "session"
	KeyRole        = "role"
)

// TokenVerifier turns a bearer token into the principal it was issued to.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (*domain.Principal, error)
}

// Auth validates the bearer token and injects the principal into context.
func Auth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			principal, err := verifier.Verify(c.Request().Context(), parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(KeyPrincipal, principal)
			c.Set(KeyAccessToken, parts[1])

			return next(c)
		}
	}
}

// PrincipalFrom returns the principal injected by Auth, or nil.
func PrincipalFrom(c echo.Context) *domain.Principal {
	p, _ := c.Get(KeyPrincipal).(*domain.Principal)
	return p
}

// AccessTokenFrom returns the raw bearer token injected by Auth.
func AccessTokenFrom(c echo.Context) string {
	t, _ := c.Get(KeyAccessToken).(string)
	return t
}

// SessionFrom returns the session resolved by Identity. ok is false when
// Identity did not run for this route.
func SessionFrom(c echo.Context) (domain.EffectiveSession, bool) {
	s, ok := c.Get(KeySession).(domain.EffectiveSession)
	return s, ok
}
