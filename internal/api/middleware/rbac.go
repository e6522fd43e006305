package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/propspace/marketplace/internal/core/domain"
)

// RBAC enforces role-based access control on the role set by Identity.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[string(r)] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(KeyRole).(string)
			if _, ok := allowed[role]; ok {
				return next(c)
			}
			if s, ok := SessionFrom(c); ok && s.NeedsProfileSetup() {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "profile setup required"})
			}
			return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		}
	}
}

// RequireProfile rejects sessions that have no profile yet.
func RequireProfile() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, ok := SessionFrom(c)
			if !ok || s.Profile == nil {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "profile setup required"})
			}
			return next(c)
		}
	}
}
