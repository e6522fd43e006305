package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HeaderServiceKey carries the privileged key for administrative routes.
const HeaderServiceKey = "X-Service-Key"

// ServiceKey admits only requests presenting the configured service key.
func ServiceKey(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get(HeaderServiceKey)
			if key == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid service key")
			}
			return next(c)
		}
	}
}
