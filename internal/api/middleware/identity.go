package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/propspace/marketplace/internal/core/ports"
)

// Identity resolves the authenticated principal into an EffectiveSession on
// every request. Must run after Auth.
//
// Resolution failures do not fail the request: the degraded session is
// stored as is and role gates downstream reject it. The role key is only
// set once a profile exists.
func Identity(resolver ports.IdentityResolver, timeout time.Duration, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := PrincipalFrom(c)
			if principal == nil {
				return next(c)
			}

			ctx := c.Request().Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			session, err := resolver.Resolve(ctx, principal)
			if err != nil {
				log.Warn().
					Err(err).
					Str("user_id", principal.ID).
					Str("path", c.Path()).
					Msg("identity resolution degraded")
			}

			c.Set(KeySession, session)
			if session.Profile != nil {
				c.Set(KeyRole, string(session.EffectiveRole))
			}

			return next(c)
		}
	}
}
