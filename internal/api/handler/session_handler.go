package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SessionHandler exposes the EffectiveSession the server resolved for the
// caller.
type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Get returns the caller's effective session. A degraded session is a 200
// with needs_profile_setup set and the resolution error attached.
//
// @Summary      Resolve own session
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sessionResponse
// @Failure      401  {object}  errorResponse
// @Router       /session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}
