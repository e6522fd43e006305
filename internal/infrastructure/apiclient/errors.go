package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/propspace/marketplace/internal/core/domain"
)

// StatusError is a non-2xx response from the API. It unwraps to the domain
// error the status maps to, so callers can match with errors.Is.
type StatusError struct {
	Status  int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.kind
}

// classifyStatus assigns the domain error for a response status. notFound
// is the error a 404 stands for on the called route.
func classifyStatus(err error, notFound error) error {
	var se *StatusError
	if !errors.As(err, &se) || se.kind != nil {
		return err
	}

	switch se.Status {
	case http.StatusUnauthorized:
		se.kind = domain.ErrInvalidToken
	case http.StatusForbidden:
		se.kind = domain.ErrForbidden
	case http.StatusNotFound:
		se.kind = notFound
	case http.StatusConflict:
		se.kind = domain.ErrUserExists
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if strings.Contains(se.Message, "role") {
			se.kind = domain.ErrInvalidRole
		} else {
			se.kind = domain.ErrInvalidInput
		}
	case http.StatusGatewayTimeout:
		se.kind = domain.ErrTimeout
	}
	return se
}

// classifyAuth maps failures of the credential endpoints. Everything a
// provider rejects matches domain.ErrAuth.
func classifyAuth(err error) error {
	var se *StatusError
	if !errors.As(err, &se) || se.kind != nil {
		return err
	}

	msg := strings.ToLower(se.Message)
	switch se.Status {
	case http.StatusUnauthorized:
		se.kind = domain.ErrInvalidCredentials
	case http.StatusConflict:
		se.kind = domain.ErrUserExists
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		switch {
		case strings.Contains(msg, "password"):
			se.kind = domain.ErrWeakPassword
		case strings.Contains(msg, "email"):
			se.kind = domain.ErrInvalidEmail
		default:
			se.kind = domain.ErrAuth
		}
	case http.StatusTooManyRequests:
		se.kind = domain.ErrAuth
	}
	return se
}
