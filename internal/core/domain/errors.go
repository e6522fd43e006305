package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced by identity resolution and the session lifecycle.
var (
	// ErrAuth is returned when the auth provider rejects credentials, a
	// signup or a token. It is propagated to the initiating caller verbatim.
	ErrAuth = errors.New("auth error")
	// ErrProfileLookup means the profile store failed for a reason other
	// than "not found".
	ErrProfileLookup = errors.New("profile lookup failed")
	// ErrProfileCreation means the profile creation service call failed.
	ErrProfileCreation = errors.New("profile creation failed")
	// ErrRoleUndetermined means neither the profile nor the signup
	// attributes carry a usable role.
	ErrRoleUndetermined = errors.New("role undetermined")
	// ErrTimeout means a provider or store call did not complete within the
	// resolution deadline.
	ErrTimeout = errors.New("operation timed out")
)

// Auth provider rejections. Each one also matches ErrAuth.
var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuth)
	ErrUserExists         = fmt.Errorf("%w: user already exists", ErrAuth)
	ErrWeakPassword       = fmt.Errorf("%w: password too weak", ErrAuth)
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email", ErrAuth)
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", ErrAuth)
)

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrInvalidRole      = errors.New("invalid role")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoPrincipal      = errors.New("no authenticated principal")
	ErrUserNotFound     = errors.New("user not found")
	ErrPropertyNotFound = errors.New("property not found")
	ErrImageNotFound    = errors.New("image not found")
	ErrForbidden        = errors.New("access forbidden")
)
