package domain

import (
	"fmt"
	"strings"
)

// Role is the marketplace role a user acts under.
type Role string

const (
	RoleLandlord Role = "landlord"
	RoleTenant   Role = "tenant"
	// RoleUnresolved is reported when no source yields a valid role. It is
	// never persisted.
	RoleUnresolved Role = ""
)

// Valid reports whether r is one of the persisted roles.
func (r Role) Valid() bool {
	return r == RoleLandlord || r == RoleTenant
}

func (r Role) String() string {
	if r == RoleUnresolved {
		return "unresolved"
	}
	return string(r)
}

// ParseRole normalises s and returns ErrInvalidRole for anything other than
// landlord or tenant.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return RoleUnresolved, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// DeriveRole is the single precedence rule for the effective role:
//
//  1. the stored profile role, when a profile exists and its role is valid
//  2. the role chosen at signup
//  3. RoleUnresolved together with ErrRoleUndetermined
//
// The profile wins so that an administrative role change overrides the
// original signup intent. There is no fallback to tenant.
func DeriveRole(profile *Profile, attrs SignupAttributes) (Role, error) {
	if profile != nil && profile.Role.Valid() {
		return profile.Role, nil
	}
	if r, err := ParseRole(attrs.Role); err == nil {
		return r, nil
	}
	return RoleUnresolved, ErrRoleUndetermined
}
