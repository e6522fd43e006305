package domain

import "time"

// SignupAttributes are set once when the account is created and returned
// unmodified with every later session event for that principal.
type SignupAttributes struct {
	Role        string `json:"role,omitempty" bson:"role,omitempty"`
	DisplayName string `json:"display_name,omitempty" bson:"display_name,omitempty"`
}

// Principal is the authenticated identity asserted by the auth provider.
// It is read-only to the rest of the system.
type Principal struct {
	ID               string           `json:"id"`
	Email            string           `json:"email"`
	SignupAttributes SignupAttributes `json:"signup_attributes"`
}

// Credential is the auth provider's record behind a principal.
type Credential struct {
	ID           string           `json:"id"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"-"`
	Attributes   SignupAttributes `json:"signup_attributes"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Principal projects the credential to the identity handed to clients.
func (c *Credential) Principal() Principal {
	return Principal{ID: c.ID, Email: c.Email, SignupAttributes: c.Attributes}
}

// AuthSession is the token bundle issued by the auth provider.
type AuthSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Principal    Principal `json:"user"`
}

// Expired reports whether the access token is past its expiry, allowing for
// the given clock margin.
func (s *AuthSession) Expired(now time.Time, margin time.Duration) bool {
	return !now.Add(margin).Before(s.ExpiresAt)
}

// AuthEventType enumerates the auth-state transitions pushed by a provider.
type AuthEventType string

const (
	AuthEventSignedIn       AuthEventType = "SIGNED_IN"
	AuthEventSignedOut      AuthEventType = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	AuthEventUserUpdated    AuthEventType = "USER_UPDATED"
)

// AuthEvent is one provider-pushed transition. Principal is nil for
// AuthEventSignedOut.
type AuthEvent struct {
	Type      AuthEventType
	Principal *Principal
}
