package domain

// SessionState is the lifecycle state of the client-side session manager.
type SessionState string

const (
	SessionUninitialized SessionState = "uninitialized"
	SessionLoading       SessionState = "loading"
	SessionReady         SessionState = "ready"
	SessionSignedOut     SessionState = "signed_out"
)

// EffectiveSession is the resolved read model consumed by the rest of the
// application: who is signed in, their profile if one exists, and the role
// derived from both.
//
// Profile is nil when creation failed, is pending, or was never possible;
// Err then carries the reason.
type EffectiveSession struct {
	Principal     *Principal
	Profile       *Profile
	EffectiveRole Role
	IsLoading     bool
	Err           error
}

// Authenticated reports whether a principal is present.
func (s EffectiveSession) Authenticated() bool {
	return s.Principal != nil
}

// HasRole gates role-specific features. A session without a profile never
// satisfies it, even when the signup attributes name a role.
func (s EffectiveSession) HasRole(r Role) bool {
	return s.Profile != nil && s.EffectiveRole == r
}

// NeedsProfileSetup reports the degraded state in which a signed-in user has
// no profile and should be offered a manual setup.
func (s EffectiveSession) NeedsProfileSetup() bool {
	return s.Principal != nil && s.Profile == nil && !s.IsLoading
}

// Clone returns a copy that shares no pointers with s.
func (s EffectiveSession) Clone() EffectiveSession {
	out := s
	if s.Principal != nil {
		p := *s.Principal
		out.Principal = &p
	}
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	return out
}
