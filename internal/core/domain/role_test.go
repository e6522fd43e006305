package domain

import (
	"errors"
	"testing"
)

func TestDeriveRole_Precedence(t *testing.T) {
	landlordProfile := &Profile{ID: "u1", Role: RoleLandlord}
	tenantProfile := &Profile{ID: "u1", Role: RoleTenant}

	tests := []struct {
		name    string
		profile *Profile
		attrs   SignupAttributes
		want    Role
		wantErr error
	}{
		{"profile wins over signup", landlordProfile, SignupAttributes{Role: "tenant"}, RoleLandlord, nil},
		{"profile tenant wins over signup landlord", tenantProfile, SignupAttributes{Role: "landlord"}, RoleTenant, nil},
		{"signup used without profile", nil, SignupAttributes{Role: "landlord"}, RoleLandlord, nil},
		{"signup role is normalised", nil, SignupAttributes{Role: " Tenant "}, RoleTenant, nil},
		{"invalid profile role falls through", &Profile{Role: "owner"}, SignupAttributes{Role: "tenant"}, RoleTenant, nil},
		{"nothing known", nil, SignupAttributes{}, RoleUnresolved, ErrRoleUndetermined},
		{"unknown signup role", nil, SignupAttributes{Role: "admin"}, RoleUnresolved, ErrRoleUndetermined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveRole(tt.profile, tt.attrs)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected err %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Fatalf("expected role %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDeriveRole_NeverDefaultsToTenant(t *testing.T) {
	got, err := DeriveRole(nil, SignupAttributes{DisplayName: "Alice"})
	if got == RoleTenant {
		t.Fatalf("role must not default to tenant")
	}
	if !errors.Is(err, ErrRoleUndetermined) {
		t.Fatalf("expected ErrRoleUndetermined, got %v", err)
	}
}

func TestParseRole_Invalid(t *testing.T) {
	if _, err := ParseRole("guest"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestAuthErrorsMatchTaxonomy(t *testing.T) {
	for _, err := range []error{ErrInvalidCredentials, ErrUserExists, ErrWeakPassword, ErrInvalidEmail, ErrInvalidToken} {
		if !errors.Is(err, ErrAuth) {
			t.Fatalf("%v should match ErrAuth", err)
		}
	}
}

func TestEffectiveSession_HasRoleRequiresProfile(t *testing.T) {
	s := EffectiveSession{
		Principal:     &Principal{ID: "u1"},
		EffectiveRole: RoleLandlord,
	}
	if s.HasRole(RoleLandlord) {
		t.Fatalf("degraded session must not pass role gates")
	}
	if !s.NeedsProfileSetup() {
		t.Fatalf("expected setup affordance for session without profile")
	}

	s.Profile = &Profile{ID: "u1", Role: RoleLandlord}
	if !s.HasRole(RoleLandlord) {
		t.Fatalf("expected landlord gate to pass")
	}
}

func TestEffectiveSession_CloneIsIndependent(t *testing.T) {
	s := EffectiveSession{
		Principal: &Principal{ID: "u1", Email: "a@x.com"},
		Profile:   &Profile{ID: "u1", Bio: "hi"},
	}
	c := s.Clone()
	c.Profile.Bio = "changed"
	c.Principal.Email = "b@x.com"

	if s.Profile.Bio != "hi" || s.Principal.Email != "a@x.com" {
		t.Fatalf("clone shares state with original")
	}
}

func TestDefaultDisplayName(t *testing.T) {
	if got := DefaultDisplayName("alice@example.com"); got != "alice" {
		t.Fatalf("expected alice, got %q", got)
	}
}
