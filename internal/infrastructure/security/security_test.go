package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/propspace/marketplace/internal/core/domain"
)

func TestJWTIssuer_RoundTrip(t *testing.T) {
	iss := NewJWTIssuer("secret")
	p := domain.Principal{
		ID:               "u1",
		Email:            "a@x.com",
		SignupAttributes: domain.SignupAttributes{Role: "landlord", DisplayName: "Alice"},
	}

	token, exp, err := iss.Issue(p, "sess-1", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected future expiry")
	}

	claims, err := iss.Parse(token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if claims.Principal != p {
		t.Fatalf("principal changed in transit: %+v", claims.Principal)
	}
	if claims.SessionID != "sess-1" {
		t.Fatalf("unexpected session id %q", claims.SessionID)
	}
}

func TestJWTIssuer_Rejects(t *testing.T) {
	iss := NewJWTIssuer("secret")
	p := domain.Principal{ID: "u1"}

	expired, _, _ := iss.Issue(p, "s", -time.Minute)
	forged, _, _ := NewJWTIssuer("other").Issue(p, "s", time.Hour)
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, token := range map[string]string{
		"expired": expired,
		"forged":  forged,
		"none":    noneAlg,
		"garbage": "not.a.token",
	} {
		if _, err := iss.Parse(token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestSanitizer(t *testing.T) {
	s := NewSanitizer()
	tests := map[string]string{
		"":                                  "",
		"plain text":                        "plain text",
		"<b>bold</b> move":                  "bold move",
		`<script>alert("x")</script>Hello`:  "Hello",
		"Tom & Jerry":                       "Tom & Jerry",
		`<a href="javascript:x()">link</a>`: "link",
	}
	for in, want := range tests {
		if got := s.Sanitize(in); got != want {
			t.Fatalf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
	if strings.Contains(s.Sanitize("<img src=x onerror=alert(1)>"), "<") {
		t.Fatalf("markup survived sanitization")
	}
}
