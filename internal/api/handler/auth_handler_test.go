package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/propspace/marketplace/internal/api/middleware"
	"github.com/propspace/marketplace/internal/core/domain"
)

type stubAuthService struct {
	signUpFn  func(ctx context.Context, email, password string, attrs domain.SignupAttributes) (*domain.AuthSession, error)
	signInFn  func(ctx context.Context, email, password string) (*domain.AuthSession, error)
	refreshFn func(ctx context.Context, refreshToken string) (*domain.AuthSession, error)
	signOutFn func(ctx context.Context, accessToken string) error
	userFn    func(ctx context.Context, accessToken string) (*domain.Principal, error)
}

func (s *stubAuthService) SignUp(ctx context.Context, email, password string, attrs domain.SignupAttributes) (*domain.AuthSession, error) {
	return s.signUpFn(ctx, email, password, attrs)
}

func (s *stubAuthService) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	return s.signInFn(ctx, email, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthSession, error) {
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubAuthService) SignOut(ctx context.Context, accessToken string) error {
	return s.signOutFn(ctx, accessToken)
}

func (s *stubAuthService) Verify(ctx context.Context, accessToken string) (*domain.Principal, error) {
	return s.userFn(ctx, accessToken)
}

func (s *stubAuthService) User(ctx context.Context, accessToken string) (*domain.Principal, error) {
	return s.userFn(ctx, accessToken)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func assertHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError %d, got %v", code, err)
	}
	if he.Code != code {
		t.Fatalf("expected %d, got %d (%v)", code, he.Code, he.Message)
	}
}

func TestAuthHandler_SignUp_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		signUpFn: func(ctx context.Context, email, password string, attrs domain.SignupAttributes) (*domain.AuthSession, error) {
			if email != "alice@example.com" || attrs.Role != "landlord" || attrs.DisplayName != "Alice" {
				t.Fatalf("unexpected args: %s %+v", email, attrs)
			}
			return &domain.AuthSession{
				AccessToken:  "access",
				RefreshToken: "refresh",
				ExpiresAt:    time.Now().Add(time.Hour),
				Principal:    domain.Principal{ID: "u1", Email: email, SignupAttributes: attrs},
			}, nil
		},
	}
	handler := NewAuthHandler(stub)

	body := `{"email":"alice@example.com","password":"secret1","role":"landlord","display_name":"Alice"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/signup", body), rec)

	if err := handler.SignUp(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["access_token"] != "access" {
		t.Fatalf("expected access token, got %v", resp["access_token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	attrs, _ := user["signup_attributes"].(map[string]any)
	if attrs["role"] != "landlord" {
		t.Fatalf("signup attributes not echoed: %+v", user)
	}
}

func TestAuthHandler_SignUp_UserExists(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		signUpFn: func(ctx context.Context, email, password string, attrs domain.SignupAttributes) (*domain.AuthSession, error) {
			return nil, domain.ErrUserExists
		},
	}
	handler := NewAuthHandler(stub)

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/signup", `{"email":"bob@example.com","password":"secret1"}`), httptest.NewRecorder())

	if err := handler.SignUp(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_SignUp_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"invalid payload", "not-json", http.StatusBadRequest},
		{"bad email", `{"email":"nope","password":"secret1"}`, http.StatusUnprocessableEntity},
		{"short password", `{"email":"a@example.com","password":"123"}`, http.StatusUnprocessableEntity},
		{"unknown role", `{"email":"a@example.com","password":"secret1","role":"admin"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			stub := &stubAuthService{
				signUpFn: func(ctx context.Context, email, password string, attrs domain.SignupAttributes) (*domain.AuthSession, error) {
					t.Fatalf("should not be called")
					return nil, nil
				},
			}
			c := e.NewContext(jsonRequest(http.MethodPost, "/auth/signup", tt.body), httptest.NewRecorder())
			assertHTTPError(t, NewAuthHandler(stub).SignUp(c), tt.code)
		})
	}
}

func TestAuthHandler_SignIn_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		signInFn: func(ctx context.Context, email, password string) (*domain.AuthSession, error) {
			if email != "alice@example.com" || password != "secret1" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &domain.AuthSession{AccessToken: "token123", Principal: domain.Principal{ID: "u1", Email: email}}, nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/signin", `{"email":"alice@example.com","password":"secret1"}`), rec)

	if err := handler.SignIn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp domain.AuthSession
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.AccessToken != "token123" || resp.Principal.ID != "u1" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_SignIn_InvalidCredentials(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		signInFn: func(ctx context.Context, email, password string) (*domain.AuthSession, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/signin", `{"email":"alice@example.com","password":"bad"}`), httptest.NewRecorder())

	if err := NewAuthHandler(stub).SignIn(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_SignIn_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		signInFn: func(ctx context.Context, email, password string) (*domain.AuthSession, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/signin", "{"), httptest.NewRecorder())

	assertHTTPError(t, NewAuthHandler(stub).SignIn(c), http.StatusBadRequest)
}

func TestAuthHandler_Refresh(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		refreshFn: func(ctx context.Context, refreshToken string) (*domain.AuthSession, error) {
			if refreshToken != "r1" {
				return nil, domain.ErrInvalidToken
			}
			return &domain.AuthSession{AccessToken: "a2", RefreshToken: "r2"}, nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/refresh", `{"refresh_token":"r1"}`), rec)
	if err := handler.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"r2"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	c = e.NewContext(jsonRequest(http.MethodPost, "/auth/refresh", `{"refresh_token":"r1-reused"}`), httptest.NewRecorder())
	if err := handler.Refresh(c); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthHandler_SignOut(t *testing.T) {
	e := newTestEcho()
	var revoked string
	stub := &stubAuthService{
		signOutFn: func(ctx context.Context, accessToken string) error {
			revoked = accessToken
			return nil
		},
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/signout", nil), rec)
	c.Set(middleware.KeyAccessToken, "access-1")

	if err := NewAuthHandler(stub).SignOut(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if revoked != "access-1" {
		t.Fatalf("expected token to be revoked, got %q", revoked)
	}
}

func TestAuthHandler_User_RequiresToken(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		userFn: func(ctx context.Context, accessToken string) (*domain.Principal, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/user", nil), httptest.NewRecorder())

	assertHTTPError(t, NewAuthHandler(stub).User(c), http.StatusUnauthorized)
}
