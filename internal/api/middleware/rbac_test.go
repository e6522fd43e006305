package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/propspace/marketplace/internal/core/domain"
)

func TestRBAC_Allows(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(KeyRole, "landlord")

	called := false
	mw := RBAC(domain.RoleLandlord)
	handler := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRBAC_Forbids(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(KeyRole, "tenant")

	mw := RBAC(domain.RoleLandlord)
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	_ = handler(c)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRBAC_DegradedSessionAsksForSetup(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	// Signup attributes say landlord but no profile exists: no role key.
	c.Set(KeySession, domain.EffectiveSession{
		Principal:     &domain.Principal{ID: "u1"},
		EffectiveRole: domain.RoleLandlord,
	})

	handler := RBAC(domain.RoleLandlord)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	_ = handler(c)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "profile setup required") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRequireProfile(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPut, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(KeySession, domain.EffectiveSession{Principal: &domain.Principal{ID: "u1"}})

	_ = RequireProfile()(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})(c)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set(KeySession, domain.EffectiveSession{
		Principal: &domain.Principal{ID: "u1"},
		Profile:   &domain.Profile{ID: "u1", Role: domain.RoleTenant},
	})
	if err := RequireProfile()(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
