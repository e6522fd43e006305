package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/propspace/marketplace/internal/api/middleware"
	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

type stubPropertyService struct {
	filter  domain.PropertyFilter
	created ports.PropertyInput
	items   []*domain.Property
	image   *domain.Image
	removed int
	err     error
}

func (s *stubPropertyService) Create(_ context.Context, ownerID string, in ports.PropertyInput) (*domain.Property, error) {
	s.created = in
	return &domain.Property{ID: "p1", OwnerID: ownerID, Title: in.Title, Price: in.Price, IsActive: in.IsActive}, nil
}

func (s *stubPropertyService) Get(_ context.Context, id string) (*domain.Property, error) {
	for _, p := range s.items {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrPropertyNotFound
}

func (s *stubPropertyService) List(_ context.Context, filter domain.PropertyFilter) ([]*domain.Property, error) {
	s.filter = filter
	return s.items, s.err
}

func (s *stubPropertyService) ListByOwner(_ context.Context, ownerID string) ([]*domain.Property, error) {
	var out []*domain.Property
	for _, p := range s.items {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPropertyService) Update(_ context.Context, ownerID, id string, in ports.PropertyInput) (*domain.Property, error) {
	return nil, s.err
}

func (s *stubPropertyService) Delete(_ context.Context, ownerID, id string) error {
	return s.err
}

func (s *stubPropertyService) PutImage(_ context.Context, ownerID, propertyID string, position int, url string) (*domain.Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.image = &domain.Image{ID: "img-1", PropertyID: propertyID, URL: url, Position: position}
	return s.image, nil
}

func (s *stubPropertyService) RemoveImage(_ context.Context, ownerID, propertyID string, position int) error {
	s.removed = position
	return s.err
}

func TestPropertyHandler_PutImage(t *testing.T) {
	e := newTestEcho()
	svc := &stubPropertyService{}
	h := NewPropertyHandler(svc)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/properties/p1/images/2", `{"url":"https://cdn.example.com/p1/2.jpg"}`), rec)
	c.SetParamNames("id", "position")
	c.SetParamValues("p1", "2")
	c.Set(middleware.KeyPrincipal, &domain.Principal{ID: "landlord-1"})

	if err := h.PutImage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.image == nil || svc.image.PropertyID != "p1" || svc.image.Position != 2 {
		t.Fatalf("unexpected image passed to service: %+v", svc.image)
	}
}

func TestPropertyHandler_PutImage_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		position string
		body     string
		code     int
	}{
		{"non numeric position", "first", `{"url":"https://cdn.example.com/a.jpg"}`, http.StatusBadRequest},
		{"position past gallery", "20", `{"url":"https://cdn.example.com/a.jpg"}`, http.StatusBadRequest},
		{"missing url", "0", `{}`, http.StatusUnprocessableEntity},
		{"not a url", "0", `{"url":"cover photo"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			svc := &stubPropertyService{}
			c := e.NewContext(jsonRequest(http.MethodPut, "/properties/p1/images/"+tt.position, tt.body), httptest.NewRecorder())
			c.SetParamNames("id", "position")
			c.SetParamValues("p1", tt.position)
			c.Set(middleware.KeyPrincipal, &domain.Principal{ID: "landlord-1"})

			assertHTTPError(t, NewPropertyHandler(svc).PutImage(c), tt.code)
			if svc.image != nil {
				t.Fatalf("service must not be called")
			}
		})
	}
}

func TestPropertyHandler_RemoveImage(t *testing.T) {
	e := newTestEcho()
	svc := &stubPropertyService{}
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/properties/p1/images/3", nil), rec)
	c.SetParamNames("id", "position")
	c.SetParamValues("p1", "3")
	c.Set(middleware.KeyPrincipal, &domain.Principal{ID: "landlord-1"})

	if err := NewPropertyHandler(svc).RemoveImage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent || svc.removed != 3 {
		t.Fatalf("expected 204 for slot 3, got %d (slot %d)", rec.Code, svc.removed)
	}
}

func TestPropertyHandler_List_BindsFilter(t *testing.T) {
	e := newTestEcho()
	svc := &stubPropertyService{items: []*domain.Property{{ID: "p1", City: "Austin"}}}
	h := NewPropertyHandler(svc)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/properties?city=aus&min_price=500&max_price=2000&bedrooms=2", nil), rec)

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	want := domain.PropertyFilter{City: "aus", MinPrice: 500, MaxPrice: 2000, Bedrooms: 2}
	if svc.filter != want {
		t.Fatalf("expected filter %+v, got %+v", want, svc.filter)
	}

	var resp propertyListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Count != 1 || resp.Items[0].ID != "p1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestPropertyHandler_List_EmptyIsArray(t *testing.T) {
	e := newTestEcho()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/properties", nil), rec)

	if err := NewPropertyHandler(&stubPropertyService{}).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := rec.Body.String(); got != "{\"items\":[],\"count\":0}\n" {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestPropertyHandler_List_BadQuery(t *testing.T) {
	e := newTestEcho()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/properties?min_price=abc", nil), httptest.NewRecorder())
	assertHTTPError(t, NewPropertyHandler(&stubPropertyService{}).List(c), http.StatusBadRequest)

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/properties?bedrooms=-1", nil), httptest.NewRecorder())
	assertHTTPError(t, NewPropertyHandler(&stubPropertyService{}).List(c), http.StatusBadRequest)
}

func TestPropertyHandler_Create_DefaultsActive(t *testing.T) {
	e := newTestEcho()
	svc := &stubPropertyService{}
	h := NewPropertyHandler(svc)

	body := `{"title":"Loft","price":1200,"bedrooms":1,"address":"1 Main St","city":"Austin","state":"TX"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/properties", body), rec)
	c.Set(middleware.KeyPrincipal, &domain.Principal{ID: "landlord-1"})

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec.Header().Get("Location") != "/properties/p1" {
		t.Fatalf("expected location header, got %q", rec.Header().Get("Location"))
	}
	if !svc.created.IsActive {
		t.Fatalf("listing should default to active")
	}
}

func TestPropertyHandler_Create_Validation(t *testing.T) {
	e := newTestEcho()
	c := e.NewContext(jsonRequest(http.MethodPost, "/properties", `{"title":"Loft","price":0}`), httptest.NewRecorder())
	c.Set(middleware.KeyPrincipal, &domain.Principal{ID: "landlord-1"})

	assertHTTPError(t, NewPropertyHandler(&stubPropertyService{}).Create(c), http.StatusUnprocessableEntity)
}

func TestPropertyHandler_Delete_Forbidden(t *testing.T) {
	e := newTestEcho()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/properties/p1", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("p1")
	c.Set(middleware.KeyPrincipal, &domain.Principal{ID: "someone"})

	err := NewPropertyHandler(&stubPropertyService{err: domain.ErrForbidden}).Delete(c)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

type stubFavoriteService struct {
	saved map[string]bool
}

func (s *stubFavoriteService) Add(_ context.Context, userID, propertyID string) (*domain.Favorite, error) {
	if propertyID == "missing" {
		return nil, domain.ErrPropertyNotFound
	}
	s.saved[propertyID] = true
	return &domain.Favorite{ID: "f-" + propertyID, UserID: userID, PropertyID: propertyID, CreatedAt: time.Now()}, nil
}

func (s *stubFavoriteService) Remove(_ context.Context, userID, propertyID string) error {
	delete(s.saved, propertyID)
	return nil
}

func (s *stubFavoriteService) List(_ context.Context, userID string) ([]ports.FavoriteView, error) {
	var out []ports.FavoriteView
	for id := range s.saved {
		out = append(out, ports.FavoriteView{
			Favorite: domain.Favorite{ID: "f-" + id, UserID: userID, PropertyID: id},
			Property: &domain.Property{ID: id},
		})
	}
	return out, nil
}

func (s *stubFavoriteService) IsFavorite(_ context.Context, userID, propertyID string) (bool, error) {
	return s.saved[propertyID], nil
}

func TestFavoriteHandler_Flow(t *testing.T) {
	e := newTestEcho()
	svc := &stubFavoriteService{saved: map[string]bool{}}
	h := NewFavoriteHandler(svc)
	tenant := &domain.Principal{ID: "tenant-1"}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/favorites/p1", nil), rec)
	c.SetParamNames("propertyID")
	c.SetParamValues("p1")
	c.Set(middleware.KeyPrincipal, tenant)
	if err := h.Add(c); err != nil {
		t.Fatalf("add: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/favorites/p1", nil), rec)
	c.SetParamNames("propertyID")
	c.SetParamValues("p1")
	c.Set(middleware.KeyPrincipal, tenant)
	if err := h.Check(c); err != nil {
		t.Fatalf("check: %v", err)
	}
	var status favoriteStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil || !status.Favorite {
		t.Fatalf("expected favorite, got %+v (%v)", status, err)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/favorites", nil), rec)
	c.Set(middleware.KeyPrincipal, tenant)
	if err := h.List(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	var list favoriteListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if list.Count != 1 || list.Items[0].Property == nil {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/favorites/p1", nil), rec)
	c.SetParamNames("propertyID")
	c.SetParamValues("p1")
	c.Set(middleware.KeyPrincipal, tenant)
	if err := h.Remove(c); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if rec.Code != http.StatusNoContent || svc.saved["p1"] {
		t.Fatalf("expected favorite removed")
	}
}

func TestFavoriteHandler_Add_MissingProperty(t *testing.T) {
	e := newTestEcho()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/favorites/missing", nil), httptest.NewRecorder())
	c.SetParamNames("propertyID")
	c.SetParamValues("missing")
	c.Set(middleware.KeyPrincipal, &domain.Principal{ID: "tenant-1"})

	err := NewFavoriteHandler(&stubFavoriteService{saved: map[string]bool{}}).Add(c)
	if !errors.Is(err, domain.ErrPropertyNotFound) {
		t.Fatalf("expected ErrPropertyNotFound, got %v", err)
	}
}
