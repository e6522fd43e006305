package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

type memPropertyRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.Property
}

func newMemPropertyRepo() *memPropertyRepo {
	return &memPropertyRepo{rows: make(map[string]*domain.Property)}
}

func cloneProperty(p *domain.Property) *domain.Property {
	c := *p
	return &c
}

func (r *memPropertyRepo) Create(_ context.Context, p *domain.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.ID] = cloneProperty(p)
	return nil
}

func (r *memPropertyRepo) FindByID(_ context.Context, id string) (*domain.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrPropertyNotFound
	}
	return cloneProperty(p), nil
}

func (r *memPropertyRepo) List(_ context.Context, f domain.PropertyFilter) ([]*domain.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Property
	for _, p := range r.rows {
		switch {
		case f.ActiveOnly && !p.IsActive,
			f.OwnerID != "" && p.OwnerID != f.OwnerID,
			f.City != "" && !strings.Contains(strings.ToLower(p.City), strings.ToLower(f.City)),
			f.MinPrice > 0 && p.Price < f.MinPrice,
			f.MaxPrice > 0 && p.Price > f.MaxPrice,
			f.Bedrooms > 0 && p.Bedrooms < f.Bedrooms:
			continue
		}
		out = append(out, cloneProperty(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memPropertyRepo) FindByIDs(_ context.Context, ids []string) ([]*domain.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Property
	for _, id := range ids {
		if p, ok := r.rows[id]; ok {
			out = append(out, cloneProperty(p))
		}
	}
	return out, nil
}

func (r *memPropertyRepo) Update(_ context.Context, p *domain.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[p.ID]; !ok {
		return domain.ErrPropertyNotFound
	}
	r.rows[p.ID] = cloneProperty(p)
	return nil
}

func (r *memPropertyRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return domain.ErrPropertyNotFound
	}
	delete(r.rows, id)
	return nil
}

type memImageRepo struct {
	mu   sync.Mutex
	rows []*domain.Image
}

func (r *memImageRepo) Upsert(_ context.Context, img *domain.Image) (*domain.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.PropertyID == img.PropertyID && existing.Position == img.Position {
			existing.URL = img.URL
			existing.UpdatedAt = img.UpdatedAt
			c := *existing
			return &c, nil
		}
	}
	c := *img
	r.rows = append(r.rows, &c)
	out := c
	return &out, nil
}

func (r *memImageRepo) ListByProperties(_ context.Context, ids []string) ([]*domain.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*domain.Image
	for _, img := range r.rows {
		if want[img.PropertyID] {
			c := *img
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PropertyID != out[j].PropertyID {
			return out[i].PropertyID < out[j].PropertyID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (r *memImageRepo) Delete(_ context.Context, propertyID string, position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, img := range r.rows {
		if img.PropertyID == propertyID && img.Position == position {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrImageNotFound
}

func (r *memImageRepo) DeleteByProperty(_ context.Context, propertyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, img := range r.rows {
		if img.PropertyID != propertyID {
			kept = append(kept, img)
		}
	}
	r.rows = kept
	return nil
}

type memFavoriteRepo struct {
	mu   sync.Mutex
	rows []*domain.Favorite
}

func (r *memFavoriteRepo) Add(_ context.Context, f *domain.Favorite) (*domain.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.UserID == f.UserID && existing.PropertyID == f.PropertyID {
			c := *existing
			return &c, nil
		}
	}
	c := *f
	r.rows = append(r.rows, &c)
	out := c
	return &out, nil
}

func (r *memFavoriteRepo) Remove(_ context.Context, userID, propertyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, f := range r.rows {
		if f.UserID != userID || f.PropertyID != propertyID {
			kept = append(kept, f)
		}
	}
	r.rows = kept
	return nil
}

func (r *memFavoriteRepo) ListByUser(_ context.Context, userID string) ([]*domain.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Favorite
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].UserID == userID {
			c := *r.rows[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memFavoriteRepo) Exists(_ context.Context, userID, propertyID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.rows {
		if f.UserID == userID && f.PropertyID == propertyID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memFavoriteRepo) DeleteByProperty(_ context.Context, propertyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, f := range r.rows {
		if f.PropertyID != propertyID {
			kept = append(kept, f)
		}
	}
	r.rows = kept
	return nil
}

func validListing() ports.PropertyInput {
	return ports.PropertyInput{
		Title:    "Sunny flat",
		Price:    1200,
		Bedrooms: 2,
		Address:  "1 Main St",
		City:     "Springfield",
		State:    "IL",
		IsActive: true,
	}
}

func TestPropertyService_Create(t *testing.T) {
	repo := newMemPropertyRepo()
	svc := NewPropertyService(repo, &memImageRepo{}, &memFavoriteRepo{}, tagStripper{}, zerolog.Nop())

	in := validListing()
	in.Description = "<i>bright</i> and quiet"
	p, err := svc.Create(context.Background(), "owner-1", in)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if p.ID == "" || p.OwnerID != "owner-1" {
		t.Fatalf("unexpected property: %+v", p)
	}
	if p.Description != "bright and quiet" {
		t.Fatalf("expected sanitized description, got %q", p.Description)
	}
}

func TestPropertyService_Create_Validation(t *testing.T) {
	svc := NewPropertyService(newMemPropertyRepo(), &memImageRepo{}, &memFavoriteRepo{}, tagStripper{}, zerolog.Nop())

	tests := []struct {
		name   string
		mutate func(*ports.PropertyInput)
	}{
		{"missing title", func(in *ports.PropertyInput) { in.Title = "" }},
		{"zero price", func(in *ports.PropertyInput) { in.Price = 0 }},
		{"negative bedrooms", func(in *ports.PropertyInput) { in.Bedrooms = -1 }},
		{"latitude out of range", func(in *ports.PropertyInput) { lat := 91.0; in.Latitude = &lat }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validListing()
			tt.mutate(&in)
			if _, err := svc.Create(context.Background(), "owner-1", in); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestPropertyService_List_Filters(t *testing.T) {
	repo := newMemPropertyRepo()
	svc := NewPropertyService(repo, &memImageRepo{}, &memFavoriteRepo{}, tagStripper{}, zerolog.Nop())
	now := time.Now()
	repo.rows["a"] = &domain.Property{ID: "a", City: "Springfield", Price: 900, Bedrooms: 1, IsActive: true, CreatedAt: now}
	repo.rows["b"] = &domain.Property{ID: "b", City: "springfield", Price: 1500, Bedrooms: 3, IsActive: true, CreatedAt: now}
	repo.rows["c"] = &domain.Property{ID: "c", City: "Shelbyville", Price: 1000, Bedrooms: 2, IsActive: true, CreatedAt: now}
	repo.rows["d"] = &domain.Property{ID: "d", City: "Springfield", Price: 1000, Bedrooms: 2, IsActive: false, CreatedAt: now}

	got, err := svc.List(context.Background(), domain.PropertyFilter{City: "SPRING", MinPrice: 1000, Bedrooms: 2})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("expected only b, got %v", got)
	}

	if _, err := svc.List(context.Background(), domain.PropertyFilter{MinPrice: 2000, MaxPrice: 1000}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for inverted range, got %v", err)
	}
}

func TestPropertyService_UpdateDelete_OwnerOnly(t *testing.T) {
	repo := newMemPropertyRepo()
	favs := &memFavoriteRepo{}
	svc := NewPropertyService(repo, &memImageRepo{}, favs, tagStripper{}, zerolog.Nop())

	p, _ := svc.Create(context.Background(), "owner-1", validListing())
	_, _ = favs.Add(context.Background(), &domain.Favorite{ID: "f1", UserID: "tenant-1", PropertyID: p.ID})

	if _, err := svc.Update(context.Background(), "intruder", p.ID, validListing()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on update, got %v", err)
	}
	if err := svc.Delete(context.Background(), "intruder", p.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on delete, got %v", err)
	}

	in := validListing()
	in.Price = 1300
	updated, err := svc.Update(context.Background(), "owner-1", p.ID, in)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Price != 1300 || !updated.CreatedAt.Equal(p.CreatedAt) {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if err := svc.Delete(context.Background(), "owner-1", p.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := svc.Get(context.Background(), p.ID); !errors.Is(err, domain.ErrPropertyNotFound) {
		t.Fatalf("expected ErrPropertyNotFound after delete, got %v", err)
	}
	if ok, _ := favs.Exists(context.Background(), "tenant-1", p.ID); ok {
		t.Fatalf("favorites of deleted property must be removed")
	}
}

func TestPropertyService_Images(t *testing.T) {
	repo := newMemPropertyRepo()
	images := &memImageRepo{}
	svc := NewPropertyService(repo, images, &memFavoriteRepo{}, tagStripper{}, zerolog.Nop())
	ctx := context.Background()

	p, err := svc.Create(ctx, "owner-1", validListing())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := svc.PutImage(ctx, "intruder", p.ID, 0, "https://cdn.example.com/x.jpg"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}

	first, err := svc.PutImage(ctx, "owner-1", p.ID, 1, "https://cdn.example.com/b.jpg")
	if err != nil {
		t.Fatalf("PutImage returned error: %v", err)
	}
	if _, err := svc.PutImage(ctx, "owner-1", p.ID, 0, "https://cdn.example.com/a.jpg"); err != nil {
		t.Fatalf("PutImage returned error: %v", err)
	}
	replaced, err := svc.PutImage(ctx, "owner-1", p.ID, 1, "https://cdn.example.com/c.jpg")
	if err != nil {
		t.Fatalf("PutImage returned error: %v", err)
	}
	if replaced.ID != first.ID {
		t.Fatalf("writing a taken slot must keep the image id")
	}

	got, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(got.Images) != 2 || got.Images[0].Position != 0 || got.Images[1].URL != "https://cdn.example.com/c.jpg" {
		t.Fatalf("unexpected gallery: %+v", got.Images)
	}

	listed, err := svc.List(ctx, domain.PropertyFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(listed) != 1 || len(listed[0].Images) != 2 {
		t.Fatalf("list must carry galleries, got %+v", listed)
	}

	if err := svc.RemoveImage(ctx, "intruder", p.ID, 0); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on remove, got %v", err)
	}
	if err := svc.RemoveImage(ctx, "owner-1", p.ID, 0); err != nil {
		t.Fatalf("RemoveImage returned error: %v", err)
	}
	if err := svc.RemoveImage(ctx, "owner-1", p.ID, 0); !errors.Is(err, domain.ErrImageNotFound) {
		t.Fatalf("expected ErrImageNotFound for empty slot, got %v", err)
	}

	if err := svc.Delete(ctx, "owner-1", p.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if left, _ := images.ListByProperties(ctx, []string{p.ID}); len(left) != 0 {
		t.Fatalf("images of deleted property must be removed, got %d", len(left))
	}
}

func TestPropertyService_PutImage_Validation(t *testing.T) {
	repo := newMemPropertyRepo()
	svc := NewPropertyService(repo, &memImageRepo{}, &memFavoriteRepo{}, tagStripper{}, zerolog.Nop())
	p, _ := svc.Create(context.Background(), "owner-1", validListing())

	tests := []struct {
		name     string
		position int
		url      string
	}{
		{"negative position", -1, "https://cdn.example.com/a.jpg"},
		{"position past gallery", domain.MaxImagePosition + 1, "https://cdn.example.com/a.jpg"},
		{"relative url", 0, "/images/a.jpg"},
		{"unsupported scheme", 0, "javascript:alert(1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.PutImage(context.Background(), "owner-1", p.ID, tt.position, tt.url); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestFavoriteService(t *testing.T) {
	props := newMemPropertyRepo()
	props.rows["p1"] = &domain.Property{ID: "p1", Title: "One", IsActive: true}
	props.rows["p2"] = &domain.Property{ID: "p2", Title: "Two", IsActive: true}
	favs := &memFavoriteRepo{}
	svc := NewFavoriteService(favs, props, zerolog.Nop())
	ctx := context.Background()

	first, err := svc.Add(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	again, _ := svc.Add(ctx, "u1", "p1")
	if again.ID != first.ID {
		t.Fatalf("expected idempotent add")
	}
	if _, err := svc.Add(ctx, "u1", "missing"); !errors.Is(err, domain.ErrPropertyNotFound) {
		t.Fatalf("expected ErrPropertyNotFound, got %v", err)
	}
	_, _ = svc.Add(ctx, "u1", "p2")

	views, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(views) != 2 || views[0].Property.ID != "p2" {
		t.Fatalf("expected newest first with properties, got %+v", views)
	}

	if err := svc.Remove(ctx, "u1", "p1"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if ok, _ := svc.IsFavorite(ctx, "u1", "p1"); ok {
		t.Fatalf("expected p1 to be removed")
	}
	if ok, _ := svc.IsFavorite(ctx, "u1", "p2"); !ok {
		t.Fatalf("expected p2 to stay")
	}
}
