package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/propspace/marketplace/internal/core/domain"
)

const defaultProfileTTL = 5 * time.Minute

// ProfileCache stores profiles as JSON under profile:<id>.
type ProfileCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewProfileCache(client redis.Cmdable, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = defaultProfileTTL
	}
	return &ProfileCache{client: client, ttl: ttl}
}

// Get returns (nil, nil) on a miss.
func (c *ProfileCache) Get(ctx context.Context, id string) (*domain.Profile, error) {
	b, err := c.client.Get(ctx, profileKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile cache get: %w", err)
	}
	var p domain.Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("profile cache decode: %w", err)
	}
	return &p, nil
}

func (c *ProfileCache) Set(ctx context.Context, p *domain.Profile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile cache encode: %w", err)
	}
	return c.client.Set(ctx, profileKey(p.ID), b, c.ttl).Err()
}

func (c *ProfileCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, profileKey(id)).Err()
}

func profileKey(id string) string {
	return "profile:" + id
}
