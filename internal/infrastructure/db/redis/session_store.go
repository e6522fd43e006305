package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

// SessionStore keeps refresh tokens and revoked session ids.
// Key formats:
//
//	auth:refresh:<token>     JSON ports.RefreshGrant, expires with the token
//	auth:revoked:<session>   "1", expires once no token of the session can be valid
type SessionStore struct {
	client redis.Cmdable
}

func NewSessionStore(client redis.Cmdable) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) SaveRefresh(ctx context.Context, token string, grant ports.RefreshGrant, ttl time.Duration) error {
	b, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("encode refresh grant: %w", err)
	}
	return s.client.Set(ctx, refreshKey(token), b, ttl).Err()
}

// ConsumeRefresh reads and deletes the token in one step, so a refresh
// token can be exchanged at most once.
func (s *SessionStore) ConsumeRefresh(ctx context.Context, token string) (*ports.RefreshGrant, error) {
	b, err := s.client.GetDel(ctx, refreshKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	var grant ports.RefreshGrant
	if err := json.Unmarshal(b, &grant); err != nil {
		return nil, fmt.Errorf("decode refresh grant: %w", err)
	}
	return &grant, nil
}

func (s *SessionStore) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revokedKey(sessionID), "1", ttl).Err()
}

func (s *SessionStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}

func refreshKey(token string) string {
	return "auth:refresh:" + token
}

func revokedKey(sessionID string) string {
	return "auth:revoked:" + sessionID
}
