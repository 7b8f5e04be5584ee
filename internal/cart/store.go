package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/shopstack-dev/shopstack-backend/pkg/redis"
)

// SessionStore exposes the redis operations the cart store depends on.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
}

// Store persists session cart documents in Redis as JSON.
type Store struct {
	redis SessionStore
	ttl   time.Duration
}

// NewStore builds a cart store. A zero ttl keeps carts until explicitly cleared.
func NewStore(client SessionStore, ttl time.Duration) *Store {
	return &Store{redis: client, ttl: ttl}
}

var _ SessionStore = (*redis.Client)(nil)

// Get loads the cart for a session. A missing key yields an empty document.
func (s *Store) Get(ctx context.Context, sessionID string) (*Document, error) {
	raw, err := s.redis.Get(ctx, s.redis.CartKey(sessionID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return &Document{Items: []RawLine{}}, nil
		}
		return nil, fmt.Errorf("loading cart %s: %w", sessionID, err)
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		// A corrupt document is unrecoverable; start the session over.
		return &Document{Items: []RawLine{}}, nil
	}
	if doc.Items == nil {
		doc.Items = []RawLine{}
	}
	return &doc, nil
}

// Save writes the cart document back to the session key.
func (s *Store) Save(ctx context.Context, sessionID string, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("cart document is required")
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}
	return s.redis.Set(ctx, s.redis.CartKey(sessionID), string(payload), s.ttl)
}

// SetUser associates the session cart with an authenticated user.
func (s *Store) SetUser(ctx context.Context, sessionID, userID string) error {
	doc, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	doc.UserID = &userID
	return s.Save(ctx, sessionID, doc)
}

// Clear removes the session cart entirely.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.redis.Del(ctx, s.redis.CartKey(sessionID))
}
