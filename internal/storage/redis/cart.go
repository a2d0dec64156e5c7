package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/luxe-store/internal/domain/cart"
)

// DefaultCartTTL expires abandoned carts.
const DefaultCartTTL = 30 * 24 * time.Hour

var _ cart.Store = (*CartStore)(nil)

// CartStore persists carts as JSON values.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore returns a cart store backed by client.
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &CartStore{client: client, ttl: ttl}
}

// Load implements cart.Store.
func (s *CartStore) Load(ctx context.Context, ownerKey string) (*cart.Cart, error) {
	raw, err := s.client.Get(ctx, key("cart", ownerKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &cart.Cart{OwnerKey: ownerKey, Items: []cart.Item{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cart: %w", err)
	}
	c := &cart.Cart{}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("decoding cart: %w", err)
	}
	c.OwnerKey = ownerKey
	return c, nil
}

// Save implements cart.Store.
func (s *CartStore) Save(ctx context.Context, c *cart.Cart) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}
	if err := s.client.Set(ctx, key("cart", c.OwnerKey), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving cart: %w", err)
	}
	return nil
}

// Clear implements cart.Store.
func (s *CartStore) Clear(ctx context.Context, ownerKey string) error {
	if err := s.client.Del(ctx, key("cart", ownerKey)).Err(); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}
