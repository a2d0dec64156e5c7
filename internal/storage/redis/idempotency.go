package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/luxe-store/internal/domain/checkout"
)

var _ checkout.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore keeps idempotency records with a TTL.
type IdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore returns a store backed by client.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Get implements checkout.IdempotencyStore.
func (s *IdempotencyStore) Get(ctx context.Context, k string) (*checkout.IdempotencyRecord, error) {
	raw, err := s.client.Get(ctx, key("idempotency", k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting idempotency record: %w", err)
	}
	var rec checkout.IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding idempotency record: %w", err)
	}
	return &rec, nil
}

// Claim implements checkout.IdempotencyStore with SET NX, which is atomic
// across every replica sharing the Redis instance.
func (s *IdempotencyStore) Claim(ctx context.Context, k string, rec checkout.IdempotencyRecord, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("encoding idempotency record: %w", err)
	}
	ok, err := s.client.SetNX(ctx, key("idempotency", k), raw, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claiming idempotency key: %w", err)
	}
	return ok, nil
}

// Put implements checkout.IdempotencyStore.
func (s *IdempotencyStore) Put(ctx context.Context, k string, rec checkout.IdempotencyRecord, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, key("idempotency", k), raw, ttl).Err(); err != nil {
		return fmt.Errorf("storing idempotency record: %w", err)
	}
	return nil
}

// Delete implements checkout.IdempotencyStore.
func (s *IdempotencyStore) Delete(ctx context.Context, k string) error {
	if err := s.client.Del(ctx, key("idempotency", k)).Err(); err != nil {
		return fmt.Errorf("deleting idempotency record: %w", err)
	}
	return nil
}
