// Package memory provides in-process stores used when Redis is not
// configured. State does not survive restarts and is not shared between
// replicas.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xenking/luxe-store/internal/domain/cart"
	"github.com/xenking/luxe-store/internal/domain/checkout"
)

var (
	_ checkout.IdempotencyStore = (*IdempotencyStore)(nil)
	_ cart.Store                = (*CartStore)(nil)
)

type entry struct {
	rec     checkout.IdempotencyRecord
	expires time.Time
}

// IdempotencyStore keeps records in a map with lazy expiry.
type IdempotencyStore struct {
	mu   sync.Mutex
	recs map[string]entry
	now  func() time.Time
}

// NewIdempotencyStore returns an empty store.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{recs: make(map[string]entry), now: time.Now}
}

// Get implements checkout.IdempotencyStore.
func (s *IdempotencyStore) Get(_ context.Context, key string) (*checkout.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.recs[key]
	if !ok {
		return nil, checkout.ErrRecordNotFound
	}
	if !s.now().Before(e.expires) {
		delete(s.recs, key)
		return nil, checkout.ErrRecordNotFound
	}
	rec := e.rec
	return &rec, nil
}

// Claim implements checkout.IdempotencyStore.
func (s *IdempotencyStore) Claim(_ context.Context, key string, rec checkout.IdempotencyRecord, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.recs[key]; ok && now.Before(e.expires) {
		return false, nil
	}
	s.recs[key] = entry{rec: rec, expires: now.Add(ttl)}
	return true, nil
}

// Put implements checkout.IdempotencyStore.
func (s *IdempotencyStore) Put(_ context.Context, key string, rec checkout.IdempotencyRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recs[key] = entry{rec: rec, expires: s.now().Add(ttl)}
	return nil
}

// Delete implements checkout.IdempotencyStore.
func (s *IdempotencyStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.recs, key)
	return nil
}

// CartStore keeps carts in a map.
type CartStore struct {
	mu    sync.RWMutex
	carts map[string]cart.Cart
}

// NewCartStore returns an empty store.
func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]cart.Cart)}
}

// Load implements cart.Store.
func (s *CartStore) Load(_ context.Context, ownerKey string) (*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[ownerKey]
	if !ok {
		return &cart.Cart{OwnerKey: ownerKey, Items: []cart.Item{}}, nil
	}
	c.Items = append([]cart.Item(nil), c.Items...)
	return &c, nil
}

// Save implements cart.Store.
func (s *CartStore) Save(_ context.Context, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	s.carts[c.OwnerKey] = cp
	return nil
}

// Clear implements cart.Store.
func (s *CartStore) Clear(_ context.Context, ownerKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, ownerKey)
	return nil
}
