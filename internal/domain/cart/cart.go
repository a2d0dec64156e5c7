// Package cart persists a shopper's in-progress line items between visits.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// GuestOwner is the owner marker for anonymous carts.
const GuestOwner = "guest"

// ErrInvalidItem is returned when saving a cart with a malformed item.
var ErrInvalidItem = errors.New("invalid cart item")

// Item is one cart entry. ProductID may be a catalog or external identifier.
type Item struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Image     string          `json:"image,omitempty"`
}

// Cart is the persisted cart of one owner.
type Cart struct {
	OwnerKey  string    `json:"-"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OwnerKey returns the storage key for userID, or the guest key.
func OwnerKey(userID string) string {
	if userID == "" {
		return "cart:" + GuestOwner
	}
	return "cart:" + userID
}

// Store loads and saves carts by owner key.
type Store interface {
	// Load returns an empty cart when none is stored.
	Load(ctx context.Context, ownerKey string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Clear(ctx context.Context, ownerKey string) error
}

// Validate checks every item and merges duplicates of the same product
// variant, preserving first-seen order.
func (c *Cart) Validate() error {
	merged := make([]Item, 0, len(c.Items))
	index := make(map[[3]string]int, len(c.Items))
	for i, it := range c.Items {
		if it.ProductID == "" {
			return errors.Wrapf(ErrInvalidItem, "items[%d]: product required", i)
		}
		if it.Quantity < 1 {
			return errors.Wrapf(ErrInvalidItem, "items[%d]: quantity must be at least 1", i)
		}
		if it.Price.IsNegative() {
			return errors.Wrapf(ErrInvalidItem, "items[%d]: price must not be negative", i)
		}
		k := [3]string{it.ProductID, it.Size, it.Color}
		if j, ok := index[k]; ok {
			merged[j].Quantity += it.Quantity
			continue
		}
		index[k] = len(merged)
		merged = append(merged, it)
	}
	c.Items = merged
	return nil
}
