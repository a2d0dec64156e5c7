package checkout

import (
	"context"
	"time"

	"github.com/xenking/luxe-store/internal/domain/order"
	"github.com/xenking/luxe-store/internal/domain/pricing"
)

// Quote pins the priced cart behind a payment intent so confirmation builds
// the order from the amounts the customer authorized.
type Quote struct {
	Reference       string
	UserID          string
	Items           []order.LineItem
	ShippingAddress order.ShippingAddress
	Breakdown       pricing.Breakdown
	AmountMinor     int64
	Currency        string
	CreatedAt       time.Time
}

// QuoteRepository stores quotes by intent reference.
type QuoteRepository interface {
	// Save inserts or replaces the quote for q.Reference.
	Save(ctx context.Context, q *Quote) error
	// Get returns ErrQuoteNotFound when no quote exists.
	Get(ctx context.Context, reference string) (*Quote, error)
}
