package order

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/luxe-store/internal/domain/payment"
	"github.com/xenking/luxe-store/internal/domain/pricing"
)

// BuildRequest carries everything needed to assemble an order.
type BuildRequest struct {
	UserID           string
	Items            []LineItem
	ShippingAddress  ShippingAddress
	PaymentMethod    payment.Method
	PaymentReference string
	IdempotencyKey   string
}

// Builder validates checkout input and assembles an unsaved Order. It does
// not touch inventory or the payment gateway.
type Builder struct {
	numbers *NumberGenerator
	now     func() time.Time
}

// NewBuilder creates a Builder issuing numbers from numbers.
func NewBuilder(numbers *NumberGenerator) *Builder {
	return &Builder{numbers: numbers, now: time.Now}
}

// Validate checks line items and the shipping address. It returns the
// normalized address.
func (b *Builder) Validate(items []LineItem, addr ShippingAddress) (ShippingAddress, error) {
	if err := ValidateItems(items); err != nil {
		return addr, err
	}
	addr = addr.Normalize()
	if err := addr.Validate(); err != nil {
		return addr, err
	}
	return addr, nil
}

// Build validates req, prices it and returns a new pending Order.
func (b *Builder) Build(req BuildRequest) (*Order, error) {
	addr, err := b.Validate(req.Items, req.ShippingAddress)
	if err != nil {
		return nil, err
	}

	breakdown, err := pricing.Compute(PricingItems(req.Items))
	if err != nil {
		var lineErr *pricing.InvalidLineItemError
		if errors.As(err, &lineErr) {
			return nil, invalid("items", lineErr.Error())
		}
		return nil, err
	}

	number, err := b.numbers.Next()
	if err != nil {
		return nil, errors.Wrap(err, "generate order number")
	}

	o := &Order{
		ID:               uuid.New().String(),
		Number:           number,
		UserID:           req.UserID,
		Items:            append([]LineItem(nil), req.Items...),
		ShippingAddress:  addr,
		Breakdown:        breakdown,
		PaymentMethod:    req.PaymentMethod,
		PaymentStatus:    PaymentPending,
		Status:           StatusPending,
		PaymentReference: req.PaymentReference,
		CODAmount:        decimal.Zero,
		IdempotencyKey:   req.IdempotencyKey,
		CreatedAt:        b.now(),
	}
	if req.PaymentMethod == payment.MethodCOD {
		o.CODAmount = breakdown.Total
		o.PaymentReference = ""
	} else if req.PaymentReference != "" {
		o.PaymentStatus = PaymentPaid
	}
	o.UpdatedAt = o.CreatedAt
	return o, nil
}

// Renumber assigns a fresh order number after a persistence collision.
func (b *Builder) Renumber(o *Order) error {
	n, err := b.numbers.Next()
	if err != nil {
		return errors.Wrap(err, "generate order number")
	}
	o.Number = n
	return nil
}

// PricingItems projects line items onto pricing input.
func PricingItems(items []LineItem) []pricing.Item {
	out := make([]pricing.Item, len(items))
	for i, it := range items {
		out[i] = pricing.Item{UnitPrice: it.UnitPrice, Quantity: it.Quantity}
	}
	return out
}
