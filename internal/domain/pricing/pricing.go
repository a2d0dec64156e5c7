// Package pricing computes the subtotal, tax, shipping and total of a set of
// line items. It performs no I/O.
package pricing

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// TaxRate is the fixed regional GST rate applied to the subtotal.
	TaxRate = decimal.RequireFromString("0.18")
	// FreeShippingAbove is the subtotal strictly above which shipping is free.
	FreeShippingAbove = decimal.NewFromInt(2000)
	// FlatShipping is charged when the subtotal does not exceed FreeShippingAbove.
	FlatShipping = decimal.NewFromInt(100)

	minorUnitsPerMajor = decimal.NewFromInt(100)
)

// ErrNoItems is returned when asked to price an empty item list.
var ErrNoItems = errors.New("no items to price")

// InvalidLineItemError indicates an item with a negative price or a
// non-positive quantity.
type InvalidLineItemError struct {
	Index  int
	Reason string
}

func (e *InvalidLineItemError) Error() string {
	return fmt.Sprintf("invalid line item %d: %s", e.Index, e.Reason)
}

// Item is the pricing view of a line item.
type Item struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Breakdown is the price decomposition of an order. Total always equals
// Subtotal + Tax + Shipping.
type Breakdown struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Compute prices the given items. Every component is rounded to two decimal
// places before the total is summed, so the total reconciles exactly.
func Compute(items []Item) (Breakdown, error) {
	if len(items) == 0 {
		return Breakdown{}, ErrNoItems
	}

	subtotal := decimal.Zero
	for i, item := range items {
		if item.Quantity < 1 {
			return Breakdown{}, &InvalidLineItemError{Index: i, Reason: "quantity must be at least 1"}
		}
		if item.UnitPrice.IsNegative() {
			return Breakdown{}, &InvalidLineItemError{Index: i, Reason: "price cannot be negative"}
		}
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(TaxRate).Round(2)
	shipping := FlatShipping
	if subtotal.GreaterThan(FreeShippingAbove) {
		shipping = decimal.Zero
	}

	return Breakdown{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}, nil
}

// MinorUnits converts a major-unit amount (rupees) to the smallest currency
// unit (paise), rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnitsPerMajor).Round(0).IntPart()
}

// TotalMinor returns the total in the smallest currency unit.
func (b Breakdown) TotalMinor() int64 {
	return MinorUnits(b.Total)
}
