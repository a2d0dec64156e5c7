// Package inventory owns stock mutation for managed products. All changes go
// through optimistic compare-and-swap against a versioned record, so
// concurrent reservations on one product serialize without stock ever
// dropping below zero.
package inventory

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrInsufficientStock is returned when a reservation asks for more units
	// than are available.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrRecordNotFound is returned when a managed product has no stock record.
	ErrRecordNotFound = errors.New("inventory record not found")
	// ErrVersionConflict is returned by Repository.CompareAndSwap when the
	// record changed since it was read.
	ErrVersionConflict = errors.New("inventory version conflict")
)

// InsufficientStockError describes a failed reservation.
type InsufficientStockError struct {
	ProductID string
	Title     string
	Requested int
	Available int
	// Contended is set when the retry budget ran out under concurrent updates
	// rather than the stock being observed short.
	Contended bool
}

func (e *InsufficientStockError) Error() string {
	name := e.Title
	if name == "" {
		name = e.ProductID
	}
	if e.Contended {
		return fmt.Sprintf("insufficient stock for %s: too many concurrent reservations", name)
	}
	return fmt.Sprintf("insufficient stock for %s. Available: %d", name, e.Available)
}

// Is reports ErrInsufficientStock equivalence.
func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Record is the stock state of one managed product.
type Record struct {
	ProductID string
	Stock     int
	Version   int64
}

// Repository provides versioned access to stock records.
type Repository interface {
	Get(ctx context.Context, productID string) (*Record, error)
	// CompareAndSwap stores stock when the record is still at version and
	// returns ErrVersionConflict otherwise.
	CompareAndSwap(ctx context.Context, productID string, version int64, stock int) error
}

// Mode selects how a reservation reacts to a short stock record.
type Mode int

const (
	// Strict rejects the reservation with ErrInsufficientStock.
	Strict Mode = iota
	// Backorder accepts the reservation without touching stock and marks it
	// as backordered, leaving the shortfall to be corrected by staff.
	Backorder
)

// ParseMode maps a configuration value onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "strict":
		return Strict, nil
	case "backorder":
		return Backorder, nil
	default:
		return Strict, errors.Errorf("unknown stock policy %q", s)
	}
}

func (m Mode) String() string {
	if m == Backorder {
		return "backorder"
	}
	return "strict"
}
