package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/luxe-store/internal/domain/payment"
	"github.com/xenking/luxe-store/internal/domain/pricing"
	"github.com/xenking/luxe-store/internal/domain/product"
)

// Sentinel errors for order persistence and lifecycle.
var (
	ErrNotFound                  = errors.New("order not found")
	ErrDuplicateNumber           = errors.New("order number already exists")
	ErrDuplicatePaymentReference = errors.New("payment reference already used")
	ErrDuplicateIdempotencyKey   = errors.New("idempotency key already used")
	ErrInvalidTransition         = errors.New("invalid status transition")
	ErrInvalidReference          = errors.New("invalid order reference")
)

// PaymentStatus tracks collection of the order amount.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// LineItem is one product entry of an order. Immutable once persisted.
type LineItem struct {
	Product   product.Reference
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
	Size      string
	Color     string
	// Backordered marks a cash-on-delivery line accepted without stock.
	Backordered bool
}

// ShippingAddress is the delivery destination.
type ShippingAddress struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	Area       string `json:"area"`
	City       string `json:"city"`
	District   string `json:"district"`
	State      string `json:"state"`
	PostalCode string `json:"pincode"`
	Country    string `json:"country"`
}

// Order is a priced, persisted customer order.
type Order struct {
	ID                string
	Number            string
	UserID            string
	Items             []LineItem
	ShippingAddress   ShippingAddress
	Breakdown         pricing.Breakdown
	PaymentMethod     payment.Method
	PaymentStatus     PaymentStatus
	Status            Status
	PaymentReference  string
	CODAmount         decimal.Decimal
	TrackingNumber    string
	EstimatedDelivery *time.Time
	Notes             string
	IdempotencyKey    string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Filter selects a page of orders for the admin listing.
type Filter struct {
	Status Status
	Page   int
	Limit  int
}

// Page size bounds for listings.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Normalize applies listing defaults.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

// Offset returns the number of rows to skip.
func (f Filter) Offset() int { return (f.Page - 1) * f.Limit }

// Pagination describes a returned page.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination computes page metadata for total matching rows.
func NewPagination(f Filter, total int) Pagination {
	pages := 0
	if f.Limit > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	return Pagination{Page: f.Page, Limit: f.Limit, Total: total, Pages: pages}
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create inserts o and fills server-generated timestamps. It returns
	// ErrDuplicateNumber, ErrDuplicatePaymentReference or
	// ErrDuplicateIdempotencyKey on unique conflicts.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// FindByPaymentReference returns ErrNotFound when no order carries ref.
	FindByPaymentReference(ctx context.Context, ref string) (*Order, error)
	// FindByIdempotencyKey returns the user's order placed with key.
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context, f Filter) ([]Order, int, error)
	// UpdateStatus persists mutable lifecycle fields provided the stored
	// status still equals from.
	UpdateStatus(ctx context.Context, o *Order, from Status) error
}
