// Package handler serves the storefront checkout API over HTTP.
package handler

import (
	"context"

	"github.com/xenking/luxe-store/internal/domain/auth"
	"github.com/xenking/luxe-store/internal/domain/cart"
	"github.com/xenking/luxe-store/internal/domain/checkout"
	"github.com/xenking/luxe-store/internal/domain/order"
)

// Checkout places orders.
type Checkout interface {
	PlaceOrder(ctx context.Context, req checkout.Request) (*order.Order, error)
	PlaceCODOrder(ctx context.Context, req checkout.Request) (*order.Order, error)
	CreatePaymentIntent(ctx context.Context, req checkout.Request) (*checkout.IntentResult, error)
	ConfirmPayment(ctx context.Context, req checkout.ConfirmRequest) (*order.Order, error)
}

// Orders queries and updates placed orders.
type Orders interface {
	Get(ctx context.Context, id string) (*order.Order, error)
	ListByUser(ctx context.Context, userID string) ([]order.Order, error)
	List(ctx context.Context, f order.Filter) ([]order.Order, order.Pagination, error)
	UpdateStatus(ctx context.Context, id string, u order.StatusUpdate) (*order.Order, error)
}

// Authenticator resolves an API key to a caller identity.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (auth.Identity, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// Debug exposes internal error detail in responses.
	Debug bool
	// MaxBodyBytes caps request bodies. Zero means 1 MiB.
	MaxBodyBytes int64
}

const defaultMaxBodyBytes = 1 << 20

// Handler implements the HTTP endpoints, delegating business logic to the
// checkout orchestrator and the order service.
type Handler struct {
	checkout Checkout
	orders   Orders
	carts    cart.Store
	authn    Authenticator

	debug   bool
	maxBody int64
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	co Checkout,
	orders Orders,
	carts cart.Store,
	authn Authenticator,
) *Handler {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Handler{
		checkout: co,
		orders:   orders,
		carts:    carts,
		authn:    authn,
		debug:    cfg.Debug,
		maxBody:  maxBody,
	}
}
