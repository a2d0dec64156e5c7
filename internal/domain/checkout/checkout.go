// Package checkout sequences payment, inventory and persistence into a
// single order placement per payment method.
package checkout

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/luxe-store/internal/domain/cart"
	"github.com/xenking/luxe-store/internal/domain/inventory"
	"github.com/xenking/luxe-store/internal/domain/order"
	"github.com/xenking/luxe-store/internal/domain/payment"
	"github.com/xenking/luxe-store/internal/domain/product"
)

const instrumentationName = "github.com/xenking/luxe-store/internal/domain/checkout"

// Sentinel errors surfaced by the orchestrator.
var (
	ErrIdempotencyKeyReused = errors.New("idempotency key reused with a different request")
	ErrCheckoutInProgress   = errors.New("checkout with this idempotency key is in progress")
	ErrQuoteNotFound        = errors.New("payment intent not found")
	ErrQuoteOwner           = errors.New("payment intent belongs to another user")
	ErrAmountMismatch       = errors.New("payment amount does not match quote")
)

// maxNumberAttempts bounds persistence retries on order number collisions.
const maxNumberAttempts = 3

// CartItem is a line item as submitted by the client.
type CartItem struct {
	ProductID string
	Title     string
	Quantity  int
	// Price is required for products outside the managed catalog and
	// ignored for catalog products.
	Price *decimal.Decimal
	Size  string
	Color string
}

// Request is a checkout attempt.
type Request struct {
	UserID           string
	Items            []CartItem
	ShippingAddress  order.ShippingAddress
	PaymentMethod    payment.Method
	PaymentReference string
	IdempotencyKey   string
}

// ConfirmRequest completes a two-phase card checkout.
type ConfirmRequest struct {
	UserID         string
	Reference      string
	IdempotencyKey string
}

// IntentResult is returned to the client to authorize a card payment.
type IntentResult struct {
	Reference    string
	ClientSecret string
	Quote        *Quote
}

// Config tunes orchestrator policy.
type Config struct {
	// CODStockPolicy governs reservations for cash-on-delivery orders.
	CODStockPolicy inventory.Mode
	IdempotencyTTL time.Duration
	// ClaimTTL bounds how long an unfinished checkout holds its key.
	ClaimTTL time.Duration
	Currency string
}

// Deps are the orchestrator collaborators. Card and Carts are optional.
type Deps struct {
	Products    product.Repository
	Ledger      *inventory.Ledger
	Builder     *order.Builder
	Orders      order.Repository
	Adapters    payment.Adapters
	Card        *payment.CardAdapter
	Quotes      QuoteRepository
	Idempotency IdempotencyStore
	Carts       cart.Store
	Tracer      trace.TracerProvider
	Meter       metric.MeterProvider
}

// Orchestrator is the checkout coordinator.
type Orchestrator struct {
	products product.Repository
	ledger   *inventory.Ledger
	builder  *order.Builder
	orders   order.Repository
	adapters payment.Adapters
	card     *payment.CardAdapter
	quotes   QuoteRepository
	idem     IdempotencyStore
	carts    cart.Store
	cfg      Config

	inflight singleflight.Group

	tracer        trace.Tracer
	ordersCreated metric.Int64Counter
	compensations metric.Int64Counter
}

// New creates an Orchestrator.
func New(deps Deps, cfg Config) (*Orchestrator, error) {
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 2 * time.Minute
	}
	if cfg.Currency == "" {
		cfg.Currency = "inr"
	}
	tp := deps.Tracer
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	mp := deps.Meter
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	o := &Orchestrator{
		products: deps.Products,
		ledger:   deps.Ledger,
		builder:  deps.Builder,
		orders:   deps.Orders,
		adapters: deps.Adapters,
		card:     deps.Card,
		quotes:   deps.Quotes,
		idem:     deps.Idempotency,
		carts:    deps.Carts,
		cfg:      cfg,
		tracer:   tp.Tracer(instrumentationName),
	}

	var err error
	if o.ordersCreated, err = meter.Int64Counter("checkout.orders.created",
		metric.WithDescription("Orders persisted by checkout"),
	); err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	if o.compensations, err = meter.Int64Counter("checkout.compensations",
		metric.WithDescription("Stock releases after a failed checkout step"),
	); err != nil {
		return nil, errors.Wrap(err, "compensations counter")
	}
	return o, nil
}
