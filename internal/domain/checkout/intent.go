package checkout

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/luxe-store/internal/domain/inventory"
	"github.com/xenking/luxe-store/internal/domain/order"
	"github.com/xenking/luxe-store/internal/domain/payment"
	"github.com/xenking/luxe-store/internal/domain/pricing"
)

// CreatePaymentIntent prices the cart, checks availability without reserving
// and opens a gateway intent. No order exists until ConfirmPayment.
func (o *Orchestrator) CreatePaymentIntent(ctx context.Context, req Request) (_ *IntentResult, rerr error) {
	ctx, span := o.tracer.Start(ctx, "checkout.CreatePaymentIntent", trace.WithAttributes(
		attribute.Int("items", len(req.Items)),
	))
	defer func() { endSpan(span, rerr) }()

	if o.card == nil {
		return nil, errors.Wrap(payment.ErrMethodUnsupported, "card payments are not configured")
	}
	req.PaymentMethod = payment.MethodCard

	lines, err := o.resolveLines(ctx, req.Items, true)
	if err != nil {
		return nil, err
	}
	addr, err := o.builder.Validate(lines, req.ShippingAddress)
	if err != nil {
		return nil, err
	}
	breakdown, err := pricing.Compute(order.PricingItems(lines))
	if err != nil {
		return nil, err
	}

	for _, l := range lines {
		if err := o.ledger.Check(ctx, inventory.Request{Ref: l.Product, Title: l.Title, Quantity: l.Quantity}); err != nil {
			return nil, err
		}
	}

	quote := &Quote{
		UserID:          req.UserID,
		Items:           lines,
		ShippingAddress: addr,
		Breakdown:       breakdown,
		AmountMinor:     breakdown.TotalMinor(),
		Currency:        o.cfg.Currency,
		CreatedAt:       time.Now(),
	}
	intent, err := o.card.CreateIntent(ctx, payment.IntentRequest{
		AmountMinor: quote.AmountMinor,
		Currency:    quote.Currency,
		Metadata: map[string]string{
			"userId":        req.UserID,
			"itemCount":     strconv.Itoa(len(lines)),
			"shippingCity":  addr.City,
			"shippingState": addr.State,
		},
		IdempotencyKey: gatewayKey(req),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create payment intent")
	}

	quote.Reference = intent.Reference
	if err := o.quotes.Save(ctx, quote); err != nil {
		return nil, errors.Wrap(err, "save quote")
	}

	zctx.From(ctx).Info("Payment intent created",
		zap.String("user_id", req.UserID),
		zap.String("reference", intent.Reference),
		zap.Int64("amount_minor", quote.AmountMinor),
	)
	return &IntentResult{Reference: intent.Reference, ClientSecret: intent.ClientSecret, Quote: quote}, nil
}

// ConfirmPayment verifies the intent with the gateway and, only if it
// succeeded, reserves stock and persists the order from the pinned quote.
// Confirming a reference that already produced an order returns that order.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, req ConfirmRequest) (_ *order.Order, rerr error) {
	ctx, span := o.tracer.Start(ctx, "checkout.ConfirmPayment", trace.WithAttributes(
		attribute.String("payment.reference", req.Reference),
	))
	defer func() { endSpan(span, rerr) }()

	ref := strings.TrimSpace(req.Reference)
	if ref == "" {
		return nil, &order.ValidationError{Field: "paymentIntentId", Message: "is required"}
	}
	if o.card == nil {
		return nil, errors.Wrap(payment.ErrMethodUnsupported, "card payments are not configured")
	}

	v, err, _ := o.inflight.Do("confirm:"+req.UserID+":"+ref, func() (any, error) {
		return o.confirm(ctx, req.UserID, ref, req.IdempotencyKey)
	})
	if err != nil {
		return nil, err
	}
	return v.(*order.Order), nil
}

func (o *Orchestrator) confirm(ctx context.Context, userID, ref, idemKey string) (*order.Order, error) {
	var (
		existing *order.Order
		quote    *Quote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ord, err := o.orders.FindByPaymentReference(gctx, ref)
		switch {
		case err == nil:
			existing = ord
		case !errors.Is(err, order.ErrNotFound):
			return errors.Wrap(err, "find order by payment reference")
		}
		return nil
	})
	g.Go(func() error {
		q, err := o.quotes.Get(gctx, ref)
		if err != nil {
			return errors.Wrap(err, "get quote")
		}
		quote = q
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if quote.UserID != userID {
		return nil, ErrQuoteOwner
	}
	if existing != nil {
		zctx.From(ctx).Info("Payment already confirmed", zap.String("order_id", existing.ID))
		return existing, nil
	}

	intent, err := o.card.Verify(ctx, ref)
	if err != nil {
		return nil, err
	}
	if intent.AmountMinor != quote.AmountMinor {
		return nil, errors.Wrapf(ErrAmountMismatch, "intent %d, quote %d", intent.AmountMinor, quote.AmountMinor)
	}

	return o.execute(ctx, plan{
		userID:  userID,
		lines:   quote.Items,
		address: quote.ShippingAddress,
		method:  payment.MethodCard,
		mode:    inventory.Strict,
		idemKey: idemKey,
		settle: func(context.Context) (payment.Settlement, error) {
			return payment.Settlement{Reference: intent.Reference, Paid: true}, nil
		},
	})
}
