package checkout

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/luxe-store/internal/domain/cart"
	"github.com/xenking/luxe-store/internal/domain/inventory"
	"github.com/xenking/luxe-store/internal/domain/order"
	"github.com/xenking/luxe-store/internal/domain/payment"
	"github.com/xenking/luxe-store/internal/domain/product"
)

// plan is one fully-resolved checkout ready for execution.
type plan struct {
	userID  string
	lines   []order.LineItem
	address order.ShippingAddress
	method  payment.Method
	mode    inventory.Mode
	idemKey string
	settle  func(ctx context.Context) (payment.Settlement, error)
}

// PlaceOrder runs a single-call checkout for any payment method. Card
// orders must carry a payment reference already confirmed by the client.
func (o *Orchestrator) PlaceOrder(ctx context.Context, req Request) (_ *order.Order, rerr error) {
	ctx, span := o.tracer.Start(ctx, "checkout.PlaceOrder", trace.WithAttributes(
		attribute.String("payment.method", string(req.PaymentMethod)),
		attribute.Int("items", len(req.Items)),
	))
	defer func() { endSpan(span, rerr) }()

	if req.PaymentMethod == payment.MethodCard && strings.TrimSpace(req.PaymentReference) == "" {
		return nil, &order.ValidationError{Field: "paymentIntentId", Message: "is required for card payments"}
	}
	adapter, err := o.adapters.For(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	mode := inventory.Strict
	if req.PaymentMethod == payment.MethodCOD {
		mode = o.cfg.CODStockPolicy
	}

	return o.idempotent(ctx, req.UserID, req.IdempotencyKey, fingerprint(req), func(ctx context.Context) (*order.Order, error) {
		lines, err := o.resolveLines(ctx, req.Items, false)
		if err != nil {
			return nil, err
		}
		ref := strings.TrimSpace(req.PaymentReference)
		return o.execute(ctx, plan{
			userID:  req.UserID,
			lines:   lines,
			address: req.ShippingAddress,
			method:  req.PaymentMethod,
			mode:    mode,
			idemKey: req.IdempotencyKey,
			settle: func(ctx context.Context) (payment.Settlement, error) {
				return adapter.Settle(ctx, ref)
			},
		})
	})
}

// PlaceCODOrder places a cash-on-delivery order.
func (o *Orchestrator) PlaceCODOrder(ctx context.Context, req Request) (*order.Order, error) {
	req.PaymentMethod = payment.MethodCOD
	req.PaymentReference = ""
	return o.PlaceOrder(ctx, req)
}

// execute validates, settles payment, reserves stock, builds and persists.
// Stock reserved before a failure is released before returning.
func (o *Orchestrator) execute(ctx context.Context, p plan) (*order.Order, error) {
	lg := zctx.From(ctx).With(zap.String("user_id", p.userID), zap.String("payment_method", string(p.method)))

	addr, err := o.builder.Validate(p.lines, p.address)
	if err != nil {
		return nil, err
	}

	settlement, err := p.settle(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "settle payment")
	}

	reqs := make([]inventory.Request, len(p.lines))
	for i, l := range p.lines {
		reqs[i] = inventory.Request{Ref: l.Product, Title: l.Title, Quantity: l.Quantity}
	}
	reserved, err := o.ledger.ReserveAll(ctx, reqs, p.mode)
	if err != nil {
		return nil, err
	}
	lines := append([]order.LineItem(nil), p.lines...)
	for i := range lines {
		lines[i].Backordered = reserved.Backordered(i)
	}

	ord, err := o.builder.Build(order.BuildRequest{
		UserID:           p.userID,
		Items:            lines,
		ShippingAddress:  addr,
		PaymentMethod:    p.method,
		PaymentReference: settlement.Reference,
		IdempotencyKey:   p.idemKey,
	})
	if err != nil {
		o.compensate(ctx, reserved, "build")
		return nil, err
	}

	if err := o.persist(ctx, ord); err != nil {
		o.compensate(ctx, reserved, "persist")
		if existing := o.existing(ctx, ord, err); existing != nil {
			lg.Info("Returning order already placed for this checkout", zap.String("order_id", existing.ID))
			return existing, nil
		}
		return nil, errors.Wrap(err, "persist order")
	}

	o.ordersCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("payment.method", string(p.method))))
	lg.Info("Order placed",
		zap.String("order_id", ord.ID),
		zap.String("order_number", ord.Number),
		zap.String("total", ord.Breakdown.Total.StringFixed(2)),
		zap.Bool("simulated_payment", settlement.Simulated),
	)
	o.clearCart(ctx, p.userID)
	return ord, nil
}

// existing returns the order that won a unique conflict against ord when
// both come from the same checkout: the same gateway payment or the same
// user's idempotency key. Any other conflict yields nil.
func (o *Orchestrator) existing(ctx context.Context, ord *order.Order, err error) *order.Order {
	var (
		found *order.Order
		ferr  error
	)
	switch {
	case errors.Is(err, order.ErrDuplicatePaymentReference) && ord.PaymentMethod == payment.MethodCard:
		found, ferr = o.orders.FindByPaymentReference(ctx, ord.PaymentReference)
	case errors.Is(err, order.ErrDuplicateIdempotencyKey):
		found, ferr = o.orders.FindByIdempotencyKey(ctx, ord.UserID, ord.IdempotencyKey)
	default:
		return nil
	}
	if ferr != nil {
		zctx.From(ctx).Warn("Failed to load conflicting order", zap.Error(ferr))
		return nil
	}
	if found.UserID != ord.UserID || found.PaymentMethod != ord.PaymentMethod {
		return nil
	}
	return found
}

func (o *Orchestrator) persist(ctx context.Context, ord *order.Order) error {
	var err error
	for range maxNumberAttempts {
		if err = o.orders.Create(ctx, ord); !errors.Is(err, order.ErrDuplicateNumber) {
			return err
		}
		zctx.From(ctx).Warn("Order number collision, regenerating", zap.String("order_number", ord.Number))
		if rerr := o.builder.Renumber(ord); rerr != nil {
			return rerr
		}
	}
	return err
}

func (o *Orchestrator) compensate(ctx context.Context, rs inventory.Reservations, step string) {
	o.compensations.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
	o.ledger.ReleaseAll(ctx, rs)
}

func (o *Orchestrator) clearCart(ctx context.Context, userID string) {
	if o.carts == nil {
		return
	}
	if err := o.carts.Clear(ctx, cart.OwnerKey(userID)); err != nil {
		zctx.From(ctx).Warn("Failed to clear cart after checkout", zap.String("user_id", userID), zap.Error(err))
	}
}

// resolveLines turns client items into line items. Catalog products take
// their title and price from the catalog. With strict unset, identifiers
// missing from the catalog are carried as external products at the client
// price.
func (o *Orchestrator) resolveLines(ctx context.Context, items []CartItem, strict bool) ([]order.LineItem, error) {
	if len(items) == 0 {
		return nil, order.ValidateItems(nil)
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = strings.TrimSpace(it.ProductID)
		if ids[i] == "" {
			return nil, &order.ValidationError{Field: itemField(i, "product"), Message: "is required"}
		}
	}

	res, err := product.Resolve(ctx, o.products, ids, strict)
	if err != nil {
		return nil, err
	}

	lines := make([]order.LineItem, len(items))
	for i, it := range items {
		ref := res.Refs[i]
		line := order.LineItem{
			Product:  ref,
			Title:    it.Title,
			Quantity: it.Quantity,
			Size:     it.Size,
			Color:    it.Color,
		}
		if p, ok := res.Product(ref); ok {
			line.Title = p.Title
			line.UnitPrice = p.Price
		} else {
			if it.Price == nil {
				return nil, &order.ValidationError{Field: itemField(i, "price"), Message: "is required"}
			}
			line.UnitPrice = *it.Price
			zctx.From(ctx).Info("Product not in catalog, treating as external",
				zap.String("product", ref.ID()),
			)
		}
		lines[i] = line
	}
	return lines, nil
}

func itemField(i int, name string) string {
	return "items[" + strconv.Itoa(i) + "]." + name
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
