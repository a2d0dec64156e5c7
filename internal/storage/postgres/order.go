package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/luxe-store/internal/domain/order"
	"github.com/xenking/luxe-store/internal/domain/payment"
)

const orderColumns = `id, order_number, user_id, items, shipping_address,
	subtotal, tax, shipping, total, payment_method, payment_status, status,
	payment_reference, cod_amount, tracking_number, estimated_delivery, notes,
	idempotency_key, created_at, updated_at`

const (
	createOrderSQL = `INSERT INTO orders (id, order_number, user_id, items, shipping_address,
		subtotal, tax, shipping, total, payment_method, payment_status, status,
		payment_reference, cod_amount, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByPaymentReferenceSQL = `SELECT ` + orderColumns + ` FROM orders WHERE payment_reference = $1`

	getOrderByIdempotencyKeySQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 AND idempotency_key = $2`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	countOrdersSQL = `SELECT count(*) FROM orders WHERE ($1 = '' OR status = $1)`

	updateOrderStatusSQL = `UPDATE orders
		SET status = $2, payment_status = $3, tracking_number = $4,
			estimated_delivery = $5, notes = $6, updated_at = now()
		WHERE id = $1 AND status = $7
		RETURNING updated_at`
)

const (
	orderNumberConstraint      = "orders_order_number_key"
	paymentReferenceConstraint = "orders_payment_reference_key"
	idempotencyKeyConstraint   = "orders_idempotency_key_key"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Line items and the shipping address are
// stored as JSONB documents; timestamps come from the server.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, err := marshalItems(o.Items)
	if err != nil {
		return err
	}
	addr, err := marshalAddress(o.ShippingAddress)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx, createOrderSQL,
		o.ID, o.Number, o.UserID, items, addr,
		o.Breakdown.Subtotal, o.Breakdown.Tax, o.Breakdown.Shipping, o.Breakdown.Total,
		string(o.PaymentMethod), string(o.PaymentStatus), string(o.Status),
		nullable(o.PaymentReference), o.CODAmount, o.IdempotencyKey,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		switch uniqueConstraint(err) {
		case orderNumberConstraint:
			return order.ErrDuplicateNumber
		case paymentReferenceConstraint:
			return order.ErrDuplicatePaymentReference
		case idempotencyKeyConstraint:
			return order.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByIDSQL, id)
}

// FindByPaymentReference returns the order paid with ref.
func (r *OrderRepository) FindByPaymentReference(ctx context.Context, ref string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByPaymentReferenceSQL, ref)
}

// FindByIdempotencyKey returns the user's order placed with key.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByIdempotencyKeySQL, userID, key)
}

func (r *OrderRepository) getOne(ctx context.Context, query string, args ...any) (*order.Order, error) {
	arg := args[len(args)-1]
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", arg, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", arg, err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// List returns one page of orders and the total number matching f.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countOrdersSQL, string(f.Status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL, string(f.Status), f.Limit, f.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	return list, total, nil
}

// UpdateStatus persists lifecycle fields when the stored status is from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order, from order.Status) error {
	err := r.pool.QueryRow(ctx, updateOrderStatusSQL,
		o.ID, string(o.Status), string(o.PaymentStatus), o.TrackingNumber,
		o.EstimatedDelivery, o.Notes, string(from),
	).Scan(&o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.Wrapf(order.ErrInvalidTransition, "order %s is no longer %s", o.ID, from)
		}
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                            order.Order
		items, addr                  []byte
		method, paymentStatus, state string
		reference                    *string
		eta                          *time.Time
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &items, &addr,
		&o.Breakdown.Subtotal, &o.Breakdown.Tax, &o.Breakdown.Shipping, &o.Breakdown.Total,
		&method, &paymentStatus, &state,
		&reference, &o.CODAmount, &o.TrackingNumber, &eta, &o.Notes,
		&o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}

	if o.Items, err = unmarshalItems(items); err != nil {
		return o, err
	}
	if o.ShippingAddress, err = unmarshalAddress(addr); err != nil {
		return o, err
	}
	o.PaymentMethod = payment.Method(method)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(state)
	o.EstimatedDelivery = eta
	if reference != nil {
		o.PaymentReference = *reference
	}
	return o, nil
}
