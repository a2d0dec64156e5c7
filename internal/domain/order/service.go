package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Service exposes order queries and administrative status updates.
type Service struct {
	orders Repository
	now    func() time.Time
}

// NewService creates a Service over orders.
func NewService(orders Repository) *Service {
	return &Service{orders: orders, now: time.Now}
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListByUser returns the user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// List returns a filtered page of all orders.
func (s *Service) List(ctx context.Context, f Filter) ([]Order, Pagination, error) {
	f = f.Normalize()
	list, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, Pagination{}, errors.Wrap(err, "list orders")
	}
	return list, NewPagination(f, total), nil
}

// UpdateStatus applies u to the order identified by id.
func (s *Service) UpdateStatus(ctx context.Context, id string, u StatusUpdate) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errors.Wrapf(ErrInvalidReference, "order %s", id)
		}
		return nil, errors.Wrap(err, "get order")
	}

	from, paid := o.Status, o.PaymentStatus
	if err := o.Apply(u, s.now()); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, o, from); err != nil {
		return nil, errors.Wrap(err, "update order status")
	}

	lg := zctx.From(ctx).With(zap.String("order_id", o.ID), zap.String("order_number", o.Number))
	if from != o.Status {
		lg.Info("Order status changed", zap.String("from", string(from)), zap.String("to", string(o.Status)))
	}
	if paid != o.PaymentStatus {
		lg.Info("Payment collected on delivery", zap.String("payment_status", string(o.PaymentStatus)))
	}
	return o, nil
}
