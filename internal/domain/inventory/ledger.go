package inventory

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/luxe-store/internal/domain/product"
)

// DefaultMaxAttempts bounds the optimistic retry loop per reservation.
const DefaultMaxAttempts = 16

// Request asks for quantity units of the referenced product.
type Request struct {
	Ref      product.Reference
	Title    string
	Quantity int
}

// Reservation records what a successful Reserve did, so it can be undone.
type Reservation struct {
	Ref      product.Reference
	Quantity int
	// Applied is true when stock was actually decremented.
	Applied bool
	// Backordered is true when Backorder mode accepted a short reservation.
	Backordered bool
}

// Ledger is the only mutator of stock.
type Ledger struct {
	repo        Repository
	maxAttempts int
}

// NewLedger creates a Ledger backed by repo.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, maxAttempts: DefaultMaxAttempts}
}

// Reserve atomically checks and decrements stock for a managed product.
// External references succeed without effect.
func (l *Ledger) Reserve(ctx context.Context, req Request, mode Mode) (Reservation, error) {
	res := Reservation{Ref: req.Ref, Quantity: req.Quantity}
	if !req.Ref.IsManaged() {
		zctx.From(ctx).Info("Skipping stock reservation for unmanaged product",
			zap.String("product", req.Ref.ID()),
			zap.Int("quantity", req.Quantity),
		)
		return res, nil
	}

	var last *Record
	for range l.maxAttempts {
		rec, err := l.repo.Get(ctx, req.Ref.ID())
		if err != nil {
			return res, errors.Wrapf(err, "get stock %s", req.Ref.ID())
		}
		last = rec

		if rec.Stock < req.Quantity {
			if mode == Backorder {
				zctx.From(ctx).Warn("Accepting backordered reservation",
					zap.String("product", req.Ref.ID()),
					zap.Int("requested", req.Quantity),
					zap.Int("available", rec.Stock),
				)
				res.Backordered = true
				return res, nil
			}
			return res, &InsufficientStockError{
				ProductID: req.Ref.ID(),
				Title:     req.Title,
				Requested: req.Quantity,
				Available: rec.Stock,
			}
		}

		err = l.repo.CompareAndSwap(ctx, rec.ProductID, rec.Version, rec.Stock-req.Quantity)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return res, errors.Wrapf(err, "decrement stock %s", req.Ref.ID())
		}
		res.Applied = true
		return res, nil
	}

	available := 0
	if last != nil {
		available = last.Stock
	}
	return res, &InsufficientStockError{
		ProductID: req.Ref.ID(),
		Title:     req.Title,
		Requested: req.Quantity,
		Available: available,
		Contended: true,
	}
}

// Release returns the stock taken by r. It is a no-op for reservations that
// did not decrement anything.
func (l *Ledger) Release(ctx context.Context, r Reservation) error {
	if !r.Applied {
		return nil
	}
	for range l.maxAttempts {
		rec, err := l.repo.Get(ctx, r.Ref.ID())
		if err != nil {
			return errors.Wrapf(err, "get stock %s", r.Ref.ID())
		}
		err = l.repo.CompareAndSwap(ctx, rec.ProductID, rec.Version, rec.Stock+r.Quantity)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "restore stock %s", r.Ref.ID())
		}
		return nil
	}
	return errors.Errorf("restore stock %s: retries exhausted", r.Ref.ID())
}

// Check verifies that a reservation would currently succeed without
// mutating anything.
func (l *Ledger) Check(ctx context.Context, req Request) error {
	if !req.Ref.IsManaged() {
		return nil
	}
	rec, err := l.repo.Get(ctx, req.Ref.ID())
	if err != nil {
		return errors.Wrapf(err, "get stock %s", req.Ref.ID())
	}
	if rec.Stock < req.Quantity {
		return &InsufficientStockError{
			ProductID: req.Ref.ID(),
			Title:     req.Title,
			Requested: req.Quantity,
			Available: rec.Stock,
		}
	}
	return nil
}

// Reservations is the ordered result of ReserveAll.
type Reservations []Reservation

// Backordered reports whether the reservation at index i was backordered.
func (rs Reservations) Backordered(i int) bool {
	return i < len(rs) && rs[i].Backordered
}

// ReserveAll reserves every request in order. If any reservation fails, the
// ones already applied are released before the error is returned.
func (l *Ledger) ReserveAll(ctx context.Context, reqs []Request, mode Mode) (Reservations, error) {
	out := make(Reservations, 0, len(reqs))
	for _, req := range reqs {
		r, err := l.Reserve(ctx, req, mode)
		if err != nil {
			l.ReleaseAll(ctx, out)
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// ReleaseAll releases reservations in reverse order, logging failures. It
// detaches from ctx cancellation so a compensation started because of a
// timeout still runs.
func (l *Ledger) ReleaseAll(ctx context.Context, rs Reservations) {
	ctx = context.WithoutCancel(ctx)
	lg := zctx.From(ctx)
	for i := len(rs) - 1; i >= 0; i-- {
		r := rs[i]
		if !r.Applied {
			continue
		}
		if err := l.Release(ctx, r); err != nil {
			lg.Error("Failed to release reserved stock",
				zap.String("product", r.Ref.ID()),
				zap.Int("quantity", r.Quantity),
				zap.Error(err),
			)
			continue
		}
		lg.Warn("Released reserved stock",
			zap.String("product", r.Ref.ID()),
			zap.Int("quantity", r.Quantity),
		)
	}
}
