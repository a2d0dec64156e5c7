package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/luxe-store/internal/domain/checkout"
)

const (
	saveQuoteSQL = `INSERT INTO payment_quotes (reference, user_id, items, shipping_address,
		subtotal, tax, shipping, total, amount_minor, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (reference) DO UPDATE
		SET user_id = EXCLUDED.user_id, items = EXCLUDED.items,
			shipping_address = EXCLUDED.shipping_address, subtotal = EXCLUDED.subtotal,
			tax = EXCLUDED.tax, shipping = EXCLUDED.shipping, total = EXCLUDED.total,
			amount_minor = EXCLUDED.amount_minor, currency = EXCLUDED.currency
		RETURNING created_at`

	getQuoteSQL = `SELECT reference, user_id, items, shipping_address,
		subtotal, tax, shipping, total, amount_minor, currency, created_at
		FROM payment_quotes WHERE reference = $1`
)

var _ checkout.QuoteRepository = (*QuoteRepository)(nil)

// QuoteRepository stores payment quotes in PostgreSQL.
type QuoteRepository struct {
	pool *pgxpool.Pool
}

// NewQuoteRepository returns a QuoteRepository that uses the given pool.
func NewQuoteRepository(pool *pgxpool.Pool) *QuoteRepository {
	return &QuoteRepository{pool: pool}
}

// Save upserts q by reference.
func (r *QuoteRepository) Save(ctx context.Context, q *checkout.Quote) error {
	items, err := marshalItems(q.Items)
	if err != nil {
		return err
	}
	addr, err := marshalAddress(q.ShippingAddress)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, saveQuoteSQL,
		q.Reference, q.UserID, items, addr,
		q.Breakdown.Subtotal, q.Breakdown.Tax, q.Breakdown.Shipping, q.Breakdown.Total,
		q.AmountMinor, q.Currency,
	).Scan(&q.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving quote %q: %w", q.Reference, err)
	}
	return nil
}

// Get returns the quote for reference.
func (r *QuoteRepository) Get(ctx context.Context, reference string) (*checkout.Quote, error) {
	var (
		q           checkout.Quote
		items, addr []byte
	)
	err := r.pool.QueryRow(ctx, getQuoteSQL, reference).Scan(
		&q.Reference, &q.UserID, &items, &addr,
		&q.Breakdown.Subtotal, &q.Breakdown.Tax, &q.Breakdown.Shipping, &q.Breakdown.Total,
		&q.AmountMinor, &q.Currency, &q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkout.ErrQuoteNotFound
		}
		return nil, fmt.Errorf("getting quote %q: %w", reference, err)
	}
	if q.Items, err = unmarshalItems(items); err != nil {
		return nil, err
	}
	if q.ShippingAddress, err = unmarshalAddress(addr); err != nil {
		return nil, err
	}
	return &q, nil
}
