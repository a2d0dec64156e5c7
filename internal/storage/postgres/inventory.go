package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/luxe-store/internal/domain/inventory"
)

const (
	getStockSQL = `SELECT product_id, stock, version FROM inventory WHERE product_id = $1`

	// The version predicate makes the write a compare-and-swap; stock is
	// additionally guarded by the CHECK (stock >= 0) constraint.
	casStockSQL = `UPDATE inventory
		SET stock = $3, version = version + 1, updated_at = now()
		WHERE product_id = $1 AND version = $2`

	setStockSQL = `INSERT INTO inventory (product_id, stock) VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE
		SET stock = EXCLUDED.stock, version = inventory.version + 1, updated_at = now()`
)

var _ inventory.Repository = (*InventoryRepository)(nil)

// InventoryRepository implements inventory.Repository backed by PostgreSQL.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository returns an InventoryRepository that uses the given pool.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// Get returns the current stock record.
func (r *InventoryRepository) Get(ctx context.Context, productID string) (*inventory.Record, error) {
	var rec inventory.Record
	err := r.pool.QueryRow(ctx, getStockSQL, productID).Scan(&rec.ProductID, &rec.Stock, &rec.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting stock %q: %w", productID, err)
	}
	return &rec, nil
}

// CompareAndSwap writes stock if the row is still at version.
func (r *InventoryRepository) CompareAndSwap(ctx context.Context, productID string, version int64, stock int) error {
	tag, err := r.pool.Exec(ctx, casStockSQL, productID, version, stock)
	if err != nil {
		return fmt.Errorf("updating stock %q: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrVersionConflict
	}
	return nil
}

// Set overwrites the stock level, creating the record if needed.
func (r *InventoryRepository) Set(ctx context.Context, productID string, stock int) error {
	if _, err := r.pool.Exec(ctx, setStockSQL, productID, stock); err != nil {
		return fmt.Errorf("setting stock %q: %w", productID, err)
	}
	return nil
}
