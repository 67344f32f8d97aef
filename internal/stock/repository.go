package stock

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keelbooks/keelbooks/internal/billing"
)

// Repository defines lot read access.
type Repository interface {
	ListOpenLots(ctx context.Context, companyID, productID int64) ([]Lot, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// ListOpenLots returns available lots for a product, oldest first.
// This ordering is the FIFO consumption contract for invoicing.
func (r *pgRepository) ListOpenLots(ctx context.Context, companyID, productID int64) ([]Lot, error) {
	rows, err := r.pool.Query(ctx, `SELECT l.id, l.receipt_order_id, l.product_id, l.quantity, l.unit_cost,
l.remaining_qty, l.stock_status, l.created_at
FROM stock_receipt_lines l
JOIN stock_receipt_orders o ON o.id = l.receipt_order_id
WHERE o.company_id = $1 AND l.product_id = $2 AND l.stock_status = $3 AND l.remaining_qty > 0
ORDER BY l.created_at, l.id`, companyID, productID, billing.StockStatusInStock)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lots []Lot
	for rows.Next() {
		var lot Lot
		if err := rows.Scan(&lot.ID, &lot.ReceiptOrderID, &lot.ProductID, &lot.Quantity, &lot.UnitCost,
			&lot.RemainingQty, &lot.StockStatus, &lot.ReceivedAt); err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}
