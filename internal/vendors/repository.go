package vendors

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keelbooks/keelbooks/internal/billing"
	"github.com/keelbooks/keelbooks/internal/shared"
)

// Repository defines vendor read access.
type Repository interface {
	GetVendor(ctx context.Context, companyID, vendorID int64) (Vendor, error)
	ListBalanceEntries(ctx context.Context, companyID, vendorID int64, limit int) ([]BalanceEntry, error)
	SumBalanceEntries(ctx context.Context, companyID, vendorID int64) (float64, error)
	OutstandingSummary(ctx context.Context, companyID, vendorID int64, asOf time.Time) (OutstandingSummary, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) GetVendor(ctx context.Context, companyID, vendorID int64) (Vendor, error) {
	var v Vendor
	err := r.pool.QueryRow(ctx, `SELECT id, company_id, name, balance, created_at, updated_at
FROM vendors WHERE id = $1 AND company_id = $2`, vendorID, companyID).
		Scan(&v.ID, &v.CompanyID, &v.Name, &v.Balance, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vendor{}, shared.NotFoundf("vendor not found")
	}
	return v, err
}

func (r *pgRepository) ListBalanceEntries(ctx context.Context, companyID, vendorID int64, limit int) ([]BalanceEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, vendor_id, company_id, delta, reason, ref_type, ref_id, created_at
FROM vendor_balance_entries WHERE vendor_id = $1 AND company_id = $2 ORDER BY id DESC LIMIT $3`,
		vendorID, companyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []BalanceEntry
	for rows.Next() {
		var e BalanceEntry
		if err := rows.Scan(&e.ID, &e.VendorID, &e.CompanyID, &e.Delta, &e.Reason, &e.RefType, &e.RefID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *pgRepository) SumBalanceEntries(ctx context.Context, companyID, vendorID int64) (float64, error) {
	var sum float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(delta), 0) FROM vendor_balance_entries
WHERE vendor_id = $1 AND company_id = $2`, vendorID, companyID).Scan(&sum)
	return sum, err
}

func (r *pgRepository) OutstandingSummary(ctx context.Context, companyID, vendorID int64, asOf time.Time) (OutstandingSummary, error) {
	vendor, err := r.GetVendor(ctx, companyID, vendorID)
	if err != nil {
		return OutstandingSummary{}, err
	}
	var open, overdue int64
	err = r.pool.QueryRow(ctx, `SELECT
COUNT(*) FILTER (WHERE status IN ($3, $4, $5)),
COUNT(*) FILTER (WHERE status = $5)
FROM bills WHERE vendor_id = $1 AND company_id = $2`,
		vendorID, companyID, billing.StatusOpened, billing.StatusPartiallyPaid, billing.StatusOverdue).
		Scan(&open, &overdue)
	if err != nil {
		return OutstandingSummary{}, err
	}
	return OutstandingSummary{
		VendorID:     vendorID,
		Balance:      vendor.Balance,
		OpenBills:    open,
		OverdueBills: overdue,
		AsOf:         asOf,
	}, nil
}
