package billing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keelbooks/keelbooks/internal/shared"
)

// Repository defines billing data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetBill(ctx context.Context, companyID, billID int64) (Bill, error)
	ListBillItems(ctx context.Context, billID int64) ([]BillItem, error)
	ListBillPayments(ctx context.Context, billID int64) ([]BillPayment, error)
}

// TxRepository defines operations inside a single transaction. Every
// public operation acquires exactly one transaction; commit on nil,
// full rollback on any error.
type TxRepository interface {
	GetBillForUpdate(ctx context.Context, companyID, billID int64) (Bill, error)
	GetVendorBillForUpdate(ctx context.Context, companyID, vendorID, billID int64) (Bill, error)
	ListBillsByVendor(ctx context.Context, companyID, vendorID int64) ([]Bill, error)
	InsertBill(ctx context.Context, bill Bill) (int64, error)
	UpdateBillHeader(ctx context.Context, bill Bill) error
	UpdateBillPaymentState(ctx context.Context, billID int64, paidAmount, balanceDue float64, status BillStatus) error
	SetBillStatus(ctx context.Context, billID int64, status BillStatus) error
	MarkBillsOverdue(ctx context.Context, now time.Time) (int64, error)

	ListBillItems(ctx context.Context, billID int64) ([]BillItem, error)
	DeleteBillItems(ctx context.Context, billID int64) error
	InsertBillItem(ctx context.Context, item BillItem) (int64, error)

	InsertBillPayment(ctx context.Context, payment BillPayment) (int64, error)

	LinkOrderToBill(ctx context.Context, companyID, orderID, billID int64) error
	AdjustVendorBalance(ctx context.Context, companyID, vendorID int64, delta float64, reason, refType string, refID int64) error
	AdjustProductStock(ctx context.Context, companyID, productID int64, qtyDelta float64, costPrice *float64) error

	InsertReceiptOrder(ctx context.Context, order StockReceiptOrder) (int64, error)
	SetBillReceiptOrder(ctx context.Context, billID, receiptOrderID int64) error
	FindReceiptOrderIDByBill(ctx context.Context, billID int64) (int64, error)
	InsertReceiptLine(ctx context.Context, line StockReceiptLine) error
	DeleteReceiptLines(ctx context.Context, receiptOrderID int64) error
	UpdateReceiptOrderTotal(ctx context.Context, receiptOrderID int64, total float64) error
}

var _ Repository = (*pgRepository)(nil)
var _ TxRepository = (*pgTxRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &pgTxRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const billColumns = `id, company_id, vendor_id, order_id, employee_id, bill_number, bill_date, due_date,
payment_method_id, total_amount, paid_amount, balance_due, status, stock_receipt_order_id, notes, version,
created_at, updated_at`

func scanBill(row pgx.Row) (Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.CompanyID, &b.VendorID, &b.OrderID, &b.EmployeeID, &b.BillNumber,
		&b.BillDate, &b.DueDate, &b.PaymentMethodID, &b.TotalAmount, &b.PaidAmount, &b.BalanceDue,
		&b.Status, &b.StockReceiptOrderID, &b.Notes, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, shared.NotFoundf("bill not found")
	}
	return b, err
}

func (r *pgRepository) GetBill(ctx context.Context, companyID, billID int64) (Bill, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1 AND company_id = $2`, billID, companyID)
	return scanBill(row)
}

func (r *pgRepository) ListBillItems(ctx context.Context, billID int64) ([]BillItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, bill_id, product_id, description, quantity, unit_price, tax_rate, tax_amount, total_price, created_at
FROM bill_items WHERE bill_id = $1 ORDER BY id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBillItems(rows)
}

func (r *pgRepository) ListBillPayments(ctx context.Context, billID int64) ([]BillPayment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, bill_id, company_id, vendor_id, amount, payment_date, payment_method_id, deposit_to, notes, created_at
FROM bill_payments WHERE bill_id = $1 ORDER BY id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []BillPayment
	for rows.Next() {
		var p BillPayment
		if err := rows.Scan(&p.ID, &p.BillID, &p.CompanyID, &p.VendorID, &p.Amount, &p.PaymentDate,
			&p.PaymentMethodID, &p.DepositTo, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func collectBillItems(rows pgx.Rows) ([]BillItem, error) {
	var items []BillItem
	for rows.Next() {
		var it BillItem
		if err := rows.Scan(&it.ID, &it.BillID, &it.ProductID, &it.Description, &it.Quantity,
			&it.UnitPrice, &it.TaxRate, &it.TaxAmount, &it.TotalPrice, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Transaction repository implementation.

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) GetBillForUpdate(ctx context.Context, companyID, billID int64) (Bill, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1 AND company_id = $2 FOR UPDATE`, billID, companyID)
	return scanBill(row)
}

func (r *pgTxRepository) GetVendorBillForUpdate(ctx context.Context, companyID, vendorID, billID int64) (Bill, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1 AND company_id = $2 AND vendor_id = $3 FOR UPDATE`, billID, companyID, vendorID)
	return scanBill(row)
}

func (r *pgTxRepository) ListBillsByVendor(ctx context.Context, companyID, vendorID int64) ([]Bill, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+billColumns+` FROM bills WHERE company_id = $1 AND vendor_id = $2 ORDER BY id`, companyID, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bills []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (r *pgTxRepository) InsertBill(ctx context.Context, bill Bill) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO bills
(company_id, vendor_id, order_id, employee_id, bill_number, bill_date, due_date, payment_method_id,
 total_amount, paid_amount, balance_due, status, notes, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1, now(), now())
RETURNING id`,
		bill.CompanyID, bill.VendorID, bill.OrderID, bill.EmployeeID, bill.BillNumber, bill.BillDate,
		bill.DueDate, bill.PaymentMethodID, bill.TotalAmount, bill.PaidAmount, bill.BalanceDue,
		bill.Status, bill.Notes).Scan(&id)
	if err != nil {
		return 0, mapUniqueViolation(err, "bill number already exists for company")
	}
	return id, nil
}

// UpdateBillHeader applies header fields with an optimistic version
// check; a stale version surfaces as Conflict.
func (r *pgTxRepository) UpdateBillHeader(ctx context.Context, bill Bill) error {
	tag, err := r.tx.Exec(ctx, `UPDATE bills SET
bill_date = $1, due_date = $2, employee_id = $3, payment_method_id = $4, notes = $5,
total_amount = $6, balance_due = $7, status = $8, version = version + 1, updated_at = now()
WHERE id = $9 AND company_id = $10 AND version = $11`,
		bill.BillDate, bill.DueDate, bill.EmployeeID, bill.PaymentMethodID, bill.Notes,
		bill.TotalAmount, bill.BalanceDue, bill.Status, bill.ID, bill.CompanyID, bill.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bills WHERE id = $1 AND company_id = $2)`, bill.ID, bill.CompanyID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return shared.Conflictf("stale bill: version %d no longer current", bill.Version)
		}
		return shared.NotFoundf("bill not found")
	}
	return nil
}

func (r *pgTxRepository) UpdateBillPaymentState(ctx context.Context, billID int64, paidAmount, balanceDue float64, status BillStatus) error {
	tag, err := r.tx.Exec(ctx, `UPDATE bills SET paid_amount = $1, balance_due = $2, status = $3, updated_at = now() WHERE id = $4`,
		paidAmount, balanceDue, status, billID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("bill not found")
	}
	return nil
}

func (r *pgTxRepository) SetBillStatus(ctx context.Context, billID int64, status BillStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE bills SET status = $1, updated_at = now() WHERE id = $2`, status, billID)
	return err
}

func (r *pgTxRepository) MarkBillsOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE bills SET status = $1, updated_at = now()
WHERE status IN ($2, $3) AND due_date IS NOT NULL AND due_date < $4 AND balance_due > $5`,
		StatusOverdue, StatusOpened, StatusPartiallyPaid, now, amountTolerance)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *pgTxRepository) ListBillItems(ctx context.Context, billID int64) ([]BillItem, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, bill_id, product_id, description, quantity, unit_price, tax_rate, tax_amount, total_price, created_at
FROM bill_items WHERE bill_id = $1 ORDER BY id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBillItems(rows)
}

func (r *pgTxRepository) DeleteBillItems(ctx context.Context, billID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM bill_items WHERE bill_id = $1`, billID)
	return err
}

func (r *pgTxRepository) InsertBillItem(ctx context.Context, item BillItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO bill_items
(bill_id, product_id, description, quantity, unit_price, tax_rate, tax_amount, total_price, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now()) RETURNING id`,
		item.BillID, item.ProductID, item.Description, item.Quantity, item.UnitPrice,
		item.TaxRate, item.TaxAmount, item.TotalPrice).Scan(&id)
	return id, err
}

func (r *pgTxRepository) InsertBillPayment(ctx context.Context, payment BillPayment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO bill_payments
(bill_id, company_id, vendor_id, amount, payment_date, payment_method_id, deposit_to, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now()) RETURNING id`,
		payment.BillID, payment.CompanyID, payment.VendorID, payment.Amount, payment.PaymentDate,
		payment.PaymentMethodID, payment.DepositTo, payment.Notes).Scan(&id)
	return id, err
}

// LinkOrderToBill stamps an order as converted; converting twice is a
// Conflict.
func (r *pgTxRepository) LinkOrderToBill(ctx context.Context, companyID, orderID, billID int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE orders SET bill_id = $1, updated_at = now()
WHERE id = $2 AND company_id = $3 AND bill_id IS NULL`, billID, orderID, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1 AND company_id = $2)`, orderID, companyID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return shared.Conflictf("order %d already converted to a bill", orderID)
		}
		return shared.NotFoundf("order not found")
	}
	return nil
}

// AdjustVendorBalance moves the cached running balance and appends an
// audit ledger entry in the same transaction. A zero delta still
// records the entry.
func (r *pgTxRepository) AdjustVendorBalance(ctx context.Context, companyID, vendorID int64, delta float64, reason, refType string, refID int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE vendors SET balance = balance + $1, updated_at = now() WHERE id = $2 AND company_id = $3`,
		delta, vendorID, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("vendor not found")
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO vendor_balance_entries (vendor_id, company_id, delta, reason, ref_type, ref_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, now())`, vendorID, companyID, delta, reason, refType, refID)
	return err
}

// AdjustProductStock moves on-hand quantity; when costPrice is set the
// product cost is overwritten with the latest receipt cost.
func (r *pgTxRepository) AdjustProductStock(ctx context.Context, companyID, productID int64, qtyDelta float64, costPrice *float64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET quantity_on_hand = quantity_on_hand + $1,
cost_price = COALESCE($2, cost_price), updated_at = now() WHERE id = $3 AND company_id = $4`,
		qtyDelta, costPrice, productID, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("product not found")
	}
	return nil
}

func (r *pgTxRepository) InsertReceiptOrder(ctx context.Context, order StockReceiptOrder) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_receipt_orders
(company_id, vendor_id, bill_id, order_number, status, total_amount, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now()) RETURNING id`,
		order.CompanyID, order.VendorID, order.BillID, order.OrderNumber, order.Status, order.TotalAmount).Scan(&id)
	if err != nil {
		return 0, mapUniqueViolation(err, "receipt order already exists for bill")
	}
	return id, nil
}

func (r *pgTxRepository) SetBillReceiptOrder(ctx context.Context, billID, receiptOrderID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE bills SET stock_receipt_order_id = $1, updated_at = now() WHERE id = $2`, receiptOrderID, billID)
	return err
}

func (r *pgTxRepository) FindReceiptOrderIDByBill(ctx context.Context, billID int64) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `SELECT id FROM stock_receipt_orders WHERE bill_id = $1 OR order_number = $2 ORDER BY id LIMIT 1`,
		billID, ReceiptNumberForBill(billID)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.NotFoundf("receipt order not found")
	}
	return id, err
}

func (r *pgTxRepository) InsertReceiptLine(ctx context.Context, line StockReceiptLine) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_receipt_lines
(receipt_order_id, product_id, quantity, unit_cost, remaining_qty, stock_status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, now())`,
		line.ReceiptOrderID, line.ProductID, line.Quantity, line.UnitCost, line.RemainingQty, line.StockStatus)
	return err
}

func (r *pgTxRepository) DeleteReceiptLines(ctx context.Context, receiptOrderID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM stock_receipt_lines WHERE receipt_order_id = $1`, receiptOrderID)
	return err
}

func (r *pgTxRepository) UpdateReceiptOrderTotal(ctx context.Context, receiptOrderID int64, total float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE stock_receipt_orders SET total_amount = $1, updated_at = now() WHERE id = $2`, total, receiptOrderID)
	return err
}

func mapUniqueViolation(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.Conflictf("%s", msg)
	}
	return err
}
