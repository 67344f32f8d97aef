package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/keelbooks/keelbooks/internal/shared"
)

// memVendor, memProduct and memOrder mirror the collaborator rows the
// billing transactions touch.
type memVendor struct {
	companyID int64
	balance   float64
}

type memProduct struct {
	companyID     int64
	quantityOnHand float64
	costPrice     float64
}

type memOrder struct {
	companyID int64
	billID    *int64
}

type ledgerEntry struct {
	vendorID int64
	delta    float64
	reason   string
	refType  string
	refID    int64
}

type memoryRepo struct {
	bills        map[int64]Bill
	items        map[int64][]BillItem
	payments     map[int64][]BillPayment
	vendors      map[int64]memVendor
	products     map[int64]memProduct
	orders       map[int64]memOrder
	receipts     map[int64]StockReceiptOrder
	receiptLines map[int64][]StockReceiptLine
	ledger       []ledgerEntry

	nextBillID    int64
	nextItemID    int64
	nextPaymentID int64
	nextReceiptID int64
	nextLineID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		bills:        make(map[int64]Bill),
		items:        make(map[int64][]BillItem),
		payments:     make(map[int64][]BillPayment),
		vendors:      make(map[int64]memVendor),
		products:     make(map[int64]memProduct),
		orders:       make(map[int64]memOrder),
		receipts:     make(map[int64]StockReceiptOrder),
		receiptLines: make(map[int64][]StockReceiptLine),
	}
}

func (r *memoryRepo) clone() *memoryRepo {
	c := newMemoryRepo()
	for k, v := range r.bills {
		c.bills[k] = v
	}
	for k, v := range r.items {
		c.items[k] = append([]BillItem(nil), v...)
	}
	for k, v := range r.payments {
		c.payments[k] = append([]BillPayment(nil), v...)
	}
	for k, v := range r.vendors {
		c.vendors[k] = v
	}
	for k, v := range r.products {
		c.products[k] = v
	}
	for k, v := range r.orders {
		c.orders[k] = v
	}
	for k, v := range r.receipts {
		c.receipts[k] = v
	}
	for k, v := range r.receiptLines {
		c.receiptLines[k] = append([]StockReceiptLine(nil), v...)
	}
	c.ledger = append([]ledgerEntry(nil), r.ledger...)
	c.nextBillID = r.nextBillID
	c.nextItemID = r.nextItemID
	c.nextPaymentID = r.nextPaymentID
	c.nextReceiptID = r.nextReceiptID
	c.nextLineID = r.nextLineID
	return c
}

// WithTx restores the snapshot on error so rollback semantics hold.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := r.clone()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		*r = *snap
		return err
	}
	return nil
}

func (r *memoryRepo) GetBill(ctx context.Context, companyID, billID int64) (Bill, error) {
	b, ok := r.bills[billID]
	if !ok || b.CompanyID != companyID {
		return Bill{}, shared.NotFoundf("bill not found")
	}
	return b, nil
}

func (r *memoryRepo) ListBillItems(ctx context.Context, billID int64) ([]BillItem, error) {
	return append([]BillItem(nil), r.items[billID]...), nil
}

func (r *memoryRepo) ListBillPayments(ctx context.Context, billID int64) ([]BillPayment, error) {
	return append([]BillPayment(nil), r.payments[billID]...), nil
}

func (t *memoryTx) GetBillForUpdate(ctx context.Context, companyID, billID int64) (Bill, error) {
	return t.repo.GetBill(ctx, companyID, billID)
}

func (t *memoryTx) GetVendorBillForUpdate(ctx context.Context, companyID, vendorID, billID int64) (Bill, error) {
	b, err := t.repo.GetBill(ctx, companyID, billID)
	if err != nil {
		return Bill{}, err
	}
	if b.VendorID != vendorID {
		return Bill{}, shared.NotFoundf("bill not found")
	}
	return b, nil
}

func (t *memoryTx) ListBillsByVendor(ctx context.Context, companyID, vendorID int64) ([]Bill, error) {
	var out []Bill
	for _, b := range t.repo.bills {
		if b.CompanyID == companyID && b.VendorID == vendorID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memoryTx) InsertBill(ctx context.Context, bill Bill) (int64, error) {
	for _, existing := range t.repo.bills {
		if existing.CompanyID == bill.CompanyID && existing.BillNumber == bill.BillNumber {
			return 0, shared.Conflictf("bill number already exists for company")
		}
	}
	t.repo.nextBillID++
	bill.ID = t.repo.nextBillID
	bill.Version = 1
	bill.CreatedAt = time.Now()
	bill.UpdatedAt = bill.CreatedAt
	t.repo.bills[bill.ID] = bill
	return bill.ID, nil
}

func (t *memoryTx) UpdateBillHeader(ctx context.Context, bill Bill) error {
	existing, ok := t.repo.bills[bill.ID]
	if !ok || existing.CompanyID != bill.CompanyID {
		return shared.NotFoundf("bill not found")
	}
	if existing.Version != bill.Version {
		return shared.Conflictf("stale bill: version %d no longer current", bill.Version)
	}
	existing.BillDate = bill.BillDate
	existing.DueDate = bill.DueDate
	existing.EmployeeID = bill.EmployeeID
	existing.PaymentMethodID = bill.PaymentMethodID
	existing.Notes = bill.Notes
	existing.TotalAmount = bill.TotalAmount
	existing.BalanceDue = bill.BalanceDue
	existing.Status = bill.Status
	existing.Version++
	existing.UpdatedAt = time.Now()
	t.repo.bills[bill.ID] = existing
	return nil
}

func (t *memoryTx) UpdateBillPaymentState(ctx context.Context, billID int64, paidAmount, balanceDue float64, status BillStatus) error {
	b, ok := t.repo.bills[billID]
	if !ok {
		return shared.NotFoundf("bill not found")
	}
	b.PaidAmount = paidAmount
	b.BalanceDue = balanceDue
	b.Status = status
	b.UpdatedAt = time.Now()
	t.repo.bills[billID] = b
	return nil
}

func (t *memoryTx) SetBillStatus(ctx context.Context, billID int64, status BillStatus) error {
	b, ok := t.repo.bills[billID]
	if !ok {
		return shared.NotFoundf("bill not found")
	}
	b.Status = status
	b.UpdatedAt = time.Now()
	t.repo.bills[billID] = b
	return nil
}

func (t *memoryTx) MarkBillsOverdue(ctx context.Context, now time.Time) (int64, error) {
	var flipped int64
	for id, b := range t.repo.bills {
		if b.Status != StatusOpened && b.Status != StatusPartiallyPaid {
			continue
		}
		if b.DueDate == nil || !b.DueDate.Before(now) || b.BalanceDue <= amountTolerance {
			continue
		}
		b.Status = StatusOverdue
		t.repo.bills[id] = b
		flipped++
	}
	return flipped, nil
}

func (t *memoryTx) ListBillItems(ctx context.Context, billID int64) ([]BillItem, error) {
	return t.repo.ListBillItems(ctx, billID)
}

func (t *memoryTx) DeleteBillItems(ctx context.Context, billID int64) error {
	delete(t.repo.items, billID)
	return nil
}

func (t *memoryTx) InsertBillItem(ctx context.Context, item BillItem) (int64, error) {
	t.repo.nextItemID++
	item.ID = t.repo.nextItemID
	item.CreatedAt = time.Now()
	t.repo.items[item.BillID] = append(t.repo.items[item.BillID], item)
	return item.ID, nil
}

func (t *memoryTx) InsertBillPayment(ctx context.Context, payment BillPayment) (int64, error) {
	t.repo.nextPaymentID++
	payment.ID = t.repo.nextPaymentID
	payment.CreatedAt = time.Now()
	t.repo.payments[payment.BillID] = append(t.repo.payments[payment.BillID], payment)
	return payment.ID, nil
}

func (t *memoryTx) LinkOrderToBill(ctx context.Context, companyID, orderID, billID int64) error {
	order, ok := t.repo.orders[orderID]
	if !ok || order.companyID != companyID {
		return shared.NotFoundf("order not found")
	}
	if order.billID != nil {
		return shared.Conflictf("order %d already converted to a bill", orderID)
	}
	order.billID = &billID
	t.repo.orders[orderID] = order
	return nil
}

func (t *memoryTx) AdjustVendorBalance(ctx context.Context, companyID, vendorID int64, delta float64, reason, refType string, refID int64) error {
	v, ok := t.repo.vendors[vendorID]
	if !ok || v.companyID != companyID {
		return shared.NotFoundf("vendor not found")
	}
	v.balance += delta
	t.repo.vendors[vendorID] = v
	t.repo.ledger = append(t.repo.ledger, ledgerEntry{
		vendorID: vendorID, delta: delta, reason: reason, refType: refType, refID: refID,
	})
	return nil
}

func (t *memoryTx) AdjustProductStock(ctx context.Context, companyID, productID int64, qtyDelta float64, costPrice *float64) error {
	p, ok := t.repo.products[productID]
	if !ok || p.companyID != companyID {
		return shared.NotFoundf("product not found")
	}
	p.quantityOnHand += qtyDelta
	if costPrice != nil {
		p.costPrice = *costPrice
	}
	t.repo.products[productID] = p
	return nil
}

func (t *memoryTx) InsertReceiptOrder(ctx context.Context, order StockReceiptOrder) (int64, error) {
	for _, existing := range t.repo.receipts {
		if existing.OrderNumber == order.OrderNumber {
			return 0, shared.Conflictf("receipt order already exists for bill")
		}
	}
	t.repo.nextReceiptID++
	order.ID = t.repo.nextReceiptID
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	t.repo.receipts[order.ID] = order
	return order.ID, nil
}

func (t *memoryTx) SetBillReceiptOrder(ctx context.Context, billID, receiptOrderID int64) error {
	b, ok := t.repo.bills[billID]
	if !ok {
		return shared.NotFoundf("bill not found")
	}
	b.StockReceiptOrderID = &receiptOrderID
	t.repo.bills[billID] = b
	return nil
}

func (t *memoryTx) FindReceiptOrderIDByBill(ctx context.Context, billID int64) (int64, error) {
	number := ReceiptNumberForBill(billID)
	for id, order := range t.repo.receipts {
		if order.BillID == billID || order.OrderNumber == number {
			return id, nil
		}
	}
	return 0, shared.NotFoundf("receipt order not found")
}

func (t *memoryTx) InsertReceiptLine(ctx context.Context, line StockReceiptLine) error {
	t.repo.nextLineID++
	line.ID = t.repo.nextLineID
	line.CreatedAt = time.Now()
	t.repo.receiptLines[line.ReceiptOrderID] = append(t.repo.receiptLines[line.ReceiptOrderID], line)
	return nil
}

func (t *memoryTx) DeleteReceiptLines(ctx context.Context, receiptOrderID int64) error {
	delete(t.repo.receiptLines, receiptOrderID)
	return nil
}

func (t *memoryTx) UpdateReceiptOrderTotal(ctx context.Context, receiptOrderID int64, total float64) error {
	order, ok := t.repo.receipts[receiptOrderID]
	if !ok {
		return shared.NotFoundf("receipt order not found")
	}
	order.TotalAmount = total
	order.UpdatedAt = time.Now()
	t.repo.receipts[receiptOrderID] = order
	return nil
}

// seed helpers

func (r *memoryRepo) seedVendor(id, companyID int64) {
	r.vendors[id] = memVendor{companyID: companyID}
}

func (r *memoryRepo) seedProduct(id, companyID int64, qty, cost float64) {
	r.products[id] = memProduct{companyID: companyID, quantityOnHand: qty, costPrice: cost}
}

func (r *memoryRepo) seedOrder(id, companyID int64) {
	r.orders[id] = memOrder{companyID: companyID}
}

func (r *memoryRepo) vendorLedger(vendorID int64) []ledgerEntry {
	var out []ledgerEntry
	for _, e := range r.ledger {
		if e.vendorID == vendorID {
			out = append(out, e)
		}
	}
	return out
}

func (r *memoryRepo) totalPayments() int {
	n := 0
	for _, p := range r.payments {
		n += len(p)
	}
	return n
}

func (r *memoryRepo) receiptForBill(billID int64) (StockReceiptOrder, []StockReceiptLine, error) {
	for id, order := range r.receipts {
		if order.BillID == billID {
			return order, r.receiptLines[id], nil
		}
	}
	return StockReceiptOrder{}, nil, fmt.Errorf("no receipt for bill %d", billID)
}
