package billing

import (
	"time"
)

// BillStatus enumerates bill lifecycle statuses.
type BillStatus string

const (
	StatusOpened        BillStatus = "opened"
	StatusPartiallyPaid BillStatus = "partially_paid"
	StatusPaid          BillStatus = "paid"
	StatusOverdue       BillStatus = "overdue"
	StatusCancelled     BillStatus = "cancelled"
	StatusProforma      BillStatus = "proforma"
)

// Stock receipt constants.
const (
	ReceiptStatusClosed   = "closed"
	StockStatusInStock    = "in_stock"
	StockStatusOutOfStock = "out_of_stock"
)

// Vendor balance ledger reasons and reference types.
const (
	ReasonBillCreated = "bill_created"
	ReasonBillUpdated = "bill_updated"
	ReasonBillPrepaid = "bill_prepaid"
	ReasonPayment     = "payment"

	RefTypeBill    = "bill"
	RefTypePayment = "bill_payment"
)

// Bill is a payable obligation to a vendor. balance_due equals
// total_amount minus paid_amount after every mutation.
type Bill struct {
	ID                  int64
	CompanyID           int64
	VendorID            int64
	OrderID             *int64
	EmployeeID          *int64
	BillNumber          string
	BillDate            *time.Time
	DueDate             *time.Time
	PaymentMethodID     *int64
	TotalAmount         float64
	PaidAmount          float64
	BalanceDue          float64
	Status              BillStatus
	StockReceiptOrderID *int64
	Notes               string
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// BillItem is a line on a bill. UnitPrice is tax-exclusive, TotalPrice
// tax-inclusive. Items are fully replaced on every bill update.
type BillItem struct {
	ID          int64
	BillID      int64
	ProductID   *int64
	Description string
	Quantity    float64
	UnitPrice   float64
	TaxRate     float64
	TaxAmount   float64
	TotalPrice  float64
	CreatedAt   time.Time
}

// BillPayment is an immutable fragment of a payment applied to one bill.
type BillPayment struct {
	ID              int64
	BillID          int64
	CompanyID       int64
	VendorID        int64
	Amount          float64
	PaymentDate     time.Time
	PaymentMethodID *int64
	DepositTo       *int64
	Notes           string
	CreatedAt       time.Time
}

// StockReceiptOrder is the synthetic, auto-closed goods receipt created
// per bill so that inventory consumption can apply FIFO costing.
type StockReceiptOrder struct {
	ID          int64
	CompanyID   int64
	VendorID    int64
	BillID      int64
	OrderNumber string
	Status      string
	TotalAmount float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StockReceiptLine is a FIFO lot: quantity at cost, consumed oldest-first.
type StockReceiptLine struct {
	ID             int64
	ReceiptOrderID int64
	ProductID      int64
	Quantity       float64
	UnitCost       float64
	RemainingQty   float64
	StockStatus    string
	CreatedAt      time.Time
}

// BillWithDetails bundles a bill with its lines and payment history.
type BillWithDetails struct {
	Bill
	Items    []BillItem
	Payments []BillPayment
}

// --- Input DTOs ---

// BillItemInput carries raw line data; totals are always recalculated
// server-side, client-supplied amounts are never trusted.
type BillItemInput struct {
	ProductID   *int64
	Description string
	Quantity    float64
	UnitPrice   float64
	TaxRate     float64
}

// CreateBillInput for creating bills.
type CreateBillInput struct {
	CompanyID       int64
	VendorID        int64
	OrderID         *int64
	EmployeeID      *int64
	BillNumber      string
	BillDate        *time.Time
	DueDate         *time.Time
	PaymentMethodID *int64
	MarkAsPaid      bool
	Notes           string
	Items           []BillItemInput
}

// CreateBillResult identifies the created bill.
type CreateBillResult struct {
	BillID     int64
	BillNumber string
}

// UpdateBillInput replaces a bill's header fields and its full item set.
// Version must match the stored row or the update fails as stale.
type UpdateBillInput struct {
	CompanyID       int64
	BillID          int64
	Version         int64
	BillDate        *time.Time
	DueDate         *time.Time
	EmployeeID      *int64
	PaymentMethodID *int64
	Notes           string
	Items           []BillItemInput
}

// BillAllocationInput applies part of a payment to one bill.
type BillAllocationInput struct {
	BillID int64
	Amount float64
}

// RecordPaymentInput distributes one incoming payment across bills.
type RecordPaymentInput struct {
	CompanyID       int64
	VendorID        int64
	Amount          float64
	PaymentDate     time.Time
	PaymentMethodID *int64
	DepositTo       *int64
	Notes           string
	Allocations     []BillAllocationInput
}
