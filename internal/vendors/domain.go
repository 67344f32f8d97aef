package vendors

import "time"

// Vendor holds the cached running payable balance.
type Vendor struct {
	ID        int64
	CompanyID int64
	Name      string
	Balance   float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BalanceEntry is one append-only mutation of a vendor's balance.
// Entries are written by the billing transaction that moves the
// balance; the cached total is always the sum of its entries.
type BalanceEntry struct {
	ID        int64
	VendorID  int64
	CompanyID int64
	Delta     float64
	Reason    string
	RefType   string
	RefID     int64
	CreatedAt time.Time
}

// OutstandingSummary aggregates a vendor's open payable position.
type OutstandingSummary struct {
	VendorID     int64     `json:"vendor_id"`
	Balance      float64   `json:"balance"`
	OpenBills    int64     `json:"open_bills"`
	OverdueBills int64     `json:"overdue_bills"`
	AsOf         time.Time `json:"as_of"`
}
