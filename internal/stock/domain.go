package stock

import "time"

// Lot is a receipt line viewed as a consumable FIFO lot: quantity at
// cost, consumed oldest-first by the invoicing subsystem.
type Lot struct {
	ID             int64     `json:"id"`
	ReceiptOrderID int64     `json:"receipt_order_id"`
	ProductID      int64     `json:"product_id"`
	Quantity       float64   `json:"quantity"`
	UnitCost       float64   `json:"unit_cost"`
	RemainingQty   float64   `json:"remaining_qty"`
	StockStatus    string    `json:"stock_status"`
	ReceivedAt     time.Time `json:"received_at"`
}
