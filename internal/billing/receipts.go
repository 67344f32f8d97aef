package billing

import (
	"context"
	"fmt"

	"github.com/keelbooks/keelbooks/internal/shared"
)

const receiptNumberPrefix = "BILL-RCV-"

// ReceiptNumberForBill is the deterministic receipt number keyed to a
// bill id; kept for display and as a fallback lookup alongside the
// explicit bills.stock_receipt_order_id back-reference.
func ReceiptNumberForBill(billID int64) string {
	return fmt.Sprintf("%s%d", receiptNumberPrefix, billID)
}

// createReceiptFor records the bill as a closed goods receipt whose
// lines are FIFO lots, each fully available.
func createReceiptFor(ctx context.Context, tx TxRepository, bill Bill, items []BillItem) error {
	order := StockReceiptOrder{
		CompanyID:   bill.CompanyID,
		VendorID:    bill.VendorID,
		BillID:      bill.ID,
		OrderNumber: ReceiptNumberForBill(bill.ID),
		Status:      ReceiptStatusClosed,
		TotalAmount: bill.TotalAmount,
	}
	receiptID, err := tx.InsertReceiptOrder(ctx, order)
	if err != nil {
		return err
	}
	if err := tx.SetBillReceiptOrder(ctx, bill.ID, receiptID); err != nil {
		return err
	}
	return insertReceiptLines(ctx, tx, receiptID, items)
}

// replaceReceiptFor locates the bill's receipt and fully replaces its
// lines so they mirror the current item set; a missing receipt is
// recreated, making the operation idempotent for the bill key.
func replaceReceiptFor(ctx context.Context, tx TxRepository, bill Bill, items []BillItem) error {
	var receiptID int64
	if bill.StockReceiptOrderID != nil {
		receiptID = *bill.StockReceiptOrderID
	} else {
		id, err := tx.FindReceiptOrderIDByBill(ctx, bill.ID)
		if err != nil {
			if shared.IsNotFound(err) {
				return createReceiptFor(ctx, tx, bill, items)
			}
			return err
		}
		receiptID = id
		if err := tx.SetBillReceiptOrder(ctx, bill.ID, receiptID); err != nil {
			return err
		}
	}
	if err := tx.DeleteReceiptLines(ctx, receiptID); err != nil {
		return err
	}
	if err := insertReceiptLines(ctx, tx, receiptID, items); err != nil {
		return err
	}
	return tx.UpdateReceiptOrderTotal(ctx, receiptID, bill.TotalAmount)
}

// insertReceiptLines creates one lot per catalog line. Non-catalog
// lines carry no product and produce no lot.
func insertReceiptLines(ctx context.Context, tx TxRepository, receiptID int64, items []BillItem) error {
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		line := StockReceiptLine{
			ReceiptOrderID: receiptID,
			ProductID:      *item.ProductID,
			Quantity:       item.Quantity,
			UnitCost:       item.UnitPrice,
			RemainingQty:   item.Quantity,
			StockStatus:    StockStatusInStock,
		}
		if err := tx.InsertReceiptLine(ctx, line); err != nil {
			return err
		}
	}
	return nil
}
