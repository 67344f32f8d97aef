package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/keelbooks/keelbooks/internal/shared"
)

// Service orchestrates the bill lifecycle and payment allocation.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the billing service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

type computedItem struct {
	input      BillItemInput
	unitPrice  float64
	taxAmount  float64
	totalPrice float64
}

// computeItems runs the line calculator over every raw item and sums
// totals. Client-supplied amounts are never trusted.
func computeItems(items []BillItemInput) ([]computedItem, float64, error) {
	computed := make([]computedItem, 0, len(items))
	var total float64
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, 0, shared.Validationf("item quantity must be positive")
		}
		if item.UnitPrice < 0 {
			return nil, 0, shared.Validationf("item unit price must not be negative")
		}
		tax, lineTotal := CalculateLineTotals(item.Quantity, item.UnitPrice, item.TaxRate)
		computed = append(computed, computedItem{
			input:      item,
			unitPrice:  round4(item.UnitPrice),
			taxAmount:  tax,
			totalPrice: lineTotal,
		})
		total += lineTotal
	}
	return computed, round2(total), nil
}

func generateBillNumber() string {
	return fmt.Sprintf("BILL-%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

// CreateBill creates a bill header with its items, receives stock into
// FIFO lots, and moves the vendor payable, all in one transaction.
func (s *Service) CreateBill(ctx context.Context, input CreateBillInput) (CreateBillResult, error) {
	if input.VendorID == 0 {
		return CreateBillResult{}, shared.Validationf("vendor is required")
	}
	if len(input.Items) == 0 {
		return CreateBillResult{}, shared.Validationf("at least one item is required")
	}
	if input.MarkAsPaid && input.PaymentMethodID == nil {
		return CreateBillResult{}, shared.Validationf("payment method is required when marking a bill paid")
	}
	computed, total, err := computeItems(input.Items)
	if err != nil {
		return CreateBillResult{}, err
	}

	number := input.BillNumber
	if number == "" {
		number = generateBillNumber()
	}

	paid, balance := 0.0, total
	status := StatusOpened
	if input.MarkAsPaid {
		paid, balance = total, 0
		status = StatusPaid
	}

	var billID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bill := Bill{
			CompanyID:       input.CompanyID,
			VendorID:        input.VendorID,
			OrderID:         input.OrderID,
			EmployeeID:      input.EmployeeID,
			BillNumber:      number,
			BillDate:        input.BillDate,
			DueDate:         input.DueDate,
			PaymentMethodID: input.PaymentMethodID,
			TotalAmount:     total,
			PaidAmount:      paid,
			BalanceDue:      balance,
			Status:          status,
			Notes:           input.Notes,
		}
		id, err := tx.InsertBill(ctx, bill)
		if err != nil {
			return err
		}
		billID = id
		bill.ID = id

		items := make([]BillItem, 0, len(computed))
		for _, c := range computed {
			item := BillItem{
				BillID:      id,
				ProductID:   c.input.ProductID,
				Description: c.input.Description,
				Quantity:    c.input.Quantity,
				UnitPrice:   c.unitPrice,
				TaxRate:     c.input.TaxRate,
				TaxAmount:   c.taxAmount,
				TotalPrice:  c.totalPrice,
			}
			itemID, err := tx.InsertBillItem(ctx, item)
			if err != nil {
				return err
			}
			item.ID = itemID
			items = append(items, item)
		}

		if input.OrderID != nil {
			if err := tx.LinkOrderToBill(ctx, input.CompanyID, *input.OrderID, id); err != nil {
				return err
			}
		}

		if input.MarkAsPaid {
			paymentDate := s.now()
			if input.BillDate != nil {
				paymentDate = *input.BillDate
			}
			if _, err := tx.InsertBillPayment(ctx, BillPayment{
				BillID:          id,
				CompanyID:       input.CompanyID,
				VendorID:        input.VendorID,
				Amount:          total,
				PaymentDate:     paymentDate,
				PaymentMethodID: input.PaymentMethodID,
				Notes:           input.Notes,
			}); err != nil {
				return err
			}
			// Prepaid: the liability never accrued as outstanding. One
			// zero-delta entry keeps the audit trail without moving the
			// balance twice.
			if err := tx.AdjustVendorBalance(ctx, input.CompanyID, input.VendorID, 0, ReasonBillPrepaid, RefTypeBill, id); err != nil {
				return err
			}
		} else {
			if err := tx.AdjustVendorBalance(ctx, input.CompanyID, input.VendorID, total, ReasonBillCreated, RefTypeBill, id); err != nil {
				return err
			}
		}

		for _, item := range items {
			if item.ProductID == nil {
				continue
			}
			cost := item.UnitPrice
			if err := tx.AdjustProductStock(ctx, input.CompanyID, *item.ProductID, item.Quantity, &cost); err != nil {
				return err
			}
		}

		return createReceiptFor(ctx, tx, bill, items)
	})
	if err != nil {
		s.logger.Error("create bill failed", slog.Int64("company_id", input.CompanyID),
			slog.Int64("vendor_id", input.VendorID), slog.Any("error", err))
		return CreateBillResult{}, err
	}
	return CreateBillResult{BillID: billID, BillNumber: number}, nil
}

// UpdateBill reconstructs a bill deterministically: revert the original
// stock receipt, recalculate the new item set, replace items and
// receipt lines, and recompute status. paid_amount is never moved by an
// item edit.
func (s *Service) UpdateBill(ctx context.Context, input UpdateBillInput) error {
	if len(input.Items) == 0 {
		return shared.Validationf("at least one item is required")
	}
	computed, total, err := computeItems(input.Items)
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bill, err := tx.GetBillForUpdate(ctx, input.CompanyID, input.BillID)
		if err != nil {
			return err
		}
		oldItems, err := tx.ListBillItems(ctx, bill.ID)
		if err != nil {
			return err
		}

		// Revert the original receipt before applying new quantities to
		// avoid order-dependent drift.
		for _, item := range oldItems {
			if item.ProductID == nil {
				continue
			}
			if err := tx.AdjustProductStock(ctx, input.CompanyID, *item.ProductID, -item.Quantity, nil); err != nil {
				return err
			}
		}

		oldTotal := bill.TotalAmount
		balance := round2(total - bill.PaidAmount)

		bill.BillDate = input.BillDate
		bill.DueDate = input.DueDate
		bill.EmployeeID = input.EmployeeID
		bill.PaymentMethodID = input.PaymentMethodID
		bill.Notes = input.Notes
		bill.TotalAmount = total
		bill.BalanceDue = balance
		bill.Status = ResolveStatus(bill.Status, total, bill.PaidAmount)
		bill.Version = input.Version

		if err := tx.UpdateBillHeader(ctx, bill); err != nil {
			return err
		}

		if err := tx.DeleteBillItems(ctx, bill.ID); err != nil {
			return err
		}
		items := make([]BillItem, 0, len(computed))
		for _, c := range computed {
			item := BillItem{
				BillID:      bill.ID,
				ProductID:   c.input.ProductID,
				Description: c.input.Description,
				Quantity:    c.input.Quantity,
				UnitPrice:   c.unitPrice,
				TaxRate:     c.input.TaxRate,
				TaxAmount:   c.taxAmount,
				TotalPrice:  c.totalPrice,
			}
			itemID, err := tx.InsertBillItem(ctx, item)
			if err != nil {
				return err
			}
			item.ID = itemID
			items = append(items, item)
		}

		if delta := round2(total - oldTotal); delta != 0 {
			if err := tx.AdjustVendorBalance(ctx, input.CompanyID, bill.VendorID, delta, ReasonBillUpdated, RefTypeBill, bill.ID); err != nil {
				return err
			}
		}

		for _, item := range items {
			if item.ProductID == nil {
				continue
			}
			cost := item.UnitPrice
			if err := tx.AdjustProductStock(ctx, input.CompanyID, *item.ProductID, item.Quantity, &cost); err != nil {
				return err
			}
		}

		return replaceReceiptFor(ctx, tx, bill, items)
	})
	if err != nil {
		s.logger.Error("update bill failed", slog.Int64("company_id", input.CompanyID),
			slog.Int64("bill_id", input.BillID), slog.Any("error", err))
		return err
	}
	return nil
}

// GetBill returns a bill with its items and payment history.
func (s *Service) GetBill(ctx context.Context, companyID, billID int64) (BillWithDetails, error) {
	bill, err := s.repo.GetBill(ctx, companyID, billID)
	if err != nil {
		return BillWithDetails{}, err
	}
	items, err := s.repo.ListBillItems(ctx, billID)
	if err != nil {
		return BillWithDetails{}, err
	}
	payments, err := s.repo.ListBillPayments(ctx, billID)
	if err != nil {
		return BillWithDetails{}, err
	}
	return BillWithDetails{Bill: bill, Items: items, Payments: payments}, nil
}

// ListBillsByVendor returns a vendor's bills, opportunistically
// flipping elapsed opened/partially_paid bills to overdue and
// persisting the change.
func (s *Service) ListBillsByVendor(ctx context.Context, companyID, vendorID int64) ([]Bill, error) {
	if vendorID == 0 {
		return nil, shared.Validationf("vendor is required")
	}
	var out []Bill
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bills, err := tx.ListBillsByVendor(ctx, companyID, vendorID)
		if err != nil {
			return err
		}
		now := s.now()
		for i := range bills {
			b := &bills[i]
			if b.Status != StatusOpened && b.Status != StatusPartiallyPaid {
				continue
			}
			if next := ApplyOverdue(b.Status, b.TotalAmount, b.PaidAmount, b.DueDate, now); next == StatusOverdue {
				if err := tx.SetBillStatus(ctx, b.ID, StatusOverdue); err != nil {
					return err
				}
				b.Status = StatusOverdue
			}
		}
		out = bills
		return nil
	})
	if err != nil {
		s.logger.Error("list vendor bills failed", slog.Int64("company_id", companyID),
			slog.Int64("vendor_id", vendorID), slog.Any("error", err))
		return nil, err
	}
	return out, nil
}

// SweepOverdue bulk-flips elapsed unpaid bills to overdue. Invoked by
// the scheduled scan; uses the same predicate as the lazy read flip.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	var flipped int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		n, err := tx.MarkBillsOverdue(ctx, s.now())
		if err != nil {
			return err
		}
		flipped = n
		return nil
	})
	if err != nil {
		s.logger.Error("overdue sweep failed", slog.Any("error", err))
		return 0, err
	}
	return flipped, nil
}
