package billing

import (
	"context"
	"log/slog"
	"math"

	"github.com/keelbooks/keelbooks/internal/shared"
)

// RecordPayment distributes one incoming payment across outstanding
// bills for a vendor. All fragments succeed or the whole payment rolls
// back, including fragments already processed in the same call.
func (s *Service) RecordPayment(ctx context.Context, input RecordPaymentInput) error {
	if input.VendorID == 0 {
		return shared.Validationf("vendor is required")
	}
	if len(input.Allocations) == 0 {
		return shared.Validationf("at least one bill allocation is required")
	}
	var sum float64
	for _, alloc := range input.Allocations {
		if alloc.Amount <= 0 {
			return shared.Validationf("allocation amount must be positive")
		}
		sum += alloc.Amount
	}
	if math.Abs(sum-input.Amount) > amountTolerance {
		return shared.Validationf("allocation total %.2f does not match payment amount %.2f", sum, input.Amount)
	}
	if input.PaymentDate.IsZero() {
		input.PaymentDate = s.now()
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		now := s.now()
		for _, alloc := range input.Allocations {
			bill, err := tx.GetVendorBillForUpdate(ctx, input.CompanyID, input.VendorID, alloc.BillID)
			if err != nil {
				return err
			}

			newPaid := round2(bill.PaidAmount + alloc.Amount)
			balance := round2(bill.TotalAmount - newPaid)
			status := ResolveStatus(bill.Status, bill.TotalAmount, newPaid)
			status = ApplyOverdue(status, bill.TotalAmount, newPaid, bill.DueDate, now)

			paymentID, err := tx.InsertBillPayment(ctx, BillPayment{
				BillID:          bill.ID,
				CompanyID:       input.CompanyID,
				VendorID:        input.VendorID,
				Amount:          alloc.Amount,
				PaymentDate:     input.PaymentDate,
				PaymentMethodID: input.PaymentMethodID,
				DepositTo:       input.DepositTo,
				Notes:           input.Notes,
			})
			if err != nil {
				return err
			}

			if err := tx.AdjustVendorBalance(ctx, input.CompanyID, input.VendorID, -alloc.Amount, ReasonPayment, RefTypePayment, paymentID); err != nil {
				return err
			}

			if err := tx.UpdateBillPaymentState(ctx, bill.ID, newPaid, balance, status); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("record payment failed", slog.Int64("company_id", input.CompanyID),
			slog.Int64("vendor_id", input.VendorID), slog.Float64("amount", input.Amount), slog.Any("error", err))
		return err
	}
	return nil
}
