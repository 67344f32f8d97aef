package billing

import "time"

// isFrozen reports whether a status blocks all automatic transitions.
func isFrozen(status BillStatus) bool {
	return status == StatusProforma || status == StatusCancelled
}

// ResolveStatus recomputes the base status from amounts. Frozen states
// (proforma, cancelled) are returned unchanged.
func ResolveStatus(current BillStatus, totalAmount, paidAmount float64) BillStatus {
	if isFrozen(current) {
		return current
	}
	balance := totalAmount - paidAmount
	switch {
	case totalAmount > 0 && balance <= amountTolerance:
		return StatusPaid
	case paidAmount > 0 && paidAmount < totalAmount:
		return StatusPartiallyPaid
	default:
		return StatusOpened
	}
}

// ApplyOverdue overrides an unpaid status with overdue when the due
// date has elapsed with an outstanding balance. Paid and frozen
// statuses are never overridden.
func ApplyOverdue(status BillStatus, totalAmount, paidAmount float64, dueDate *time.Time, now time.Time) BillStatus {
	if status == StatusPaid || isFrozen(status) {
		return status
	}
	if dueDate == nil {
		return status
	}
	if now.After(*dueDate) && totalAmount-paidAmount > amountTolerance {
		return StatusOverdue
	}
	return status
}
