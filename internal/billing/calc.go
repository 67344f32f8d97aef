package billing

import "math"

// amountTolerance is the rounding tolerance for monetary comparisons.
const amountTolerance = 0.01

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}

func round2(v float64) float64 { return roundTo(v, 2) }

func round4(v float64) float64 { return roundTo(v, 4) }

// CalculateLineTotals derives tax amount and line total from a raw item.
// The supplied unit price is treated as tax-exclusive, rounded to 4
// decimal places before use; monetary outputs are rounded to 2.
func CalculateLineTotals(quantity, unitPrice, taxRate float64) (taxAmount, totalPrice float64) {
	unit := round4(unitPrice)
	subtotal := unit * quantity
	taxAmount = round2(subtotal * taxRate / 100)
	totalPrice = round2(subtotal + taxAmount)
	return taxAmount, totalPrice
}
