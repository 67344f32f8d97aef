package billing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateLineTotals(t *testing.T) {
	tax, total := CalculateLineTotals(2, 100, 10)
	require.InDelta(t, 20.0, tax, 0.001)
	require.InDelta(t, 220.0, total, 0.001)
}

func TestCalculateLineTotalsZeroTax(t *testing.T) {
	tax, total := CalculateLineTotals(5, 10, 0)
	require.InDelta(t, 0.0, tax, 0.001)
	require.InDelta(t, 50.0, total, 0.001)
}

func TestCalculateLineTotalsRoundsUnitPrice(t *testing.T) {
	// Unit price rounds to 4 decimals before use.
	tax, total := CalculateLineTotals(3, 10.123456, 0)
	require.InDelta(t, 0.0, tax, 0.001)
	require.InDelta(t, 30.37, total, 0.001)
}

func TestCalculateLineTotalsRoundsMoney(t *testing.T) {
	tax, total := CalculateLineTotals(3, 33.3333, 7.5)
	// subtotal 99.9999, tax 7.4999925 -> 7.50, total 107.4998925 -> 107.50
	require.InDelta(t, 7.50, tax, 0.001)
	require.InDelta(t, 107.50, total, 0.001)
}

func TestCalculateLineTotalsDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		tax, total := CalculateLineTotals(7, 12.345678, 12.5)
		tax2, total2 := CalculateLineTotals(7, 12.345678, 12.5)
		require.Equal(t, tax, tax2)
		require.Equal(t, total, total2)
	}
}
