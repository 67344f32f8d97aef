package stock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	lots []Lot
}

func (r *stubRepo) ListOpenLots(ctx context.Context, companyID, productID int64) ([]Lot, error) {
	var out []Lot
	for _, lot := range r.lots {
		if lot.ProductID == productID {
			out = append(out, lot)
		}
	}
	return out, nil
}

func TestOpenLotsPreservesFIFOOrder(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	repo := &stubRepo{lots: []Lot{
		{ID: 1, ProductID: 100, Quantity: 5, RemainingQty: 2, UnitCost: 40, ReceivedAt: base},
		{ID: 2, ProductID: 100, Quantity: 10, RemainingQty: 10, UnitCost: 45, ReceivedAt: base.AddDate(0, 0, 3)},
		{ID: 3, ProductID: 200, Quantity: 1, RemainingQty: 1, UnitCost: 9, ReceivedAt: base},
	}}
	svc := NewService(repo)

	lots, err := svc.OpenLots(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	require.EqualValues(t, 1, lots[0].ID, "oldest lot first")
	require.EqualValues(t, 2, lots[1].ID)
}

func TestAvailableQuantity(t *testing.T) {
	repo := &stubRepo{lots: []Lot{
		{ID: 1, ProductID: 100, RemainingQty: 2.5},
		{ID: 2, ProductID: 100, RemainingQty: 10},
	}}
	svc := NewService(repo)

	qty, err := svc.AvailableQuantity(context.Background(), 1, 100)
	require.NoError(t, err)
	require.InDelta(t, 12.5, qty, 0.001)

	qty, err = svc.AvailableQuantity(context.Background(), 1, 999)
	require.NoError(t, err)
	require.InDelta(t, 0.0, qty, 0.001)
}
