package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestResolveStatus(t *testing.T) {
	cases := []struct {
		name    string
		current BillStatus
		total   float64
		paid    float64
		want    BillStatus
	}{
		{"unpaid stays opened", StatusOpened, 220, 0, StatusOpened},
		{"partial payment", StatusOpened, 500, 300, StatusPartiallyPaid},
		{"fully paid", StatusPartiallyPaid, 500, 500, StatusPaid},
		{"overpaid still paid", StatusOpened, 100, 120, StatusPaid},
		{"paid within tolerance", StatusOpened, 220, 219.995, StatusPaid},
		{"zero total stays opened", StatusOpened, 0, 0, StatusOpened},
		{"proforma frozen", StatusProforma, 500, 500, StatusProforma},
		{"cancelled frozen", StatusCancelled, 500, 300, StatusCancelled},
		{"overdue recomputes from amounts", StatusOverdue, 500, 500, StatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ResolveStatus(tc.current, tc.total, tc.paid))
		})
	}
}

func TestApplyOverdue(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	past := timePtr(now.AddDate(0, 0, -5))
	future := timePtr(now.AddDate(0, 0, 5))

	cases := []struct {
		name   string
		status BillStatus
		total  float64
		paid   float64
		due    *time.Time
		want   BillStatus
	}{
		{"elapsed unpaid flips", StatusOpened, 500, 0, past, StatusOverdue},
		{"elapsed partial flips", StatusPartiallyPaid, 500, 300, past, StatusOverdue},
		{"future due untouched", StatusOpened, 500, 0, future, StatusOpened},
		{"no due date untouched", StatusOpened, 500, 0, nil, StatusOpened},
		{"paid never overdue", StatusPaid, 500, 500, past, StatusPaid},
		{"cancelled never overdue", StatusCancelled, 500, 0, past, StatusCancelled},
		{"proforma never overdue", StatusProforma, 500, 0, past, StatusProforma},
		{"no balance no flip", StatusOpened, 500, 500, past, StatusOpened},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ApplyOverdue(tc.status, tc.total, tc.paid, tc.due, now))
		})
	}
}
