package vendors

import (
	"context"
	"math"
	"strconv"
	"time"
)

// balanceDriftTolerance bounds acceptable rounding drift between the
// cached balance and the sum of its ledger entries.
const balanceDriftTolerance = 0.01

// Service exposes the vendor balance read side.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// NewService constructs the vendors service.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// GetVendor returns a vendor scoped to a company.
func (s *Service) GetVendor(ctx context.Context, companyID, vendorID int64) (Vendor, error) {
	return s.repo.GetVendor(ctx, companyID, vendorID)
}

// GetLedger returns the most recent balance entries, newest first.
func (s *Service) GetLedger(ctx context.Context, companyID, vendorID int64, limit int) ([]BalanceEntry, error) {
	if _, err := s.repo.GetVendor(ctx, companyID, vendorID); err != nil {
		return nil, err
	}
	return s.repo.ListBalanceEntries(ctx, companyID, vendorID, limit)
}

// GetOutstandingSummary returns the cached outstanding position.
func (s *Service) GetOutstandingSummary(ctx context.Context, companyID, vendorID int64) (OutstandingSummary, error) {
	key, err := s.cache.BuildKey(ctx, "vendors", "summary",
		strconv.FormatInt(companyID, 10), strconv.FormatInt(vendorID, 10))
	if err != nil {
		return OutstandingSummary{}, err
	}
	var summary OutstandingSummary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
		return s.repo.OutstandingSummary(ctx, companyID, vendorID, s.now())
	})
	return summary, err
}

// InvalidateSummaries drops every cached summary after balance moves.
func (s *Service) InvalidateSummaries(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// VerifyBalance reports the drift between the cached running balance
// and the sum of ledger entries; drift beyond tolerance means a
// mutation bypassed the ledger.
func (s *Service) VerifyBalance(ctx context.Context, companyID, vendorID int64) (drift float64, ok bool, err error) {
	vendor, err := s.repo.GetVendor(ctx, companyID, vendorID)
	if err != nil {
		return 0, false, err
	}
	sum, err := s.repo.SumBalanceEntries(ctx, companyID, vendorID)
	if err != nil {
		return 0, false, err
	}
	drift = vendor.Balance - sum
	return drift, math.Abs(drift) <= balanceDriftTolerance, nil
}
