package stock

import "context"

// Service exposes FIFO lots to the invoicing subsystem.
type Service struct {
	repo Repository
}

// NewService constructs the stock service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// OpenLots returns consumable lots for a product, oldest first.
func (s *Service) OpenLots(ctx context.Context, companyID, productID int64) ([]Lot, error) {
	return s.repo.ListOpenLots(ctx, companyID, productID)
}

// AvailableQuantity sums remaining quantity across open lots.
func (s *Service) AvailableQuantity(ctx context.Context, companyID, productID int64) (float64, error) {
	lots, err := s.repo.ListOpenLots(ctx, companyID, productID)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, lot := range lots {
		total += lot.RemainingQty
	}
	return total, nil
}
