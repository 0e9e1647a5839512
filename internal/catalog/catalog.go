package catalog

import (
	"log/slog"

	catalogmodel "storage-marketplace/internal/core/datamodel/catalog"
)

// Repository is the data access surface for units and properties used by the
// booking engine. Catalog CRUD itself lives outside this service.
type Repository interface {
	GetUnit(unitID int64) (*catalogmodel.StorageUnit, error)
	GetProperty(propertyID int64) (*catalogmodel.Property, error)
	GetPropertiesByOwner(ownerID int64) ([]*catalogmodel.Property, error)
	SetOccupancy(unitID int64, occupied bool) error
	AdjustActiveCount(propertyID int64, delta int) error
}

// Service exposes unit occupancy and pricing to the booking and ledger
// engines. Occupancy updates are best-effort side effects of booking
// transitions: failures are reported to the caller, which logs them as
// reconciliation defects but does not roll back the booking.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetUnit(unitID int64) (*catalogmodel.StorageUnit, error) {
	return s.repo.GetUnit(unitID)
}

func (s *Service) GetProperty(propertyID int64) (*catalogmodel.Property, error) {
	return s.repo.GetProperty(propertyID)
}

func (s *Service) OwnerPropertyIDs(ownerID int64) ([]int64, error) {
	properties, err := s.repo.GetPropertiesByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(properties))
	for _, p := range properties {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (s *Service) SetOccupancy(unitID int64, occupied bool) error {
	if err := s.repo.SetOccupancy(unitID, occupied); err != nil {
		s.logger.Error("failed to update unit occupancy", "error", err, "unit_id", unitID, "occupied", occupied)
		return err
	}
	s.logger.Info("unit occupancy updated", "unit_id", unitID, "occupied", occupied)
	return nil
}

func (s *Service) IncrementActiveCount(propertyID int64, delta int) error {
	if err := s.repo.AdjustActiveCount(propertyID, delta); err != nil {
		s.logger.Error("failed to adjust property active count", "error", err, "property_id", propertyID, "delta", delta)
		return err
	}
	return nil
}

// PeriodCharge returns the gross amount for one billing period of the unit:
// the period charge minus the period discount, in minor units.
func PeriodCharge(unit *catalogmodel.StorageUnit, period string) int64 {
	if period == "yearly" {
		return unit.YearlyCharge - unit.YearlyDiscount
	}
	return unit.MonthlyCharge - unit.MonthlyDiscount
}
