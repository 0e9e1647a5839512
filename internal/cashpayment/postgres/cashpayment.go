package postgres

import (
	"gorm.io/gorm"

	cashpkg "storage-marketplace/internal/cashpayment"
	cashmodel "storage-marketplace/internal/core/datamodel/cashpayment"
)

type CashPaymentRepository struct {
	db *gorm.DB
}

func NewCashPaymentRepository(db *gorm.DB) cashpkg.Repository {
	return &CashPaymentRepository{db: db}
}

func (r *CashPaymentRepository) Create(req *cashmodel.Request) error {
	return r.db.Create(req).Error
}

func (r *CashPaymentRepository) GetByID(id int64) (*cashmodel.Request, error) {
	var req cashmodel.Request
	err := r.db.First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetOpenByBooking returns a pending or approved request if one exists.
// Rejected requests do not block a new request or the online path.
func (r *CashPaymentRepository) GetOpenByBooking(bookingID int64) (*cashmodel.Request, error) {
	var req cashmodel.Request
	err := r.db.Where("booking_id = ? AND status IN ?", bookingID,
		[]string{cashmodel.StatusPending, cashmodel.StatusApproved}).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *CashPaymentRepository) ListByBooking(bookingID int64) ([]*cashmodel.Request, error) {
	var requests []*cashmodel.Request
	err := r.db.Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *CashPaymentRepository) Update(req *cashmodel.Request) error {
	return r.db.Save(req).Error
}
