package postgres

import (
	"time"

	"gorm.io/gorm"

	bookingpkg "storage-marketplace/internal/booking"
	bookingmodel "storage-marketplace/internal/core/datamodel/booking"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) bookingpkg.Repository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(b *bookingmodel.Booking) error {
	return r.db.Create(b).Error
}

func (r *BookingRepository) GetByID(id int64) (*bookingmodel.Booking, error) {
	var b bookingmodel.Booking
	err := r.db.First(&b, id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) Update(b *bookingmodel.Booking) error {
	return r.db.Save(b).Error
}

// GetActiveByUnit returns the unit's booking in a non-terminal state, if any.
// At most one such booking exists per unit.
func (r *BookingRepository) GetActiveByUnit(unitID int64) (*bookingmodel.Booking, error) {
	var b bookingmodel.Booking
	err := r.db.Where("unit_id = ? AND lifecycle_state NOT IN ?", unitID,
		[]string{string(bookingpkg.StateBookingCancelled), string(bookingpkg.StateBookingExpired)}).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) ListByCustomer(customerID int64) ([]*bookingmodel.Booking, error) {
	var bookings []*bookingmodel.Booking
	err := r.db.Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

// ListConfirmedEndingBefore feeds the expiry sweep: confirmed bookings whose
// end date falls inside the current month and is already in the past.
func (r *BookingRepository) ListConfirmedEndingBefore(monthStart, cutoff time.Time) ([]*bookingmodel.Booking, error) {
	var bookings []*bookingmodel.Booking
	err := r.db.Where("lifecycle_state = ? AND end_date >= ? AND end_date < ?",
		string(bookingpkg.StateBookingConfirmed), monthStart, cutoff).
		Order("end_date ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *BookingRepository) ListConfirmedByPeriod(period string) ([]*bookingmodel.Booking, error) {
	var bookings []*bookingmodel.Booking
	err := r.db.Where("lifecycle_state = ? AND payment_period = ?",
		string(bookingpkg.StateBookingConfirmed), period).
		Order("id ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *BookingRepository) SoftDelete(id int64) error {
	return r.db.Delete(&bookingmodel.Booking{}, id).Error
}
