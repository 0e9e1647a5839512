package booking

import (
	"context"
	"time"

	bookingmodel "storage-marketplace/internal/core/datamodel/booking"
)

type Repository interface {
	Create(b *bookingmodel.Booking) error
	GetByID(id int64) (*bookingmodel.Booking, error)
	Update(b *bookingmodel.Booking) error
	GetActiveByUnit(unitID int64) (*bookingmodel.Booking, error)
	ListByCustomer(customerID int64) ([]*bookingmodel.Booking, error)
	ListConfirmedEndingBefore(monthStart, cutoff time.Time) ([]*bookingmodel.Booking, error)
	ListConfirmedByPeriod(period string) ([]*bookingmodel.Booking, error)
	SoftDelete(id int64) error
}

// PaymentCollector is implemented by the ledger service. The booking side
// uses it for the manual admin "collect payment" path, which records a
// settled ledger entry as though an online payment had succeeded.
type PaymentCollector interface {
	CollectManual(ctx context.Context, bookingID, adminID int64, source string) error
	HasCompletedPayment(bookingID int64) (bool, error)
}

// ActionGuard flips a notification's action-completed flag exactly once.
// Admin commands triggered from a notification consult it before applying, so
// duplicate clicks cannot double-charge or double-cancel.
type ActionGuard interface {
	CompleteAction(notificationID int64) error
}
