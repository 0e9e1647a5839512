package scanner

import (
	"context"
	"log/slog"
	"time"

	"storage-marketplace/internal/booking"
	"storage-marketplace/internal/catalog"
	bookingmodel "storage-marketplace/internal/core/datamodel/booking"
	"storage-marketplace/internal/core/events"
)

// BookingSource is the slice of the booking repository the scanner reads and
// the one field it writes back, the reminder idempotency stamp.
type BookingSource interface {
	ListConfirmedEndingBefore(monthStart, cutoff time.Time) ([]*bookingmodel.Booking, error)
	ListConfirmedByPeriod(period string) ([]*bookingmodel.Booking, error)
	Update(b *bookingmodel.Booking) error
}

// Expirer is implemented by the booking service; expiry runs through the
// same lifecycle engine as every other transition.
type Expirer interface {
	Expire(ctx context.Context, bookingID int64) error
}

// BillingLedger answers whether a billing window is already covered by a
// successful payment.
type BillingLedger interface {
	HasSucceededPaymentInWindow(bookingID int64, from, to time.Time) (bool, error)
}

// Scanner is the daily sweep: it expires confirmed bookings whose term has
// ended and emits billing reminders for monthly bookings whose next billing
// date is today. Both passes are idempotent, so re-running the sweep within
// one day is harmless.
type Scanner struct {
	bookings BookingSource
	expirer  Expirer
	ledger   BillingLedger
	catalog  *catalog.Service
	eventBus *events.EventBus
	logger   *slog.Logger
	now      func() time.Time
}

func New(bookings BookingSource, expirer Expirer, ledger BillingLedger, catalogService *catalog.Service, eventBus *events.EventBus, logger *slog.Logger) *Scanner {
	return &Scanner{
		bookings: bookings,
		expirer:  expirer,
		ledger:   ledger,
		catalog:  catalogService,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Scanner) Run(ctx context.Context) {
	s.sweepExpired(ctx)
	s.sweepReminders(ctx)
}

// sweepExpired transitions confirmed bookings whose end date falls within the
// current month and is already past. Each booking is handled in isolation;
// one failed transition never stops the sweep.
func (s *Scanner) sweepExpired(ctx context.Context) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	bookings, err := s.bookings.ListConfirmedEndingBefore(monthStart, now)
	if err != nil {
		s.logger.Error("expiry sweep: failed to list candidates", "error", err)
		return
	}

	expired := 0
	for _, b := range bookings {
		if err := s.expirer.Expire(ctx, b.ID); err != nil {
			s.logger.Error("expiry sweep: transition failed",
				"error", err,
				"booking_id", b.ID,
				"end_date", b.EndDate)
			continue
		}
		expired++
	}

	s.logger.Info("expiry sweep finished", "candidates", len(bookings), "expired", expired)
}

// sweepReminders emits a billing reminder for each monthly confirmed booking
// whose next billing date is today, unless a reminder already went out today
// or the billing window is already paid.
func (s *Scanner) sweepReminders(ctx context.Context) {
	now := s.now()
	today := booking.TruncateToDay(now)

	bookings, err := s.bookings.ListConfirmedByPeriod(bookingmodel.PeriodMonthly)
	if err != nil {
		s.logger.Error("reminder sweep: failed to list bookings", "error", err)
		return
	}

	sent := 0
	for _, b := range bookings {
		if b.StartDate == nil {
			continue
		}

		billingDate, months := booking.NextBillingDate(*b.StartDate, today)
		if months == 0 || !billingDate.Equal(today) {
			// the first payment happened on the start date itself; only
			// subsequent cycles get reminders
			continue
		}
		if b.LastReminderSentOn != nil && booking.TruncateToDay(*b.LastReminderSentOn).Equal(today) {
			continue
		}

		covered, err := s.ledger.HasSucceededPaymentInWindow(b.ID, billingDate, billingDate.AddDate(0, 1, 0))
		if err != nil {
			s.logger.Error("reminder sweep: billing window check failed", "error", err, "booking_id", b.ID)
			continue
		}
		if covered {
			continue
		}

		unit, err := s.catalog.GetUnit(b.UnitID)
		if err != nil {
			s.logger.Error("reminder sweep: failed to load unit", "error", err, "booking_id", b.ID)
			continue
		}
		amount := catalog.PeriodCharge(unit, b.PaymentPeriod)

		s.eventBus.Publish(ctx, events.NewReminderDueEvent(b.ID, b.CustomerID, billingDate, amount))

		b.LastReminderSentOn = &today
		if err := s.bookings.Update(b); err != nil {
			s.logger.Error("reminder sweep: failed to stamp reminder date", "error", err, "booking_id", b.ID)
			continue
		}
		sent++
	}

	s.logger.Info("reminder sweep finished", "bookings", len(bookings), "reminders_sent", sent)
}
