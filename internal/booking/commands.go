package booking

import (
	"context"
	"time"

	apperrors "storage-marketplace/internal"
	"storage-marketplace/internal/catalog"
	"storage-marketplace/internal/core/events"
)

// Command is a privileged admin action dispatched through the lifecycle
// engine. Each concrete command carries its own validated payload; the old
// string-action endpoint maps onto these in the handler, never below it.
type Command interface {
	commandName() string
	notificationID() int64
}

// NotifyPaymentCommand pushes a payment reminder to the booking's customer.
type NotifyPaymentCommand struct {
	BookingID      int64
	NotificationID int64
	AdminID        int64
}

func (c NotifyPaymentCommand) commandName() string   { return "notify-payment" }
func (c NotifyPaymentCommand) notificationID() int64 { return c.NotificationID }

// CollectPaymentCommand records a settled payment on the booking without a
// gateway checkout, e.g. when the customer paid through a channel the
// platform cannot observe.
type CollectPaymentCommand struct {
	BookingID      int64
	NotificationID int64
	AdminID        int64
}

func (c CollectPaymentCommand) commandName() string   { return "collect-payment" }
func (c CollectPaymentCommand) notificationID() int64 { return c.NotificationID }

// CancelBookingCommand cancels the booking with a required reason.
type CancelBookingCommand struct {
	BookingID      int64
	NotificationID int64
	AdminID        int64
	Reason         string
}

func (c CancelBookingCommand) commandName() string   { return "cancel-booking" }
func (c CancelBookingCommand) notificationID() int64 { return c.NotificationID }

// Dispatch applies an admin command once. Every command is tied to the
// notification it was issued from; the guard flips that notification's
// action-completed flag first, so a duplicate click fails with
// ErrActionAlreadyDone before any state is touched.
func (s *Service) Dispatch(ctx context.Context, cmd Command) error {
	if cmd.notificationID() != 0 {
		if err := s.guard.CompleteAction(cmd.notificationID()); err != nil {
			s.logger.Warn("admin command rejected by idempotency guard",
				"command", cmd.commandName(),
				"notification_id", cmd.notificationID(),
				"error", err)
			return err
		}
	}

	switch c := cmd.(type) {
	case NotifyPaymentCommand:
		return s.notifyPayment(ctx, c)
	case CollectPaymentCommand:
		return s.collectPayment(ctx, c)
	case CancelBookingCommand:
		return s.cancelBooking(ctx, c)
	default:
		return apperrors.NewValidationError("unknown admin command", apperrors.ErrCodeValidationFailed)
	}
}

func (s *Service) notifyPayment(ctx context.Context, cmd NotifyPaymentCommand) error {
	b, err := s.getBooking(cmd.BookingID)
	if err != nil {
		return err
	}
	if State(b.LifecycleState).Terminal() {
		return apperrors.ErrBookingTerminal
	}

	unit, err := s.catalog.GetUnit(b.UnitID)
	if err != nil {
		return apperrors.NewInternalError("failed to load storage unit", err)
	}
	amount := catalog.PeriodCharge(unit, b.PaymentPeriod)

	billingDate := time.Now()
	if b.StartDate != nil {
		billingDate, _ = NextBillingDate(*b.StartDate, time.Now())
	}

	s.eventBus.Publish(ctx, events.NewReminderDueEvent(b.ID, b.CustomerID, billingDate, amount))
	s.logger.Info("payment reminder dispatched",
		"booking_id", b.ID,
		"admin_id", cmd.AdminID,
		"amount", amount)
	return nil
}

func (s *Service) collectPayment(ctx context.Context, cmd CollectPaymentCommand) error {
	b, err := s.getBooking(cmd.BookingID)
	if err != nil {
		return err
	}
	if State(b.LifecycleState).Terminal() {
		return apperrors.ErrBookingTerminal
	}

	if err := s.collector.CollectManual(ctx, cmd.BookingID, cmd.AdminID, "admin-collect"); err != nil {
		return err
	}
	s.logger.Info("payment collected manually", "booking_id", cmd.BookingID, "admin_id", cmd.AdminID)
	return nil
}

func (s *Service) cancelBooking(ctx context.Context, cmd CancelBookingCommand) error {
	if cmd.Reason == "" {
		return apperrors.NewValidationError("cancellation reason is required", apperrors.ErrCodeInvalidReason)
	}
	_, err := s.applyEvent(ctx, cmd.BookingID, Event{Kind: EventCancel, Reason: cmd.Reason}, nil)
	return err
}
