package notification

import (
	"context"
	"fmt"
	"log/slog"

	"storage-marketplace/internal/core/datamodel/notification"
	"storage-marketplace/internal/core/events"
)

// Dispatcher turns domain events into notification rows. Handlers run on the
// async side of the event bus, so a dispatch failure never blocks or fails
// the transition that raised the event.
type Dispatcher struct {
	service *Service
	logger  *slog.Logger
}

func NewDispatcher(bus *events.EventBus, service *Service, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{service: service, logger: logger}

	bus.Subscribe(events.EventTypeBookingConfirmed, d.handleBookingConfirmed)
	bus.Subscribe(events.EventTypeBookingCancelled, d.handleBookingCancelled)
	bus.Subscribe(events.EventTypeBookingExpired, d.handleBookingCancelled)
	bus.Subscribe(events.EventTypePaymentSucceeded, d.handlePaymentOutcome)
	bus.Subscribe(events.EventTypePaymentFailed, d.handlePaymentOutcome)
	bus.Subscribe(events.EventTypePaymentRefunded, d.handlePaymentOutcome)
	bus.Subscribe(events.EventTypePayoutExecuted, d.handlePayout)
	bus.Subscribe(events.EventTypePayoutRejected, d.handlePayout)
	bus.Subscribe(events.EventTypeReminderDue, d.handleReminderDue)

	return d
}

func (d *Dispatcher) handleBookingConfirmed(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.BookingConfirmedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	_, err := d.service.Notify(e.CustomerID,
		"Booking confirmed",
		fmt.Sprintf("Your booking #%d is confirmed. The unit is reserved for you.", e.BookingID),
		notification.CategoryBooking,
		notification.PriorityNormal,
		map[string]interface{}{"booking_id": e.BookingID, "unit_id": e.UnitID},
	)
	return err
}

func (d *Dispatcher) handleBookingCancelled(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.BookingCancelledEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	title := "Booking cancelled"
	message := fmt.Sprintf("Your booking #%d was cancelled.", e.BookingID)
	if e.Expired {
		title = "Booking expired"
		message = fmt.Sprintf("Your booking #%d has ended and the unit was released.", e.BookingID)
	} else if e.Reason != "" {
		message = fmt.Sprintf("Your booking #%d was cancelled: %s", e.BookingID, e.Reason)
	}

	_, err := d.service.Notify(e.CustomerID,
		title, message,
		notification.CategoryBooking,
		notification.PriorityNormal,
		map[string]interface{}{"booking_id": e.BookingID, "reason": e.Reason},
	)
	return err
}

func (d *Dispatcher) handlePaymentOutcome(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PaymentOutcomeEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	var title, message, priority string
	switch event.EventType() {
	case events.EventTypePaymentSucceeded:
		title = "Payment received"
		message = fmt.Sprintf("Your payment for booking #%d was received.", e.BookingID)
		priority = notification.PriorityNormal
	case events.EventTypePaymentFailed:
		title = "Payment failed"
		message = fmt.Sprintf("Your payment for booking #%d failed. Please try again.", e.BookingID)
		if e.FailureReason != "" {
			message = fmt.Sprintf("Your payment for booking #%d failed: %s", e.BookingID, e.FailureReason)
		}
		priority = notification.PriorityHigh
	case events.EventTypePaymentRefunded:
		title = "Payment refunded"
		message = fmt.Sprintf("Your payment for booking #%d was refunded.", e.BookingID)
		priority = notification.PriorityNormal
	default:
		return fmt.Errorf("unhandled payment event type %s", event.EventType())
	}

	_, err := d.service.Notify(e.CustomerID,
		title, message,
		notification.CategoryPayment,
		priority,
		map[string]interface{}{
			"booking_id":     e.BookingID,
			"transaction_id": e.TransactionID,
			"gross_amount":   e.GrossAmount,
		},
	)
	return err
}

func (d *Dispatcher) handlePayout(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PayoutEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	title := "Payout sent"
	message := fmt.Sprintf("Your payout of %d was sent to your bank account.", e.NetAmount)
	if event.EventType() == events.EventTypePayoutRejected {
		title = "Payout rejected"
		message = "Your payout request was rejected."
		if e.Reason != "" {
			message = fmt.Sprintf("Your payout request was rejected: %s", e.Reason)
		}
	}

	_, err := d.service.Notify(e.OwnerID,
		title, message,
		notification.CategoryPayout,
		notification.PriorityNormal,
		map[string]interface{}{"transaction_id": e.TransactionID, "net_amount": e.NetAmount},
	)
	return err
}

func (d *Dispatcher) handleReminderDue(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ReminderDueEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	_, err := d.service.Notify(e.CustomerID,
		"Payment reminder",
		fmt.Sprintf("Your next payment of %d for booking #%d is due on %s.",
			e.Amount, e.BookingID, e.BillingDate.Format("2006-01-02")),
		notification.CategoryPaymentReminder,
		notification.PriorityHigh,
		map[string]interface{}{
			"booking_id":   e.BookingID,
			"billing_date": e.BillingDate.Format("2006-01-02"),
			"amount":       e.Amount,
		},
	)
	return err
}
