package ledger

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "storage-marketplace/internal"
	"storage-marketplace/internal/booking"
	ledgermodel "storage-marketplace/internal/core/datamodel/ledger"
	"storage-marketplace/internal/core/events"
)

// outcomeFor maps a gateway event type onto the entry status it implies.
func outcomeFor(eventType string) (string, bool) {
	switch eventType {
	case WebhookCheckoutCompleted:
		return ledgermodel.StatusSucceeded, true
	case WebhookCheckoutExpired:
		return ledgermodel.StatusCancelled, true
	case WebhookPaymentFailed:
		return ledgermodel.StatusFailed, true
	case WebhookPaymentRefunded:
		return ledgermodel.StatusRefunded, true
	}
	return "", false
}

// ProcessWebhookEvent reconciles one gateway event against the ledger. It is
// idempotent: re-delivery of an already-applied event short-circuits before
// any write, so duplicate deliveries settle a payment at most once. Work on
// one external reference is serialized so two near-simultaneous deliveries
// cannot interleave their read-modify-write sequences.
func (s *Service) ProcessWebhookEvent(ctx context.Context, event WebhookEvent) error {
	target, known := outcomeFor(event.EventType)
	if !known {
		s.logger.Warn("ignoring unknown gateway event type",
			"event_type", event.EventType,
			"external_reference", event.ExternalReference)
		return apperrors.NewValidationError("unknown gateway event type", apperrors.ErrCodeUnknownGatewayEvent)
	}

	key := entryLockKey(event.ExternalReference)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	entry, err := s.repo.GetByExternalReference(event.ExternalReference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// no matching local payment; rely on the gateway's retry if this
			// ever races entry creation
			s.logger.Warn("webhook references unknown ledger entry",
				"external_reference", event.ExternalReference,
				"event_type", event.EventType)
			return nil
		}
		return apperrors.NewInternalError("failed to load ledger entry", err)
	}

	if entry.Status == target {
		// the ledger write committed on an earlier delivery, but the booking
		// cascade may have failed after it. Redelivery is the retry path, so
		// re-run the cascade when the booking still lags the settled entry.
		behind, err := s.cascadeBehind(ctx, entry, target)
		if err != nil {
			return err
		}
		if behind {
			s.logger.Warn("booking lags settled ledger entry, re-running cascade",
				"transaction_id", entry.TransactionID,
				"booking_id", entry.BookingID,
				"status", entry.Status,
				"event_type", event.EventType)
			return s.cascade(ctx, entry, event, target)
		}
		s.logger.Info("webhook already applied, skipping",
			"transaction_id", entry.TransactionID,
			"status", entry.Status,
			"event_type", event.EventType)
		return nil
	}

	now := time.Now()
	if err := transition(entry, target, now); err != nil {
		s.logger.Error("reconciliation defect: gateway outcome conflicts with local state",
			"transaction_id", entry.TransactionID,
			"local_status", entry.Status,
			"event_type", event.EventType)
		return apperrors.NewReconciliationError(
			"gateway event conflicts with local ledger state",
			apperrors.ErrCodeInvalidEntryStatus, err)
	}

	if event.GatewayPaymentID != "" {
		entry.InvoiceReference = &event.GatewayPaymentID
	}
	if len(event.Raw) > 0 {
		entry.GatewayResponse = event.Raw
	}

	// ledger commits before the booking transition, per the recovery ordering
	if err := s.repo.Update(entry); err != nil {
		s.logger.Error("failed to persist ledger transition",
			"error", err,
			"transaction_id", entry.TransactionID,
			"to", target)
		return apperrors.NewInternalError("failed to update ledger entry", err)
	}

	s.logger.Info("ledger entry reconciled",
		"transaction_id", entry.TransactionID,
		"external_reference", event.ExternalReference,
		"status", target)

	return s.cascade(ctx, entry, event, target)
}

// cascadeBehind reports whether the booking lifecycle still sits in the state
// the applied entry status should have moved it out of. Only a strict lag
// counts: a booking that already advanced, or moved on through the recurring
// branch, must not get the cascade (and its notifications) a second time.
func (s *Service) cascadeBehind(ctx context.Context, entry *ledgermodel.Entry, target string) (bool, error) {
	switch target {
	case ledgermodel.StatusSucceeded, ledgermodel.StatusRefunded:
	default:
		// failure outcomes keep the booking in payment-pending, so there is
		// no lag the booking state could reveal
		return false, nil
	}

	b, err := s.bookings.GetBooking(ctx, entry.BookingID)
	if err != nil {
		return false, err
	}
	switch target {
	case ledgermodel.StatusSucceeded:
		return b.LifecycleState == string(booking.StatePaymentPending), nil
	case ledgermodel.StatusRefunded:
		return b.LifecycleState == string(booking.StateBookingConfirmed), nil
	}
	return false, nil
}

func (s *Service) cascade(ctx context.Context, entry *ledgermodel.Entry, event WebhookEvent, target string) error {
	switch target {
	case ledgermodel.StatusSucceeded:
		count, err := s.repo.CountSucceededPayments(entry.BookingID)
		if err != nil {
			return apperrors.NewInternalError("failed to count payments", err)
		}
		// the entry settled above is already in the count
		firstPayment := count == 1
		if err := s.bookings.ConfirmFromPayment(ctx, entry.BookingID, firstPayment); err != nil {
			return err
		}
		s.eventBus.Publish(ctx, events.NewPaymentSucceededEvent(
			entry.TransactionID, entry.BookingID, entry.PayerID,
			derefString(entry.ExternalReference), entry.GrossAmount, entry.NetAmount))

	case ledgermodel.StatusFailed, ledgermodel.StatusCancelled:
		// the unit was never granted; only the booking's payment track moves
		reason := event.FailureReason
		if reason == "" && target == ledgermodel.StatusCancelled {
			reason = "checkout session expired"
		}
		if err := s.bookings.HandlePaymentFailure(ctx, entry.BookingID, reason); err != nil {
			return err
		}
		s.eventBus.Publish(ctx, events.NewPaymentFailedEvent(
			entry.TransactionID, entry.BookingID, entry.PayerID,
			derefString(entry.ExternalReference), entry.GrossAmount, reason))

	case ledgermodel.StatusRefunded:
		// inverse of success: release the unit, cancel the booking
		if err := s.bookings.CancelFromRefund(ctx, entry.BookingID); err != nil {
			return err
		}
		s.eventBus.Publish(ctx, events.NewPaymentRefundedEvent(
			entry.TransactionID, entry.BookingID, entry.PayerID,
			derefString(entry.ExternalReference), entry.GrossAmount, entry.NetAmount))
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
