package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	apperrors "storage-marketplace/internal"
	"storage-marketplace/internal/catalog"
	"storage-marketplace/internal/core/common/lock"
	"storage-marketplace/internal/core/common/validation"
	bookingmodel "storage-marketplace/internal/core/datamodel/booking"
	"storage-marketplace/internal/core/events"
	"storage-marketplace/internal/document"
)

type Service struct {
	repo      Repository
	catalog   *catalog.Service
	eventBus  *events.EventBus
	guard     ActionGuard
	collector PaymentCollector
	locks     *lock.KeyedMutex
	logger    *slog.Logger
}

func NewService(repo Repository, catalogService *catalog.Service, eventBus *events.EventBus, guard ActionGuard, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		catalog:  catalogService,
		eventBus: eventBus,
		guard:    guard,
		locks:    lock.NewKeyedMutex(),
		logger:   logger,
	}
}

// SetPaymentCollector attaches the ledger service. The booking and ledger
// services reference each other, so this side is wired after construction.
func (s *Service) SetPaymentCollector(collector PaymentCollector) {
	s.collector = collector
}

func bookingLockKey(bookingID int64) string {
	return fmt.Sprintf("booking:%d", bookingID)
}

// Create opens a booking in the initiated state for the requesting customer.
// The unit must exist and must not already carry an active booking.
func (s *Service) Create(ctx context.Context, customerID int64, req CreateBookingRequest) (*BookingResponse, error) {
	if err := validation.ValidatePaymentPeriod(req.PaymentPeriod); err != nil {
		return nil, err
	}

	unit, err := s.catalog.GetUnit(req.UnitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("Storage unit not found", apperrors.ErrCodeUnitUnavailable)
		}
		return nil, apperrors.NewInternalError("failed to load storage unit", err)
	}
	if unit.IsOccupied {
		return nil, apperrors.NewConflictError("storage unit is already occupied", apperrors.ErrCodeUnitUnavailable)
	}
	if existing, err := s.repo.GetActiveByUnit(req.UnitID); err == nil && existing != nil {
		return nil, apperrors.NewConflictError("storage unit already has an active booking", apperrors.ErrCodeUnitUnavailable)
	}

	b := &bookingmodel.Booking{
		CustomerID:     customerID,
		UnitID:         unit.ID,
		PropertyID:     unit.PropertyID,
		LifecycleState: string(StateInitiated),
		PaymentState:   bookingmodel.PaymentStateUnpaid,
		PaymentPeriod:  req.PaymentPeriod,
	}
	if err := s.repo.Create(b); err != nil {
		s.logger.Error("failed to create booking", "error", err, "customer_id", customerID, "unit_id", req.UnitID)
		return nil, apperrors.NewInternalError("failed to create booking", err)
	}

	s.logger.Info("booking created",
		"booking_id", b.ID,
		"customer_id", customerID,
		"unit_id", b.UnitID,
		"period", b.PaymentPeriod)
	return toBookingResponse(b), nil
}

// AssignManually is the admin entry point that creates a booking on a
// customer's behalf and skips the meeting/document track: the booking starts
// initiated and goes straight to payment-pending at checkout issuance.
func (s *Service) AssignManually(ctx context.Context, adminID int64, req ManualAssignmentRequest) (*BookingResponse, error) {
	resp, err := s.Create(ctx, req.CustomerID, CreateBookingRequest{
		UnitID:        req.UnitID,
		PaymentPeriod: req.PaymentPeriod,
	})
	if err != nil {
		return nil, err
	}

	b, err := s.repo.GetByID(resp.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to reload booking", err)
	}
	b.IsManualAssignment = true
	if err := s.repo.Update(b); err != nil {
		return nil, apperrors.NewInternalError("failed to flag manual assignment", err)
	}

	s.logger.Info("booking manually assigned", "booking_id", b.ID, "admin_id", adminID, "customer_id", req.CustomerID)
	resp.IsManualAssignment = true
	return resp, nil
}

func (s *Service) Get(ctx context.Context, bookingID, requesterID int64, isAdmin bool) (*BookingResponse, error) {
	b, err := s.getBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && b.CustomerID != requesterID {
		return nil, apperrors.ErrUnauthorizedAccess
	}
	return toBookingResponse(b), nil
}

func (s *Service) ListByCustomer(ctx context.Context, customerID int64) ([]*BookingResponse, error) {
	bookings, err := s.repo.ListByCustomer(customerID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list bookings", err)
	}
	responses := make([]*BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		responses = append(responses, toBookingResponse(b))
	}
	return responses, nil
}

func (s *Service) RequestMeeting(ctx context.Context, bookingID, customerID, meetingID int64) (*BookingResponse, error) {
	b, err := s.getBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != customerID {
		return nil, apperrors.ErrUnauthorizedAccess
	}

	updated, err := s.applyEvent(ctx, bookingID, Event{Kind: EventRequestMeeting}, func(b *bookingmodel.Booking) {
		b.MeetingID = &meetingID
	})
	if err != nil {
		return nil, err
	}
	return toBookingResponse(updated), nil
}

func (s *Service) ConfirmMeeting(ctx context.Context, bookingID int64) (*BookingResponse, error) {
	updated, err := s.applyEvent(ctx, bookingID, Event{Kind: EventConfirmMeeting}, nil)
	if err != nil {
		return nil, err
	}
	return toBookingResponse(updated), nil
}

func (s *Service) RejectMeeting(ctx context.Context, bookingID int64) (*BookingResponse, error) {
	updated, err := s.applyEvent(ctx, bookingID, Event{Kind: EventRejectMeeting}, nil)
	if err != nil {
		return nil, err
	}
	return toBookingResponse(updated), nil
}

// DocumentsSubmitted implements document.BookingProgress.
func (s *Service) DocumentsSubmitted(ctx context.Context, bookingID int64) error {
	_, err := s.applyEvent(ctx, bookingID, Event{Kind: EventUploadDocuments}, nil)
	return err
}

// DocumentsResubmitted implements document.BookingProgress.
func (s *Service) DocumentsResubmitted(ctx context.Context, bookingID int64) error {
	_, err := s.applyEvent(ctx, bookingID, Event{Kind: EventResubmitDocuments}, nil)
	return err
}

// ApplyDocumentReview implements document.BookingProgress. The transition is
// computed from the full document set, so a single approval never advances a
// booking while other documents are still outstanding.
func (s *Service) ApplyDocumentReview(ctx context.Context, bookingID int64, summary document.Summary) error {
	_, err := s.applyEvent(ctx, bookingID, Event{
		Kind: EventReviewDocuments,
		Review: DocumentReview{
			Total:                summary.Total,
			Approved:             summary.Approved,
			Rejected:             summary.Rejected,
			PendingReview:        summary.PendingReview,
			ResubmissionRequired: summary.ResubmissionRequired,
		},
	}, nil)
	return err
}

// MarkPaymentPending moves the booking into payment-pending when a checkout
// session is issued for it.
func (s *Service) MarkPaymentPending(ctx context.Context, bookingID int64) error {
	_, err := s.applyEvent(ctx, bookingID, Event{Kind: EventIssueCheckout}, func(b *bookingmodel.Booking) {
		b.PaymentState = bookingmodel.PaymentStatePending
	})
	return err
}

// ConfirmFromPayment transitions the booking after a settled ledger entry:
// webhook success, approved cash request, or manual admin collection. The
// first payment establishes the 12-month term; recurring payments keep the
// existing dates.
func (s *Service) ConfirmFromPayment(ctx context.Context, bookingID int64, firstPayment bool) error {
	_, err := s.applyEvent(ctx, bookingID, Event{Kind: EventPaymentSucceeded, FirstPayment: firstPayment}, func(b *bookingmodel.Booking) {
		b.PaymentState = bookingmodel.PaymentStatePaid
	})
	return err
}

// HandlePaymentFailure records a failed or expired checkout. The booking
// stays in payment-pending so the customer can retry; the unit was never
// granted, so occupancy is untouched.
func (s *Service) HandlePaymentFailure(ctx context.Context, bookingID int64, reason string) error {
	_, err := s.applyEvent(ctx, bookingID, Event{Kind: EventPaymentFailed, Reason: reason}, func(b *bookingmodel.Booking) {
		b.PaymentState = bookingmodel.PaymentStateUnpaid
	})
	return err
}

// CancelFromRefund is the inverse of a successful payment: the unit is
// released and the booking cancelled.
func (s *Service) CancelFromRefund(ctx context.Context, bookingID int64) error {
	_, err := s.applyEvent(ctx, bookingID, Event{Kind: EventRefund, Reason: "payment refunded"}, func(b *bookingmodel.Booking) {
		b.PaymentState = bookingmodel.PaymentStateUnpaid
	})
	return err
}

func (s *Service) Cancel(ctx context.Context, bookingID, requesterID int64, isAdmin bool, reason string) (*BookingResponse, error) {
	b, err := s.getBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && b.CustomerID != requesterID {
		return nil, apperrors.ErrUnauthorizedAccess
	}

	updated, err := s.applyEvent(ctx, bookingID, Event{Kind: EventCancel, Reason: reason}, nil)
	if err != nil {
		return nil, err
	}
	return toBookingResponse(updated), nil
}

// Expire is the scanner's transition for confirmed bookings whose term has
// ended. Side effects match cancellation: the unit is released.
func (s *Service) Expire(ctx context.Context, bookingID int64) error {
	_, err := s.applyEvent(ctx, bookingID, Event{Kind: EventExpire, Reason: "rental term ended"}, nil)
	return err
}

// GetBooking exposes the raw record to the ledger side, which needs the
// customer, unit and property linkage when settling entries.
func (s *Service) GetBooking(ctx context.Context, bookingID int64) (*bookingmodel.Booking, error) {
	return s.getBooking(bookingID)
}

func (s *Service) getBooking(bookingID int64) (*bookingmodel.Booking, error) {
	b, err := s.repo.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, apperrors.NewInternalError("failed to load booking", err)
	}
	return b, nil
}

// applyEvent is the single write path for lifecycle state. It serializes
// per-booking, runs the pure transition, persists the new state, then
// executes side effects. Catalog and notification failures are logged as
// reconciliation defects and never roll back the persisted transition.
func (s *Service) applyEvent(ctx context.Context, bookingID int64, event Event, mutate func(*bookingmodel.Booking)) (*bookingmodel.Booking, error) {
	key := bookingLockKey(bookingID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	b, err := s.getBooking(bookingID)
	if err != nil {
		return nil, err
	}

	next, effects, err := Next(State(b.LifecycleState), event)
	if err != nil {
		s.logger.Warn("booking transition rejected",
			"booking_id", bookingID,
			"current_state", b.LifecycleState,
			"event", event.Kind,
			"error", err)
		return nil, err
	}

	previous := b.LifecycleState
	b.LifecycleState = string(next)
	if mutate != nil {
		mutate(b)
	}
	now := time.Now()
	for _, effect := range effects {
		switch effect {
		case EffectEstablishTerm:
			end := now.AddDate(1, 0, 0)
			b.StartDate = &now
			b.EndDate = &end
		case EffectCloseTerm:
			if b.StartDate != nil {
				b.EndDate = &now
			}
		}
	}

	if err := s.repo.Update(b); err != nil {
		s.logger.Error("failed to persist booking transition",
			"error", err,
			"booking_id", bookingID,
			"from", previous,
			"to", b.LifecycleState)
		return nil, apperrors.NewInternalError("failed to update booking", err)
	}

	s.logger.Info("booking transitioned",
		"booking_id", bookingID,
		"from", previous,
		"to", b.LifecycleState,
		"event", event.Kind)

	s.executeEffects(ctx, b, event, effects)
	return b, nil
}

func (s *Service) executeEffects(ctx context.Context, b *bookingmodel.Booking, event Event, effects []Effect) {
	for _, effect := range effects {
		switch effect {
		case EffectOccupyUnit:
			if err := s.catalog.SetOccupancy(b.UnitID, true); err != nil {
				s.logReconciliationDefect(b, "unit occupancy not granted", err)
				continue
			}
			if err := s.catalog.IncrementActiveCount(b.PropertyID, 1); err != nil {
				s.logReconciliationDefect(b, "property active count not incremented", err)
			}
		case EffectReleaseUnit:
			if err := s.catalog.SetOccupancy(b.UnitID, false); err != nil {
				s.logReconciliationDefect(b, "unit occupancy not released", err)
				continue
			}
			if err := s.catalog.IncrementActiveCount(b.PropertyID, -1); err != nil {
				s.logReconciliationDefect(b, "property active count not decremented", err)
			}
		case EffectNotifyConfirmed:
			s.eventBus.Publish(ctx, events.NewBookingConfirmedEvent(
				b.ID, b.CustomerID, b.UnitID, b.PropertyID, event.FirstPayment, b.PaymentPeriod))
		case EffectNotifyRecurrence:
			s.eventBus.Publish(ctx, events.NewBookingConfirmedEvent(
				b.ID, b.CustomerID, b.UnitID, b.PropertyID, false, b.PaymentPeriod))
		case EffectNotifyCancelled:
			s.eventBus.Publish(ctx, events.NewBookingCancelledEvent(
				b.ID, b.CustomerID, b.UnitID, event.Reason, false))
		case EffectNotifyExpired:
			s.eventBus.Publish(ctx, events.NewBookingCancelledEvent(
				b.ID, b.CustomerID, b.UnitID, event.Reason, true))
		}
	}
}

func (s *Service) logReconciliationDefect(b *bookingmodel.Booking, message string, err error) {
	s.logger.Error("reconciliation defect: "+message,
		"error", err,
		"booking_id", b.ID,
		"unit_id", b.UnitID,
		"property_id", b.PropertyID,
		"lifecycle_state", b.LifecycleState)
}
