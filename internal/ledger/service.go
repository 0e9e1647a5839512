package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "storage-marketplace/internal"
	"storage-marketplace/internal/booking"
	"storage-marketplace/internal/catalog"
	"storage-marketplace/internal/core/common/lock"
	ledgermodel "storage-marketplace/internal/core/datamodel/ledger"
	"storage-marketplace/internal/core/events"
	"storage-marketplace/internal/gateway"
)

type Service struct {
	repo     Repository
	bookings BookingTransitions
	catalog  *catalog.Service
	gateway  *gateway.Client
	cash     CashRequestChecker
	fees     FeeSchedule
	eventBus *events.EventBus
	locks    *lock.KeyedMutex
	logger   *slog.Logger
}

func NewService(repo Repository, bookings BookingTransitions, catalogService *catalog.Service, gatewayClient *gateway.Client, fees FeeSchedule, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		bookings: bookings,
		catalog:  catalogService,
		gateway:  gatewayClient,
		fees:     fees,
		eventBus: eventBus,
		locks:    lock.NewKeyedMutex(),
		logger:   logger,
	}
}

// SetCashRequestChecker attaches the cash payment service, wired after
// construction because the two services reference each other.
func (s *Service) SetCashRequestChecker(cash CashRequestChecker) {
	s.cash = cash
}

func entryLockKey(reference string) string {
	return fmt.Sprintf("ledger:%s", reference)
}

func ownerLockKey(ownerID int64) string {
	return fmt.Sprintf("payout-owner:%d", ownerID)
}

// CreateCheckout is the payment intent issuer: it prices the booking's
// period, records a pending ledger entry against the gateway checkout session
// and moves the booking to payment-pending. Nothing here marks anything as
// paid; the webhook reconciler owns settlement.
func (s *Service) CreateCheckout(ctx context.Context, customerID int64, req CheckoutIntentRequest) (*CheckoutIntentResponse, error) {
	b, err := s.bookings.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != customerID {
		return nil, apperrors.ErrUnauthorizedAccess
	}

	completed, err := s.HasCompletedPayment(b.ID)
	if err != nil {
		return nil, err
	}
	if completed {
		return nil, apperrors.ErrPaymentAlreadyMade
	}

	if s.cash != nil {
		open, err := s.cash.HasOpenRequest(b.ID)
		if err != nil {
			return nil, err
		}
		if open {
			return nil, apperrors.ErrCashRequestOpen
		}
	}

	// reject states that cannot move to payment-pending before the gateway
	// session or the pending entry exists; MarkPaymentPending below performs
	// the authoritative transition under the booking lock
	if _, _, err := booking.Next(booking.State(b.LifecycleState), booking.Event{Kind: booking.EventIssueCheckout}); err != nil {
		return nil, err
	}

	gross := req.Amount
	if gross <= 0 {
		unit, err := s.catalog.GetUnit(b.UnitID)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to load storage unit", err)
		}
		gross = catalog.PeriodCharge(unit, b.PaymentPeriod)
	}
	if gross <= 0 {
		return nil, apperrors.NewValidationError("charge amount must be positive", apperrors.ErrCodeInvalidAmount)
	}

	property, err := s.catalog.GetProperty(b.PropertyID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load property", err)
	}

	breakdown := s.fees.Compute(gross)
	transactionID := uuid.New().String()

	session, err := s.gateway.CreateCheckoutSession(ctx, gateway.CheckoutRequest{
		ReferenceID: transactionID,
		Amount:      gross,
		Description: fmt.Sprintf("Storage unit rental, booking %d", b.ID),
		Metadata: map[string]string{
			"booking_id":     fmt.Sprintf("%d", b.ID),
			"transaction_id": transactionID,
		},
	})
	if err != nil {
		return nil, apperrors.NewConflictError("failed to create checkout session", apperrors.ErrCodeCheckoutFailed).WithCause(err)
	}

	entry := &ledgermodel.Entry{
		TransactionID:     transactionID,
		ExternalReference: &session.ID,
		PayerID:           b.CustomerID,
		ReceiverID:        property.OwnerID,
		BookingID:         b.ID,
		UnitID:            b.UnitID,
		PropertyID:        b.PropertyID,
		GrossAmount:       gross,
		BaseAmount:        gross,
		GatewayFee:        breakdown.GatewayFee,
		PlatformFee:       breakdown.PlatformFee,
		NetAmount:         breakdown.NetAmount,
		Kind:              ledgermodel.KindPayment,
		Status:            ledgermodel.StatusPending,
	}
	if err := s.repo.Create(entry); err != nil {
		s.logger.Error("failed to create ledger entry", "error", err, "booking_id", b.ID)
		return nil, apperrors.NewInternalError("failed to record payment intent", err)
	}

	if err := s.bookings.MarkPaymentPending(ctx, b.ID); err != nil {
		return nil, err
	}

	s.logger.Info("checkout issued",
		"transaction_id", transactionID,
		"session_id", session.ID,
		"booking_id", b.ID,
		"gross_amount", gross,
		"net_amount", breakdown.NetAmount)

	return &CheckoutIntentResponse{
		TransactionID: transactionID,
		SessionID:     session.ID,
		CheckoutURL:   session.URL,
		GrossAmount:   gross,
		GatewayFee:    breakdown.GatewayFee,
		PlatformFee:   breakdown.PlatformFee,
		NetAmount:     breakdown.NetAmount,
	}, nil
}

// HasCompletedPayment implements booking.PaymentCollector.
func (s *Service) HasCompletedPayment(bookingID int64) (bool, error) {
	count, err := s.repo.CountSucceededPayments(bookingID)
	if err != nil {
		return false, apperrors.NewInternalError("failed to count payments", err)
	}
	return count > 0, nil
}

// CollectManual implements booking.PaymentCollector: it records a settled
// payment without a gateway checkout and cascades the booking transition,
// behaving as though an online payment had succeeded. Used by the admin
// collect-payment command and by approved cash payment requests.
func (s *Service) CollectManual(ctx context.Context, bookingID, actorID int64, source string) error {
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	key := entryLockKey(fmt.Sprintf("manual:%d", bookingID))
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	count, err := s.repo.CountSucceededPayments(bookingID)
	if err != nil {
		return apperrors.NewInternalError("failed to count payments", err)
	}
	firstPayment := count == 0

	unit, err := s.catalog.GetUnit(b.UnitID)
	if err != nil {
		return apperrors.NewInternalError("failed to load storage unit", err)
	}
	property, err := s.catalog.GetProperty(b.PropertyID)
	if err != nil {
		return apperrors.NewInternalError("failed to load property", err)
	}

	gross := catalog.PeriodCharge(unit, b.PaymentPeriod)
	breakdown := s.fees.Compute(gross)
	now := time.Now()
	reference := fmt.Sprintf("%s:%s", source, uuid.New().String())

	entry := &ledgermodel.Entry{
		TransactionID:    uuid.New().String(),
		PayerID:          b.CustomerID,
		ReceiverID:       property.OwnerID,
		BookingID:        b.ID,
		UnitID:           b.UnitID,
		PropertyID:       b.PropertyID,
		GrossAmount:      gross,
		BaseAmount:       gross,
		GatewayFee:       breakdown.GatewayFee,
		PlatformFee:      breakdown.PlatformFee,
		NetAmount:        breakdown.NetAmount,
		RemainingAmount:  breakdown.NetAmount,
		Kind:             ledgermodel.KindPayment,
		Status:           ledgermodel.StatusSucceeded,
		InvoiceReference: &reference,
		PaymentDate:      &now,
	}
	if err := s.repo.Create(entry); err != nil {
		s.logger.Error("failed to record manual payment", "error", err, "booking_id", bookingID, "source", source)
		return apperrors.NewInternalError("failed to record payment", err)
	}

	if err := s.bookings.ConfirmFromPayment(ctx, bookingID, firstPayment); err != nil {
		return err
	}

	s.eventBus.Publish(ctx, events.NewPaymentSucceededEvent(
		entry.TransactionID, b.ID, b.CustomerID, reference, gross, breakdown.NetAmount))

	s.logger.Info("manual payment collected",
		"transaction_id", entry.TransactionID,
		"booking_id", bookingID,
		"actor_id", actorID,
		"source", source,
		"first_payment", firstPayment,
		"gross_amount", gross)
	return nil
}

// HasSucceededPaymentInWindow reports whether a successful payment exists for
// the booking inside the given billing window. The reminder scanner uses it
// to suppress reminders for windows already covered.
func (s *Service) HasSucceededPaymentInWindow(bookingID int64, from, to time.Time) (bool, error) {
	covered, err := s.repo.HasSucceededPaymentInWindow(bookingID, from, to)
	if err != nil {
		return false, apperrors.NewInternalError("failed to query billing window", err)
	}
	return covered, nil
}

func (s *Service) GetEntry(ctx context.Context, transactionID string, requesterID int64, isAdmin bool) (*EntryResponse, error) {
	entry, err := s.getEntry(transactionID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && entry.PayerID != requesterID && entry.ReceiverID != requesterID {
		return nil, apperrors.ErrUnauthorizedAccess
	}
	return toEntryResponse(entry), nil
}

func (s *Service) ListBookingPayments(ctx context.Context, bookingID int64) ([]*EntryResponse, error) {
	entries, err := s.repo.ListPaymentsByBooking(bookingID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list payments", err)
	}
	responses := make([]*EntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, toEntryResponse(e))
	}
	return responses, nil
}

func (s *Service) getEntry(transactionID string) (*ledgermodel.Entry, error) {
	entry, err := s.repo.GetByTransactionID(transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEntryNotFound
		}
		return nil, apperrors.NewInternalError("failed to load ledger entry", err)
	}
	return entry, nil
}
