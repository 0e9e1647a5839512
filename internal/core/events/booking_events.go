package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeBookingConfirmed = "booking.confirmed"
	EventTypeBookingCancelled = "booking.cancelled"
	EventTypeBookingExpired   = "booking.expired"
	EventTypePaymentSucceeded = "payment.succeeded"
	EventTypePaymentFailed    = "payment.failed"
	EventTypePaymentRefunded  = "payment.refunded"
	EventTypePayoutExecuted   = "payout.executed"
	EventTypePayoutRejected   = "payout.rejected"
	EventTypeReminderDue      = "billing.reminder-due"
)

type BookingConfirmedEvent struct {
	BaseEvent
	BookingID    int64  `json:"booking_id"`
	CustomerID   int64  `json:"customer_id"`
	UnitID       int64  `json:"unit_id"`
	PropertyID   int64  `json:"property_id"`
	FirstPayment bool   `json:"first_payment"`
	Period       string `json:"period"`
}

func NewBookingConfirmedEvent(bookingID, customerID, unitID, propertyID int64, firstPayment bool, period string) *BookingConfirmedEvent {
	return &BookingConfirmedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeBookingConfirmed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"booking_id":    bookingID,
				"customer_id":   customerID,
				"unit_id":       unitID,
				"property_id":   propertyID,
				"first_payment": firstPayment,
				"period":        period,
			},
		},
		BookingID:    bookingID,
		CustomerID:   customerID,
		UnitID:       unitID,
		PropertyID:   propertyID,
		FirstPayment: firstPayment,
		Period:       period,
	}
}

type BookingCancelledEvent struct {
	BaseEvent
	BookingID  int64  `json:"booking_id"`
	CustomerID int64  `json:"customer_id"`
	UnitID     int64  `json:"unit_id"`
	Reason     string `json:"reason"`
	Expired    bool   `json:"expired"`
}

func NewBookingCancelledEvent(bookingID, customerID, unitID int64, reason string, expired bool) *BookingCancelledEvent {
	eventType := EventTypeBookingCancelled
	if expired {
		eventType = EventTypeBookingExpired
	}
	return &BookingCancelledEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"booking_id":  bookingID,
				"customer_id": customerID,
				"unit_id":     unitID,
				"reason":      reason,
				"expired":     expired,
			},
		},
		BookingID:  bookingID,
		CustomerID: customerID,
		UnitID:     unitID,
		Reason:     reason,
		Expired:    expired,
	}
}

type PaymentOutcomeEvent struct {
	BaseEvent
	TransactionID     string `json:"transaction_id"`
	BookingID         int64  `json:"booking_id"`
	CustomerID        int64  `json:"customer_id"`
	ExternalReference string `json:"external_reference"`
	GrossAmount       int64  `json:"gross_amount"`
	NetAmount         int64  `json:"net_amount"`
	FailureReason     string `json:"failure_reason,omitempty"`
}

func newPaymentOutcomeEvent(eventType, transactionID string, bookingID, customerID int64, externalReference string, grossAmount, netAmount int64, failureReason string) *PaymentOutcomeEvent {
	return &PaymentOutcomeEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"transaction_id":     transactionID,
				"booking_id":         bookingID,
				"customer_id":        customerID,
				"external_reference": externalReference,
				"gross_amount":       grossAmount,
				"net_amount":         netAmount,
				"failure_reason":     failureReason,
			},
		},
		TransactionID:     transactionID,
		BookingID:         bookingID,
		CustomerID:        customerID,
		ExternalReference: externalReference,
		GrossAmount:       grossAmount,
		NetAmount:         netAmount,
		FailureReason:     failureReason,
	}
}

func NewPaymentSucceededEvent(transactionID string, bookingID, customerID int64, externalReference string, grossAmount, netAmount int64) *PaymentOutcomeEvent {
	return newPaymentOutcomeEvent(EventTypePaymentSucceeded, transactionID, bookingID, customerID, externalReference, grossAmount, netAmount, "")
}

func NewPaymentFailedEvent(transactionID string, bookingID, customerID int64, externalReference string, grossAmount int64, failureReason string) *PaymentOutcomeEvent {
	return newPaymentOutcomeEvent(EventTypePaymentFailed, transactionID, bookingID, customerID, externalReference, grossAmount, 0, failureReason)
}

func NewPaymentRefundedEvent(transactionID string, bookingID, customerID int64, externalReference string, grossAmount, netAmount int64) *PaymentOutcomeEvent {
	return newPaymentOutcomeEvent(EventTypePaymentRefunded, transactionID, bookingID, customerID, externalReference, grossAmount, netAmount, "")
}

type PayoutEvent struct {
	BaseEvent
	TransactionID string `json:"transaction_id"`
	OwnerID       int64  `json:"owner_id"`
	NetAmount     int64  `json:"net_amount"`
	Reason        string `json:"reason,omitempty"`
}

func NewPayoutExecutedEvent(transactionID string, ownerID, netAmount int64) *PayoutEvent {
	return &PayoutEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePayoutExecuted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"transaction_id": transactionID,
				"owner_id":       ownerID,
				"net_amount":     netAmount,
			},
		},
		TransactionID: transactionID,
		OwnerID:       ownerID,
		NetAmount:     netAmount,
	}
}

func NewPayoutRejectedEvent(transactionID string, ownerID int64, reason string) *PayoutEvent {
	return &PayoutEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePayoutRejected,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"transaction_id": transactionID,
				"owner_id":       ownerID,
				"reason":         reason,
			},
		},
		TransactionID: transactionID,
		OwnerID:       ownerID,
		Reason:        reason,
	}
}

type ReminderDueEvent struct {
	BaseEvent
	BookingID   int64     `json:"booking_id"`
	CustomerID  int64     `json:"customer_id"`
	BillingDate time.Time `json:"billing_date"`
	Amount      int64     `json:"amount"`
}

func NewReminderDueEvent(bookingID, customerID int64, billingDate time.Time, amount int64) *ReminderDueEvent {
	return &ReminderDueEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeReminderDue,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"booking_id":   bookingID,
				"customer_id":  customerID,
				"billing_date": billingDate,
				"amount":       amount,
			},
		},
		BookingID:   bookingID,
		CustomerID:  customerID,
		BillingDate: billingDate,
		Amount:      amount,
	}
}
