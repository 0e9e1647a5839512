package ledger

import (
	"encoding/json"
	"time"

	ledgermodel "storage-marketplace/internal/core/datamodel/ledger"
)

type CheckoutIntentRequest struct {
	BookingID int64 `json:"booking_id"`
	// Amount overrides the unit's period charge when positive; used for
	// negotiated prices on manual assignments.
	Amount int64 `json:"amount,omitempty"`
}

type CheckoutIntentResponse struct {
	TransactionID string `json:"transaction_id"`
	SessionID     string `json:"session_id"`
	CheckoutURL   string `json:"checkout_url"`
	GrossAmount   int64  `json:"gross_amount"`
	GatewayFee    int64  `json:"gateway_fee"`
	PlatformFee   int64  `json:"platform_fee"`
	NetAmount     int64  `json:"net_amount"`
}

// WebhookEvent is the gateway's asynchronous report of a checkout outcome.
// ExternalReference is the checkout session id the entry was issued with.
type WebhookEvent struct {
	EventType         string          `json:"event_type"`
	ExternalReference string          `json:"external_reference"`
	GatewayPaymentID  string          `json:"gateway_payment_id,omitempty"`
	Amount            int64           `json:"amount,omitempty"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	Raw               json.RawMessage `json:"-"`
}

const (
	WebhookCheckoutCompleted = "checkout.completed"
	WebhookCheckoutExpired   = "checkout.expired"
	WebhookPaymentFailed     = "payment.failed"
	WebhookPaymentRefunded   = "payment.refunded"
)

type RequestPayoutDTO struct {
	Amount int64 `json:"amount"`
}

type RejectPayoutDTO struct {
	Reason string `json:"reason"`
}

type EntryResponse struct {
	TransactionID     string     `json:"transaction_id"`
	ExternalReference *string    `json:"external_reference,omitempty"`
	BookingID         int64      `json:"booking_id,omitempty"`
	GrossAmount       int64      `json:"gross_amount"`
	GatewayFee        int64      `json:"gateway_fee"`
	PlatformFee       int64      `json:"platform_fee"`
	NetAmount         int64      `json:"net_amount"`
	RemainingAmount   int64      `json:"remaining_amount"`
	Kind              string     `json:"kind"`
	Status            string     `json:"status"`
	RejectReason      *string    `json:"reject_reason,omitempty"`
	PaymentDate       *time.Time `json:"payment_date,omitempty"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type BalanceResponse struct {
	OwnerID          int64 `json:"owner_id"`
	AvailableBalance int64 `json:"available_balance"`
	EntryCount       int   `json:"entry_count"`
}

func toEntryResponse(e *ledgermodel.Entry) *EntryResponse {
	return &EntryResponse{
		TransactionID:     e.TransactionID,
		ExternalReference: e.ExternalReference,
		BookingID:         e.BookingID,
		GrossAmount:       e.GrossAmount,
		GatewayFee:        e.GatewayFee,
		PlatformFee:       e.PlatformFee,
		NetAmount:         e.NetAmount,
		RemainingAmount:   e.RemainingAmount,
		Kind:              e.Kind,
		Status:            e.Status,
		RejectReason:      e.RejectReason,
		PaymentDate:       e.PaymentDate,
		RefundedAt:        e.RefundedAt,
		CreatedAt:         e.CreatedAt,
	}
}
