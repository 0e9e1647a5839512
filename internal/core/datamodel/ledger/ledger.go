package ledger

import (
	"encoding/json"
	"time"
)

// Entry is one money movement in either direction. All amounts are minor
// currency units. RemainingAmount tracks the portion of a settled payment's
// net amount not yet paid out to the property owner; payout entries always
// carry zero.
type Entry struct {
	ID                int64           `gorm:"primaryKey"`
	TransactionID     string          `gorm:"column:transaction_id;not null;uniqueIndex"`
	ExternalReference *string         `gorm:"column:external_reference;index"`
	PayerID           int64           `gorm:"column:payer_id;not null"`
	ReceiverID        int64           `gorm:"column:receiver_id;not null;index"`
	BookingID         int64           `gorm:"column:booking_id;index"`
	UnitID            int64           `gorm:"column:unit_id"`
	PropertyID        int64           `gorm:"column:property_id"`
	GrossAmount       int64           `gorm:"column:gross_amount;not null"`
	BaseAmount        int64           `gorm:"column:base_amount;not null"`
	GatewayFee        int64           `gorm:"column:gateway_fee;not null"`
	PlatformFee       int64           `gorm:"column:platform_fee;not null"`
	NetAmount         int64           `gorm:"column:net_amount;not null"`
	RemainingAmount   int64           `gorm:"column:remaining_amount;not null;default:0"`
	Kind              string          `gorm:"column:kind;not null"`
	Status            string          `gorm:"column:status;not null"`
	InvoiceReference  *string         `gorm:"column:invoice_reference"`
	GatewayPayoutID   *string         `gorm:"column:gateway_payout_id"`
	RejectReason      *string         `gorm:"column:reject_reason"`
	GatewayResponse   json.RawMessage `gorm:"column:gateway_response;type:jsonb"`
	PaymentDate       *time.Time      `gorm:"column:payment_date"`
	RefundedAt        *time.Time      `gorm:"column:refunded_at"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Entry) TableName() string {
	return "ledger_entries"
}

// Allocation is one row of a payout's allocation plan: which payment entry
// funds the payout and in which order it is drawn down.
type Allocation struct {
	ID                   int64     `gorm:"primaryKey"`
	PayoutTransactionID  string    `gorm:"column:payout_transaction_id;not null;index"`
	PaymentTransactionID string    `gorm:"column:payment_transaction_id;not null"`
	Position             int       `gorm:"column:position;not null"`
	DeductedAmount       int64     `gorm:"column:deducted_amount;not null;default:0"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Allocation) TableName() string {
	return "payout_allocations"
}

const (
	KindPayment = "payment"
	KindPayout  = "payout"

	// payment entry statuses
	StatusPending   = "pending"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusRefunded  = "refunded"

	// payout entry statuses
	StatusRequested  = "requested"
	StatusProcessing = "processing"
	StatusPaid       = "paid"
	StatusRejected   = "rejected"
)
