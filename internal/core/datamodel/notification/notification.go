package notification

import (
	"encoding/json"
	"time"
)

// Notification is a persisted dispatch intent. ActionCompleted doubles as the
// idempotency guard for admin actions triggered from a notification: the
// action is applied at most once no matter how often the admin clicks.
type Notification struct {
	ID              int64           `gorm:"primaryKey"`
	RecipientID     int64           `gorm:"column:recipient_id;not null;index"`
	Title           string          `gorm:"column:title;not null"`
	Message         string          `gorm:"column:message"`
	Category        string          `gorm:"column:category;index"`
	Priority        string          `gorm:"column:priority;default:normal"`
	Metadata        json.RawMessage `gorm:"column:metadata;type:jsonb"`
	ActionCompleted bool            `gorm:"column:action_completed;default:false"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

const (
	CategoryPaymentReminder = "payment-reminder"
	CategoryBooking         = "booking"
	CategoryPayment         = "payment"
	CategoryPayout          = "payout"

	PriorityNormal = "normal"
	PriorityHigh   = "high"
)
