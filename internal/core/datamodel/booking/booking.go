package booking

import (
	"time"

	"gorm.io/gorm"
)

// Booking is one customer's claim on one storage unit. StartDate/EndDate stay
// nil until the first successful payment establishes the rental term.
type Booking struct {
	ID                   int64          `gorm:"primaryKey"`
	CustomerID           int64          `gorm:"column:customer_id;not null;index"`
	UnitID               int64          `gorm:"column:unit_id;not null;index"`
	PropertyID           int64          `gorm:"column:property_id;not null"`
	StartDate            *time.Time     `gorm:"column:start_date"`
	EndDate              *time.Time     `gorm:"column:end_date"`
	LifecycleState       string         `gorm:"column:lifecycle_state;default:initiated"`
	PaymentState         string         `gorm:"column:payment_state;default:unpaid"`
	PaymentPeriod        string         `gorm:"column:payment_period;default:monthly"`
	IsManualAssignment   bool           `gorm:"column:is_manual_assignment;default:false"`
	MeetingID            *int64         `gorm:"column:meeting_id"`
	CashPaymentRequestID *int64         `gorm:"column:cash_payment_request_id"`
	LastReminderSentOn   *time.Time     `gorm:"column:last_reminder_sent_on;type:date"`
	CreatedAt            time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt            gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

const (
	PaymentStateUnpaid  = "unpaid"
	PaymentStatePending = "pending"
	PaymentStatePaid    = "paid"

	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)
