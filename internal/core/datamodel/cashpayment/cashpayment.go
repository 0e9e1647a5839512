package cashpayment

import "time"

// Request is the human-mediated payment path. An approved request makes the
// booking and ledger behave as though an online payment succeeded.
type Request struct {
	ID         int64      `gorm:"primaryKey"`
	BookingID  int64      `gorm:"column:booking_id;not null;index"`
	CustomerID int64      `gorm:"column:customer_id;not null"`
	Amount     int64      `gorm:"column:amount;not null"`
	Status     string     `gorm:"column:status;default:pending"`
	Reason     *string    `gorm:"column:reason"`
	ReviewedBy *int64     `gorm:"column:reviewed_by"`
	ReviewedAt *time.Time `gorm:"column:reviewed_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Request) TableName() string {
	return "cash_payment_requests"
}

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)
