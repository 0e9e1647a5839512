package document

import "time"

// BookingDocument is the review-side record of an uploaded verification
// document. Upload and storage of the file itself happen elsewhere; the
// booking lifecycle only consumes the status aggregate.
type BookingDocument struct {
	ID         int64      `gorm:"primaryKey"`
	BookingID  int64      `gorm:"column:booking_id;not null;index"`
	CustomerID int64      `gorm:"column:customer_id;not null"`
	Kind       string     `gorm:"column:kind;not null"`
	Status     string     `gorm:"column:status;default:pending"`
	ReviewNote *string    `gorm:"column:review_note"`
	ReviewedBy *int64     `gorm:"column:reviewed_by"`
	ReviewedAt *time.Time `gorm:"column:reviewed_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

const (
	StatusPending              = "pending"
	StatusApproved             = "approved"
	StatusRejected             = "rejected"
	StatusResubmissionRequired = "resubmission-required"
	StatusResubmitted          = "resubmitted"
)
