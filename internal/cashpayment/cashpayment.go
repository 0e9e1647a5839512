package cashpayment

import (
	"context"
	"time"

	cashmodel "storage-marketplace/internal/core/datamodel/cashpayment"
)

type Repository interface {
	Create(req *cashmodel.Request) error
	GetByID(id int64) (*cashmodel.Request, error)
	GetOpenByBooking(bookingID int64) (*cashmodel.Request, error)
	ListByBooking(bookingID int64) ([]*cashmodel.Request, error)
	Update(req *cashmodel.Request) error
}

// PaymentRecorder is the slice of the ledger service the cash path needs: an
// approved request is recorded exactly like a manually collected payment.
type PaymentRecorder interface {
	CollectManual(ctx context.Context, bookingID, actorID int64, source string) error
	HasCompletedPayment(bookingID int64) (bool, error)
}

type CreateRequestDTO struct {
	BookingID int64 `json:"booking_id"`
	Amount    int64 `json:"amount"`
}

type ReviewRequestDTO struct {
	Reason string `json:"reason,omitempty"`
}

type RequestResponse struct {
	ID         int64      `json:"id"`
	BookingID  int64      `json:"booking_id"`
	CustomerID int64      `json:"customer_id"`
	Amount     int64      `json:"amount"`
	Status     string     `json:"status"`
	Reason     *string    `json:"reason,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toRequestResponse(r *cashmodel.Request) *RequestResponse {
	return &RequestResponse{
		ID:         r.ID,
		BookingID:  r.BookingID,
		CustomerID: r.CustomerID,
		Amount:     r.Amount,
		Status:     r.Status,
		Reason:     r.Reason,
		ReviewedAt: r.ReviewedAt,
		CreatedAt:  r.CreatedAt,
	}
}
