package booking

import (
	"time"

	bookingmodel "storage-marketplace/internal/core/datamodel/booking"
)

type CreateBookingRequest struct {
	UnitID        int64  `json:"unit_id"`
	PaymentPeriod string `json:"payment_period"`
}

type ManualAssignmentRequest struct {
	CustomerID    int64  `json:"customer_id"`
	UnitID        int64  `json:"unit_id"`
	PaymentPeriod string `json:"payment_period"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

type ScheduleMeetingRequest struct {
	MeetingID int64 `json:"meeting_id"`
}

type BookingResponse struct {
	ID                 int64      `json:"id"`
	CustomerID         int64      `json:"customer_id"`
	UnitID             int64      `json:"unit_id"`
	PropertyID         int64      `json:"property_id"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	LifecycleState     string     `json:"lifecycle_state"`
	PaymentState       string     `json:"payment_state"`
	PaymentPeriod      string     `json:"payment_period"`
	IsManualAssignment bool       `json:"is_manual_assignment"`
	MeetingID          *int64     `json:"meeting_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toBookingResponse(b *bookingmodel.Booking) *BookingResponse {
	return &BookingResponse{
		ID:                 b.ID,
		CustomerID:         b.CustomerID,
		UnitID:             b.UnitID,
		PropertyID:         b.PropertyID,
		StartDate:          b.StartDate,
		EndDate:            b.EndDate,
		LifecycleState:     b.LifecycleState,
		PaymentState:       b.PaymentState,
		PaymentPeriod:      b.PaymentPeriod,
		IsManualAssignment: b.IsManualAssignment,
		MeetingID:          b.MeetingID,
		CreatedAt:          b.CreatedAt,
	}
}
