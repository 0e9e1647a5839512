package document

import (
	"context"
	"time"

	documentmodel "storage-marketplace/internal/core/datamodel/document"
)

type Repository interface {
	Create(doc *documentmodel.BookingDocument) error
	GetByID(id int64) (*documentmodel.BookingDocument, error)
	GetByBookingID(bookingID int64) ([]*documentmodel.BookingDocument, error)
	Update(doc *documentmodel.BookingDocument) error
}

// BookingProgress is implemented by the booking service. The document service
// reports submissions and the review outcome of a booking's full document set;
// the booking service decides whether a lifecycle transition follows.
type BookingProgress interface {
	DocumentsSubmitted(ctx context.Context, bookingID int64) error
	DocumentsResubmitted(ctx context.Context, bookingID int64) error
	ApplyDocumentReview(ctx context.Context, bookingID int64, summary Summary) error
}

// Summary aggregates the review status of every document attached to a
// booking. A booking advances past the document stage only when AllApproved.
type Summary struct {
	Total                int `json:"total"`
	Approved             int `json:"approved"`
	Rejected             int `json:"rejected"`
	PendingReview        int `json:"pending_review"`
	ResubmissionRequired int `json:"resubmission_required"`
}

func (s Summary) AllApproved() bool {
	return s.Total > 0 && s.Approved == s.Total
}

func (s Summary) AnyRejected() bool {
	return s.Rejected > 0
}

func summarize(docs []*documentmodel.BookingDocument) Summary {
	var s Summary
	s.Total = len(docs)
	for _, d := range docs {
		switch d.Status {
		case documentmodel.StatusApproved:
			s.Approved++
		case documentmodel.StatusRejected:
			s.Rejected++
		case documentmodel.StatusResubmissionRequired:
			s.ResubmissionRequired++
		default:
			s.PendingReview++
		}
	}
	return s
}

type SubmitDocumentRequest struct {
	BookingID int64  `json:"booking_id"`
	Kind      string `json:"kind"`
}

type ReviewDocumentRequest struct {
	Decision string  `json:"decision"`
	Note     *string `json:"note,omitempty"`
}

const (
	DecisionApprove             = "approve"
	DecisionReject              = "reject"
	DecisionRequestResubmission = "request-resubmission"
)

type DocumentResponse struct {
	ID         int64      `json:"id"`
	BookingID  int64      `json:"booking_id"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	ReviewNote *string    `json:"review_note,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toDocumentResponse(d *documentmodel.BookingDocument) *DocumentResponse {
	return &DocumentResponse{
		ID:         d.ID,
		BookingID:  d.BookingID,
		Kind:       d.Kind,
		Status:     d.Status,
		ReviewNote: d.ReviewNote,
		ReviewedAt: d.ReviewedAt,
		CreatedAt:  d.CreatedAt,
	}
}
