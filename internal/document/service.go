package document

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	apperrors "storage-marketplace/internal"
	documentmodel "storage-marketplace/internal/core/datamodel/document"
)

type Service struct {
	repo     Repository
	progress BookingProgress
	logger   *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// SetBookingProgress wires the booking service in after construction. Both
// services reference each other, so one side has to be attached late.
func (s *Service) SetBookingProgress(progress BookingProgress) {
	s.progress = progress
}

func (s *Service) Submit(ctx context.Context, customerID int64, req SubmitDocumentRequest) (*DocumentResponse, error) {
	doc := &documentmodel.BookingDocument{
		BookingID:  req.BookingID,
		CustomerID: customerID,
		Kind:       req.Kind,
		Status:     documentmodel.StatusPending,
	}
	if err := s.repo.Create(doc); err != nil {
		s.logger.Error("failed to create booking document", "error", err, "booking_id", req.BookingID)
		return nil, apperrors.NewInternalError("failed to submit document", err)
	}

	s.logger.Info("document submitted", "document_id", doc.ID, "booking_id", doc.BookingID, "kind", doc.Kind)

	if s.progress != nil {
		if err := s.progress.DocumentsSubmitted(ctx, doc.BookingID); err != nil {
			s.logger.Error("failed to advance booking after document submission",
				"error", err, "booking_id", doc.BookingID)
			return nil, err
		}
	}
	return toDocumentResponse(doc), nil
}

// Resubmit replaces the content of a document the reviewer sent back. Only
// documents in resubmission-required may be resubmitted, and only by the
// customer who owns them.
func (s *Service) Resubmit(ctx context.Context, customerID, documentID int64) (*DocumentResponse, error) {
	doc, err := s.getDocument(documentID)
	if err != nil {
		return nil, err
	}
	if doc.CustomerID != customerID {
		return nil, apperrors.ErrUnauthorizedAccess
	}
	if doc.Status != documentmodel.StatusResubmissionRequired {
		return nil, apperrors.ErrInvalidDocumentState
	}

	doc.Status = documentmodel.StatusResubmitted
	doc.ReviewNote = nil
	doc.ReviewedBy = nil
	doc.ReviewedAt = nil
	if err := s.repo.Update(doc); err != nil {
		s.logger.Error("failed to resubmit document", "error", err, "document_id", documentID)
		return nil, apperrors.NewInternalError("failed to resubmit document", err)
	}

	s.logger.Info("document resubmitted", "document_id", doc.ID, "booking_id", doc.BookingID)

	if s.progress != nil {
		if err := s.progress.DocumentsResubmitted(ctx, doc.BookingID); err != nil {
			s.logger.Error("failed to advance booking after document resubmission",
				"error", err, "booking_id", doc.BookingID)
			return nil, err
		}
	}
	return toDocumentResponse(doc), nil
}

// Review applies an admin decision to a single document, then reports the
// booking's recomputed document summary to the booking service. The booking
// transition is driven off the full set, never off the single decision.
func (s *Service) Review(ctx context.Context, reviewerID, documentID int64, req ReviewDocumentRequest) (*DocumentResponse, error) {
	doc, err := s.getDocument(documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status == documentmodel.StatusApproved || doc.Status == documentmodel.StatusRejected {
		return nil, apperrors.ErrInvalidDocumentState
	}

	switch req.Decision {
	case DecisionApprove:
		doc.Status = documentmodel.StatusApproved
	case DecisionReject:
		doc.Status = documentmodel.StatusRejected
	case DecisionRequestResubmission:
		doc.Status = documentmodel.StatusResubmissionRequired
	default:
		return nil, apperrors.NewValidationError("decision must be approve, reject or request-resubmission", apperrors.ErrCodeInvalidDecision)
	}

	now := time.Now()
	doc.ReviewNote = req.Note
	doc.ReviewedBy = &reviewerID
	doc.ReviewedAt = &now
	if err := s.repo.Update(doc); err != nil {
		s.logger.Error("failed to update document review", "error", err, "document_id", documentID)
		return nil, apperrors.NewInternalError("failed to review document", err)
	}

	s.logger.Info("document reviewed",
		"document_id", doc.ID,
		"booking_id", doc.BookingID,
		"decision", req.Decision,
		"reviewer_id", reviewerID)

	summary, err := s.BookingSummary(doc.BookingID)
	if err != nil {
		return nil, err
	}
	if s.progress != nil {
		if err := s.progress.ApplyDocumentReview(ctx, doc.BookingID, summary); err != nil {
			s.logger.Error("failed to apply document review to booking",
				"error", err, "booking_id", doc.BookingID)
			return nil, err
		}
	}

	return toDocumentResponse(doc), nil
}

func (s *Service) ListByBooking(bookingID int64) ([]*DocumentResponse, error) {
	docs, err := s.repo.GetByBookingID(bookingID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list documents", err)
	}
	responses := make([]*DocumentResponse, 0, len(docs))
	for _, d := range docs {
		responses = append(responses, toDocumentResponse(d))
	}
	return responses, nil
}

func (s *Service) BookingSummary(bookingID int64) (Summary, error) {
	docs, err := s.repo.GetByBookingID(bookingID)
	if err != nil {
		return Summary{}, apperrors.NewInternalError("failed to load booking documents", err)
	}
	return summarize(docs), nil
}

func (s *Service) getDocument(documentID int64) (*documentmodel.BookingDocument, error) {
	doc, err := s.repo.GetByID(documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDocumentNotFound
		}
		return nil, apperrors.NewInternalError("failed to load document", err)
	}
	return doc, nil
}
