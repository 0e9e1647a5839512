package cashpayment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	apperrors "storage-marketplace/internal"
	"storage-marketplace/internal/core/common/validation"
	cashmodel "storage-marketplace/internal/core/datamodel/cashpayment"
)

type Service struct {
	repo     Repository
	recorder PaymentRecorder
	logger   *slog.Logger
}

func NewService(repo Repository, recorder PaymentRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, recorder: recorder, logger: logger}
}

// HasOpenRequest implements ledger.CashRequestChecker: a pending or approved
// request blocks the online checkout path. A rejected one does not.
func (s *Service) HasOpenRequest(bookingID int64) (bool, error) {
	_, err := s.repo.GetOpenByBooking(bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, apperrors.NewInternalError("failed to check cash payment requests", err)
	}
	return true, nil
}

// Create opens a cash payment request for the booking. Rejected when the
// booking already has a completed payment or another open request: the cash
// and online paths are mutually exclusive.
func (s *Service) Create(ctx context.Context, customerID int64, req CreateRequestDTO) (*RequestResponse, error) {
	v := validation.NewValidator()
	v.Field("amount", req.Amount).Required().MinInt(1, apperrors.ErrCodeInvalidAmount)
	if err := v.Validate(); err != nil {
		return nil, err
	}

	paid, err := s.recorder.HasCompletedPayment(req.BookingID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, apperrors.ErrPaymentAlreadyMade
	}

	open, err := s.HasOpenRequest(req.BookingID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, apperrors.ErrCashRequestOpen
	}

	request := &cashmodel.Request{
		BookingID:  req.BookingID,
		CustomerID: customerID,
		Amount:     req.Amount,
		Status:     cashmodel.StatusPending,
	}
	if err := s.repo.Create(request); err != nil {
		s.logger.Error("failed to create cash payment request", "error", err, "booking_id", req.BookingID)
		return nil, apperrors.NewInternalError("failed to create cash payment request", err)
	}

	s.logger.Info("cash payment request created",
		"request_id", request.ID,
		"booking_id", req.BookingID,
		"amount", req.Amount)
	return toRequestResponse(request), nil
}

// Approve settles the request: it is recorded as a manual payment and the
// booking confirms through the same cascade an online payment takes.
func (s *Service) Approve(ctx context.Context, requestID, adminID int64) (*RequestResponse, error) {
	request, err := s.getRequest(requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != cashmodel.StatusPending {
		return nil, apperrors.NewConflictError("cash payment request is not pending", apperrors.ErrCodeActionAlreadyDone)
	}

	now := time.Now()
	request.Status = cashmodel.StatusApproved
	request.ReviewedBy = &adminID
	request.ReviewedAt = &now
	if err := s.repo.Update(request); err != nil {
		s.logger.Error("failed to approve cash payment request", "error", err, "request_id", requestID)
		return nil, apperrors.NewInternalError("failed to approve cash payment request", err)
	}

	if err := s.recorder.CollectManual(ctx, request.BookingID, adminID, "cash-payment"); err != nil {
		s.logger.Error("cash payment approved but ledger recording failed",
			"error", err,
			"request_id", requestID,
			"booking_id", request.BookingID)
		return nil, err
	}

	s.logger.Info("cash payment request approved",
		"request_id", requestID,
		"booking_id", request.BookingID,
		"admin_id", adminID)
	return toRequestResponse(request), nil
}

// Reject closes the request with a required reason. The booking's online
// checkout path unblocks immediately.
func (s *Service) Reject(ctx context.Context, requestID, adminID int64, reason string) (*RequestResponse, error) {
	if reason == "" {
		return nil, apperrors.NewValidationError("rejection reason is required", apperrors.ErrCodeInvalidReason)
	}

	request, err := s.getRequest(requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != cashmodel.StatusPending {
		return nil, apperrors.NewConflictError("cash payment request is not pending", apperrors.ErrCodeActionAlreadyDone)
	}

	now := time.Now()
	request.Status = cashmodel.StatusRejected
	request.Reason = &reason
	request.ReviewedBy = &adminID
	request.ReviewedAt = &now
	if err := s.repo.Update(request); err != nil {
		return nil, apperrors.NewInternalError("failed to reject cash payment request", err)
	}

	s.logger.Info("cash payment request rejected",
		"request_id", requestID,
		"booking_id", request.BookingID,
		"reason", reason)
	return toRequestResponse(request), nil
}

func (s *Service) ListByBooking(ctx context.Context, bookingID int64) ([]*RequestResponse, error) {
	requests, err := s.repo.ListByBooking(bookingID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list cash payment requests", err)
	}
	responses := make([]*RequestResponse, 0, len(requests))
	for _, r := range requests {
		responses = append(responses, toRequestResponse(r))
	}
	return responses, nil
}

func (s *Service) getRequest(requestID int64) (*cashmodel.Request, error) {
	request, err := s.repo.GetByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("Cash payment request not found", apperrors.ErrCodeCashRequestNotFound)
		}
		return nil, apperrors.NewInternalError("failed to load cash payment request", err)
	}
	return request, nil
}
