package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound       ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized   ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden      ErrorType = "FORBIDDEN"
	ErrorTypeConflict       ErrorType = "CONFLICT"
	ErrorTypeInternal       ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal       ErrorType = "EXTERNAL_ERROR"
	ErrorTypeReconciliation ErrorType = "RECONCILIATION_DEFECT"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidPeriod    ErrorCode = "INVALID_PERIOD"
	ErrCodeInvalidReason    ErrorCode = "INVALID_REASON"

	ErrCodeBookingNotFound      ErrorCode = "BOOKING_NOT_FOUND"
	ErrCodeUnauthorizedAccess   ErrorCode = "UNAUTHORIZED_ACCESS"
	ErrCodeInvalidBookingState  ErrorCode = "INVALID_BOOKING_STATE"
	ErrCodeBookingTerminal      ErrorCode = "BOOKING_TERMINAL"
	ErrCodeActionAlreadyDone    ErrorCode = "ACTION_ALREADY_COMPLETED"
	ErrCodeUnitUnavailable      ErrorCode = "UNIT_UNAVAILABLE"
	ErrCodeDocumentsNotApproved ErrorCode = "DOCUMENTS_NOT_APPROVED"
	ErrCodeDocumentNotFound     ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrCodeInvalidDocumentState ErrorCode = "INVALID_DOCUMENT_STATE"
	ErrCodeInvalidDecision      ErrorCode = "INVALID_DECISION"

	ErrCodeEntryNotFound        ErrorCode = "LEDGER_ENTRY_NOT_FOUND"
	ErrCodeInvalidEntryStatus   ErrorCode = "INVALID_ENTRY_STATUS"
	ErrCodePaymentAlreadyMade   ErrorCode = "PAYMENT_ALREADY_COMPLETED"
	ErrCodeCashRequestOpen      ErrorCode = "CASH_REQUEST_OPEN"
	ErrCodeCashRequestNotFound  ErrorCode = "CASH_REQUEST_NOT_FOUND"
	ErrCodeInsufficientBalance  ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodePayoutNotFound       ErrorCode = "PAYOUT_NOT_FOUND"
	ErrCodeInvalidPayoutStatus  ErrorCode = "INVALID_PAYOUT_STATUS"
	ErrCodeAllocationMismatch   ErrorCode = "ALLOCATION_MISMATCH"
	ErrCodeUnknownGatewayEvent  ErrorCode = "UNKNOWN_GATEWAY_EVENT"
	ErrCodeCheckoutFailed       ErrorCode = "CHECKOUT_FAILED"
	ErrCodeGatewayTransferError ErrorCode = "GATEWAY_TRANSFER_ERROR"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewReconciliationError marks local state that diverged from the gateway's
// reported outcome. Surfaced to operators, never retried automatically.
func NewReconciliationError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeReconciliation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

var (
	ErrBookingNotFound     = NewNotFoundError("Booking not found", ErrCodeBookingNotFound)
	ErrUnauthorizedAccess  = NewForbiddenError("unauthorized access to booking", ErrCodeUnauthorizedAccess)
	ErrInvalidBookingState = NewConflictError("booking is not in the required state for this operation", ErrCodeInvalidBookingState)
	ErrBookingTerminal     = NewConflictError("booking is in a terminal state", ErrCodeBookingTerminal)
	ErrActionAlreadyDone   = NewConflictError("action has already been completed", ErrCodeActionAlreadyDone)

	ErrDocumentNotFound     = NewNotFoundError("Document not found", ErrCodeDocumentNotFound)
	ErrInvalidDocumentState = NewConflictError("document is not in a reviewable state", ErrCodeInvalidDocumentState)

	ErrEntryNotFound       = NewNotFoundError("Ledger entry not found", ErrCodeEntryNotFound)
	ErrPaymentAlreadyMade  = NewConflictError("booking already has a completed payment", ErrCodePaymentAlreadyMade)
	ErrCashRequestOpen     = NewConflictError("an open cash payment request blocks online checkout", ErrCodeCashRequestOpen)
	ErrInsufficientBalance = NewConflictError("insufficient remaining balance for payout", ErrCodeInsufficientBalance)
	ErrPayoutNotFound      = NewNotFoundError("Payout not found", ErrCodePayoutNotFound)
	ErrInvalidPayoutStatus = NewConflictError("payout is not in the required status for this operation", ErrCodeInvalidPayoutStatus)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
