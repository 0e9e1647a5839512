package ledger

import (
	"context"
	"time"

	apperrors "storage-marketplace/internal"
	bookingmodel "storage-marketplace/internal/core/datamodel/booking"
	ledgermodel "storage-marketplace/internal/core/datamodel/ledger"
)

type Repository interface {
	Create(e *ledgermodel.Entry) error
	GetByTransactionID(transactionID string) (*ledgermodel.Entry, error)
	GetByExternalReference(reference string) (*ledgermodel.Entry, error)
	Update(e *ledgermodel.Entry) error
	CountSucceededPayments(bookingID int64) (int64, error)
	HasSucceededPaymentInWindow(bookingID int64, from, to time.Time) (bool, error)
	ListPaymentsByBooking(bookingID int64) ([]*ledgermodel.Entry, error)
	ListAllocatable(propertyIDs []int64) ([]*ledgermodel.Entry, error)
	ListPayoutsByReceiver(receiverID int64) ([]*ledgermodel.Entry, error)
	CreateAllocations(allocations []*ledgermodel.Allocation) error
	GetAllocations(payoutTransactionID string) ([]*ledgermodel.Allocation, error)
	UpdateAllocation(a *ledgermodel.Allocation) error
}

// BookingTransitions is implemented by the booking service. The ledger drives
// lifecycle transitions through it after settling entries, keeping the
// ordering guarantee: the ledger write always commits first.
type BookingTransitions interface {
	GetBooking(ctx context.Context, bookingID int64) (*bookingmodel.Booking, error)
	MarkPaymentPending(ctx context.Context, bookingID int64) error
	ConfirmFromPayment(ctx context.Context, bookingID int64, firstPayment bool) error
	HandlePaymentFailure(ctx context.Context, bookingID int64, reason string) error
	CancelFromRefund(ctx context.Context, bookingID int64) error
}

// CashRequestChecker is implemented by the cash payment service. An open
// (pending or approved) cash request blocks the online checkout path.
type CashRequestChecker interface {
	HasOpenRequest(bookingID int64) (bool, error)
}

// validPaymentTransitions and validPayoutTransitions close the entry status
// graphs. Everything not listed is rejected before any write happens.
var validPaymentTransitions = map[string][]string{
	ledgermodel.StatusPending:   {ledgermodel.StatusSucceeded, ledgermodel.StatusFailed, ledgermodel.StatusCancelled},
	ledgermodel.StatusSucceeded: {ledgermodel.StatusRefunded},
}

var validPayoutTransitions = map[string][]string{
	ledgermodel.StatusRequested:  {ledgermodel.StatusProcessing, ledgermodel.StatusRejected},
	ledgermodel.StatusProcessing: {ledgermodel.StatusPaid, ledgermodel.StatusFailed},
}

func canTransition(kind, from, to string) bool {
	var graph map[string][]string
	switch kind {
	case ledgermodel.KindPayment:
		graph = validPaymentTransitions
	case ledgermodel.KindPayout:
		graph = validPayoutTransitions
	default:
		return false
	}
	for _, allowed := range graph[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// transition applies a status change on an entry in memory. Setting succeeded
// is the only point where RemainingAmount is initialized.
func transition(e *ledgermodel.Entry, to string, now time.Time) error {
	if !canTransition(e.Kind, e.Status, to) {
		return apperrors.NewConflictError("illegal ledger status transition", apperrors.ErrCodeInvalidEntryStatus)
	}
	e.Status = to
	switch to {
	case ledgermodel.StatusSucceeded:
		e.RemainingAmount = e.NetAmount
		e.PaymentDate = &now
	case ledgermodel.StatusRefunded:
		// refunded money is returned to the payer; none of it stays
		// allocatable for the owner's payouts
		e.RemainingAmount = 0
		e.RefundedAt = &now
	case ledgermodel.StatusPaid:
		e.PaymentDate = &now
	}
	return nil
}
