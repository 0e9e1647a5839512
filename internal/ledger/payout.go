package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "storage-marketplace/internal"
	"storage-marketplace/internal/core/common/validation"
	ledgermodel "storage-marketplace/internal/core/datamodel/ledger"
	"storage-marketplace/internal/core/events"
	"storage-marketplace/internal/gateway"
)

// RequestPayout selects settled payment entries belonging to the owner's
// properties, oldest first, until their remaining balances cover the
// requested amount, and records a payout entry in requested state carrying
// the allocation plan. No balance moves until approval.
func (s *Service) RequestPayout(ctx context.Context, ownerID, amount int64) (*EntryResponse, error) {
	if err := validation.ValidatePayoutAmount(amount); err != nil {
		return nil, err
	}

	key := ownerLockKey(ownerID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	entries, available, err := s.allocatableEntries(ownerID)
	if err != nil {
		return nil, err
	}
	if available < amount {
		s.logger.Warn("payout rejected for insufficient balance",
			"owner_id", ownerID,
			"requested", amount,
			"available", available)
		return nil, apperrors.ErrInsufficientBalance
	}

	payout := &ledgermodel.Entry{
		TransactionID: uuid.New().String(),
		PayerID:       0, // platform account
		ReceiverID:    ownerID,
		GrossAmount:   amount,
		BaseAmount:    amount,
		NetAmount:     amount,
		Kind:          ledgermodel.KindPayout,
		Status:        ledgermodel.StatusRequested,
	}
	if err := s.repo.Create(payout); err != nil {
		s.logger.Error("failed to create payout entry", "error", err, "owner_id", ownerID)
		return nil, apperrors.NewInternalError("failed to record payout request", err)
	}

	// FIFO plan: oldest balances drain first so they are never starved
	var plan []*ledgermodel.Allocation
	var covered int64
	for i, entry := range entries {
		if covered >= amount {
			break
		}
		plan = append(plan, &ledgermodel.Allocation{
			PayoutTransactionID:  payout.TransactionID,
			PaymentTransactionID: entry.TransactionID,
			Position:             i,
		})
		covered += entry.RemainingAmount
	}
	if err := s.repo.CreateAllocations(plan); err != nil {
		s.logger.Error("failed to persist allocation plan", "error", err, "payout", payout.TransactionID)
		return nil, apperrors.NewInternalError("failed to record allocation plan", err)
	}

	s.logger.Info("payout requested",
		"transaction_id", payout.TransactionID,
		"owner_id", ownerID,
		"amount", amount,
		"plan_entries", len(plan))
	return toEntryResponse(payout), nil
}

// ApprovePayout executes a requested payout: it re-verifies the allocation
// plan against fresh balances, runs the external transfer, then walks the
// plan in order deducting from each entry's remaining amount. Either the
// whole plan executes or the payout is marked failed with no entry touched.
func (s *Service) ApprovePayout(ctx context.Context, transactionID string, adminID int64) (*EntryResponse, error) {
	payout, err := s.getEntry(transactionID)
	if err != nil {
		return nil, err
	}
	if payout.Kind != ledgermodel.KindPayout {
		return nil, apperrors.ErrPayoutNotFound
	}

	key := ownerLockKey(payout.ReceiverID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	// reload under the lock; another approval may have raced us here
	payout, err = s.getEntry(transactionID)
	if err != nil {
		return nil, err
	}
	if payout.Status != ledgermodel.StatusRequested {
		return nil, apperrors.ErrInvalidPayoutStatus
	}

	allocations, err := s.repo.GetAllocations(transactionID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load allocation plan", err)
	}

	// fresh re-read of every planned entry; balances may have moved since the
	// request, and partial execution is not permitted
	type planStep struct {
		entry  *ledgermodel.Entry
		alloc  *ledgermodel.Allocation
		deduct int64
	}
	owed := payout.NetAmount
	var steps []planStep
	for _, alloc := range allocations {
		if owed == 0 {
			break
		}
		entry, err := s.getEntry(alloc.PaymentTransactionID)
		if err != nil {
			return nil, err
		}
		deduct := entry.RemainingAmount
		if deduct > owed {
			deduct = owed
		}
		if deduct == 0 {
			// drained or refunded since the request; leave it untouched so a
			// zero deduction never stamps the entry paid
			continue
		}
		steps = append(steps, planStep{entry: entry, alloc: alloc, deduct: deduct})
		owed -= deduct
	}
	if owed > 0 {
		reason := fmt.Sprintf("allocation plan no longer covers payout: short by %d", owed)
		s.failPayout(payout, reason)
		s.logger.Warn("payout failed at execution",
			"transaction_id", transactionID,
			"owner_id", payout.ReceiverID,
			"short_by", owed)
		return nil, apperrors.ErrInsufficientBalance
	}

	now := time.Now()
	if err := transition(payout, ledgermodel.StatusProcessing, now); err != nil {
		return nil, err
	}
	if err := s.repo.Update(payout); err != nil {
		return nil, apperrors.NewInternalError("failed to update payout entry", err)
	}

	transfer, err := s.gateway.CreatePayout(ctx, gateway.PayoutRequest{
		ReferenceID: payout.TransactionID,
		Amount:      payout.NetAmount,
		OwnerID:     payout.ReceiverID,
		Description: "Storage rental payout",
	})
	if err != nil {
		s.failPayout(payout, fmt.Sprintf("gateway transfer failed: %v", err))
		return nil, apperrors.NewConflictError("payout transfer failed", apperrors.ErrCodeGatewayTransferError).WithCause(err)
	}

	// funds have moved; from here a mismatch is a reconciliation defect that
	// operators resolve by hand, never an automatic rollback
	var deducted int64
	for _, step := range steps {
		step.entry.RemainingAmount -= step.deduct
		if step.entry.RemainingAmount == 0 {
			step.entry.Status = ledgermodel.StatusPaid
		}
		if err := s.repo.Update(step.entry); err != nil {
			return nil, apperrors.NewReconciliationError(
				"allocation deduction failed after transfer",
				apperrors.ErrCodeAllocationMismatch, err)
		}
		step.alloc.DeductedAmount = step.deduct
		if err := s.repo.UpdateAllocation(step.alloc); err != nil {
			return nil, apperrors.NewReconciliationError(
				"allocation record update failed after transfer",
				apperrors.ErrCodeAllocationMismatch, err)
		}
		deducted += step.deduct
	}
	if deducted != payout.NetAmount {
		s.logger.Error("reconciliation defect: allocation sum mismatch",
			"transaction_id", transactionID,
			"deducted", deducted,
			"net_amount", payout.NetAmount)
		return nil, apperrors.NewReconciliationError(
			"allocation deductions do not sum to payout amount",
			apperrors.ErrCodeAllocationMismatch, nil)
	}

	if err := transition(payout, ledgermodel.StatusPaid, now); err != nil {
		return nil, err
	}
	payout.GatewayPayoutID = &transfer.ID
	if err := s.repo.Update(payout); err != nil {
		return nil, apperrors.NewReconciliationError(
			"payout settled but final status write failed",
			apperrors.ErrCodeAllocationMismatch, err)
	}

	s.eventBus.Publish(ctx, events.NewPayoutExecutedEvent(
		payout.TransactionID, payout.ReceiverID, payout.NetAmount))

	s.logger.Info("payout executed",
		"transaction_id", transactionID,
		"owner_id", payout.ReceiverID,
		"amount", payout.NetAmount,
		"gateway_payout_id", transfer.ID,
		"admin_id", adminID)
	return toEntryResponse(payout), nil
}

// RejectPayout moves a requested payout to rejected with a required reason.
// No funds moved, so the payment entries are untouched by construction.
func (s *Service) RejectPayout(ctx context.Context, transactionID string, adminID int64, reason string) (*EntryResponse, error) {
	if reason == "" {
		return nil, apperrors.NewValidationError("rejection reason is required", apperrors.ErrCodeInvalidReason)
	}

	payout, err := s.getEntry(transactionID)
	if err != nil {
		return nil, err
	}
	if payout.Kind != ledgermodel.KindPayout {
		return nil, apperrors.ErrPayoutNotFound
	}

	key := ownerLockKey(payout.ReceiverID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	payout, err = s.getEntry(transactionID)
	if err != nil {
		return nil, err
	}
	if err := transition(payout, ledgermodel.StatusRejected, time.Now()); err != nil {
		return nil, apperrors.ErrInvalidPayoutStatus
	}
	payout.RejectReason = &reason
	if err := s.repo.Update(payout); err != nil {
		return nil, apperrors.NewInternalError("failed to update payout entry", err)
	}

	s.eventBus.Publish(ctx, events.NewPayoutRejectedEvent(
		payout.TransactionID, payout.ReceiverID, reason))

	s.logger.Info("payout rejected",
		"transaction_id", transactionID,
		"owner_id", payout.ReceiverID,
		"reason", reason,
		"admin_id", adminID)
	return toEntryResponse(payout), nil
}

// OwnerBalance is the amount currently available for payout across the
// owner's properties, computed from a fresh read.
func (s *Service) OwnerBalance(ctx context.Context, ownerID int64) (*BalanceResponse, error) {
	entries, available, err := s.allocatableEntries(ownerID)
	if err != nil {
		return nil, err
	}
	return &BalanceResponse{
		OwnerID:          ownerID,
		AvailableBalance: available,
		EntryCount:       len(entries),
	}, nil
}

func (s *Service) ListPayouts(ctx context.Context, ownerID int64) ([]*EntryResponse, error) {
	payouts, err := s.repo.ListPayoutsByReceiver(ownerID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list payouts", err)
	}
	responses := make([]*EntryResponse, 0, len(payouts))
	for _, p := range payouts {
		responses = append(responses, toEntryResponse(p))
	}
	return responses, nil
}

func (s *Service) allocatableEntries(ownerID int64) ([]*ledgermodel.Entry, int64, error) {
	propertyIDs, err := s.catalog.OwnerPropertyIDs(ownerID)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to resolve owner properties", err)
	}
	if len(propertyIDs) == 0 {
		return nil, 0, nil
	}
	entries, err := s.repo.ListAllocatable(propertyIDs)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to scan allocatable entries", err)
	}
	var available int64
	for _, e := range entries {
		available += e.RemainingAmount
	}
	return entries, available, nil
}

func (s *Service) failPayout(payout *ledgermodel.Entry, reason string) {
	payout.Status = ledgermodel.StatusFailed
	payout.RejectReason = &reason
	if err := s.repo.Update(payout); err != nil {
		s.logger.Error("failed to mark payout failed", "error", err, "transaction_id", payout.TransactionID)
	}
}
