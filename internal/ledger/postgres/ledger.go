package postgres

import (
	"time"

	"gorm.io/gorm"

	ledgermodel "storage-marketplace/internal/core/datamodel/ledger"
	ledgerpkg "storage-marketplace/internal/ledger"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) ledgerpkg.Repository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Create(e *ledgermodel.Entry) error {
	return r.db.Create(e).Error
}

func (r *LedgerRepository) GetByTransactionID(transactionID string) (*ledgermodel.Entry, error) {
	var e ledgermodel.Entry
	err := r.db.Where("transaction_id = ?", transactionID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *LedgerRepository) GetByExternalReference(reference string) (*ledgermodel.Entry, error) {
	var e ledgermodel.Entry
	err := r.db.Where("external_reference = ?", reference).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *LedgerRepository) Update(e *ledgermodel.Entry) error {
	return r.db.Save(e).Error
}

func (r *LedgerRepository) CountSucceededPayments(bookingID int64) (int64, error) {
	var count int64
	err := r.db.Model(&ledgermodel.Entry{}).
		Where("booking_id = ? AND kind = ? AND status IN ?", bookingID, ledgermodel.KindPayment,
			[]string{ledgermodel.StatusSucceeded, ledgermodel.StatusPaid}).
		Count(&count).Error
	return count, err
}

func (r *LedgerRepository) HasSucceededPaymentInWindow(bookingID int64, from, to time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&ledgermodel.Entry{}).
		Where("booking_id = ? AND kind = ? AND status IN ? AND payment_date >= ? AND payment_date < ?",
			bookingID, ledgermodel.KindPayment,
			[]string{ledgermodel.StatusSucceeded, ledgermodel.StatusPaid}, from, to).
		Count(&count).Error
	return count > 0, err
}

func (r *LedgerRepository) ListPaymentsByBooking(bookingID int64) ([]*ledgermodel.Entry, error) {
	var entries []*ledgermodel.Entry
	err := r.db.Where("booking_id = ? AND kind = ?", bookingID, ledgermodel.KindPayment).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

// ListAllocatable feeds the payout allocator: settled payments with balance
// left, oldest first. The FIFO ordering here is what keeps old balances from
// being starved. Only succeeded entries qualify; refunded entries are out of
// the pool regardless of what their remaining_amount column holds.
func (r *LedgerRepository) ListAllocatable(propertyIDs []int64) ([]*ledgermodel.Entry, error) {
	var entries []*ledgermodel.Entry
	err := r.db.Where("kind = ? AND status = ? AND remaining_amount > 0 AND property_id IN ?",
		ledgermodel.KindPayment, ledgermodel.StatusSucceeded, propertyIDs).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *LedgerRepository) ListPayoutsByReceiver(receiverID int64) ([]*ledgermodel.Entry, error) {
	var entries []*ledgermodel.Entry
	err := r.db.Where("kind = ? AND receiver_id = ?", ledgermodel.KindPayout, receiverID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *LedgerRepository) CreateAllocations(allocations []*ledgermodel.Allocation) error {
	if len(allocations) == 0 {
		return nil
	}
	return r.db.Create(&allocations).Error
}

func (r *LedgerRepository) GetAllocations(payoutTransactionID string) ([]*ledgermodel.Allocation, error) {
	var allocations []*ledgermodel.Allocation
	err := r.db.Where("payout_transaction_id = ?", payoutTransactionID).
		Order("position ASC").
		Find(&allocations).Error
	return allocations, err
}

func (r *LedgerRepository) UpdateAllocation(a *ledgermodel.Allocation) error {
	return r.db.Save(a).Error
}
