package ledger_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "storage-marketplace/internal"
	"storage-marketplace/internal/catalog"
	catalogmodel "storage-marketplace/internal/core/datamodel/catalog"
	ledgermodel "storage-marketplace/internal/core/datamodel/ledger"
	"storage-marketplace/internal/core/events"
	"storage-marketplace/internal/gateway"
	"storage-marketplace/internal/ledger"
)

var _ = Describe("Payout allocation", func() {
	const ownerID int64 = 101

	var (
		ctx           context.Context
		repo          *mockLedgerRepository
		service       *ledger.Service
		gatewayServer *httptest.Server
		gatewayCalls  int
		first, second *ledgermodel.Entry
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockLedgerRepository()
		gatewayCalls = 0

		gatewayServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gatewayCalls++
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":{"id":"po_777","status":"paid"}}`))
		}))

		catalogRepo := newMockCatalogRepository()
		catalogRepo.properties[1] = &catalogmodel.Property{ID: 1, OwnerID: ownerID, Name: "Riverside"}

		gatewayClient := gateway.NewClient(gateway.Config{APIURL: gatewayServer.URL}, discardLogger())
		fees := ledger.FeeSchedule{GatewayFeeBps: 290, GatewayFixedFee: 30, PlatformFeeBps: 210}
		service = ledger.NewService(repo, newMockBookingTransitions(), catalog.NewService(catalogRepo, discardLogger()),
			gatewayClient, fees, events.NewEventBus(discardLogger()), discardLogger())

		first = settledPayment("tx-old", 1, 3000)
		second = settledPayment("tx-new", 1, 4000)
		Expect(repo.Create(first)).To(Succeed())
		Expect(repo.Create(second)).To(Succeed())
	})

	AfterEach(func() {
		gatewayServer.Close()
	})

	Describe("RequestPayout", func() {
		It("records a requested payout with an oldest-first plan", func() {
			resp, err := service.RequestPayout(ctx, ownerID, 5000)

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Kind).To(Equal(ledgermodel.KindPayout))
			Expect(resp.Status).To(Equal(ledgermodel.StatusRequested))
			Expect(resp.NetAmount).To(Equal(int64(5000)))

			allocations, err := repo.GetAllocations(resp.TransactionID)
			Expect(err).ToNot(HaveOccurred())
			Expect(allocations).To(HaveLen(2))
			Expect(allocations[0].PaymentTransactionID).To(Equal("tx-old"))
			Expect(allocations[1].PaymentTransactionID).To(Equal("tx-new"))
		})

		It("leaves remaining balances untouched until approval", func() {
			_, err := service.RequestPayout(ctx, ownerID, 5000)

			Expect(err).ToNot(HaveOccurred())
			Expect(first.RemainingAmount).To(Equal(int64(3000)))
			Expect(second.RemainingAmount).To(Equal(int64(4000)))
		})

		It("rejects amounts above the available balance", func() {
			_, err := service.RequestPayout(ctx, ownerID, 8000)

			Expect(err).To(MatchError(apperrors.ErrInsufficientBalance))
		})

		It("rejects non-positive amounts before reading any balance", func() {
			_, err := service.RequestPayout(ctx, ownerID, 0)

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
		})

		It("rejects owners with no properties", func() {
			_, err := service.RequestPayout(ctx, 999, 100)

			Expect(err).To(MatchError(apperrors.ErrInsufficientBalance))
		})

		It("excludes refunded payments from the allocatable balance", func() {
			first.Status = ledgermodel.StatusRefunded
			first.RemainingAmount = 0

			balance, err := service.OwnerBalance(ctx, ownerID)
			Expect(err).ToNot(HaveOccurred())
			Expect(balance.AvailableBalance).To(Equal(int64(4000)))
			Expect(balance.EntryCount).To(Equal(1))

			_, err = service.RequestPayout(ctx, ownerID, 5000)
			Expect(err).To(MatchError(apperrors.ErrInsufficientBalance))
		})

		It("never allocates a refunded row that still carries a stale balance", func() {
			// a row written before refunds zeroed balances
			first.Status = ledgermodel.StatusRefunded

			balance, err := service.OwnerBalance(ctx, ownerID)
			Expect(err).ToNot(HaveOccurred())
			Expect(balance.AvailableBalance).To(Equal(int64(4000)))

			resp, err := service.RequestPayout(ctx, ownerID, 4000)
			Expect(err).ToNot(HaveOccurred())

			allocations, err := repo.GetAllocations(resp.TransactionID)
			Expect(err).ToNot(HaveOccurred())
			Expect(allocations).To(HaveLen(1))
			Expect(allocations[0].PaymentTransactionID).To(Equal("tx-new"))
		})
	})

	Describe("ApprovePayout", func() {
		It("deducts FIFO: the oldest entry is depleted, the newer keeps the rest", func() {
			requested, err := service.RequestPayout(ctx, ownerID, 5000)
			Expect(err).ToNot(HaveOccurred())

			resp, err := service.ApprovePayout(ctx, requested.TransactionID, 1)

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Status).To(Equal(ledgermodel.StatusPaid))
			Expect(gatewayCalls).To(Equal(1))

			Expect(first.RemainingAmount).To(BeZero())
			Expect(first.Status).To(Equal(ledgermodel.StatusPaid))
			Expect(second.RemainingAmount).To(Equal(int64(2000)))
			Expect(second.Status).To(Equal(ledgermodel.StatusSucceeded))

			allocations, err := repo.GetAllocations(requested.TransactionID)
			Expect(err).ToNot(HaveOccurred())
			Expect(allocations[0].DeductedAmount).To(Equal(int64(3000)))
			Expect(allocations[1].DeductedAmount).To(Equal(int64(2000)))
		})

		It("leaves a refunded planned entry untouched when the rest of the plan covers", func() {
			requested, err := service.RequestPayout(ctx, ownerID, 4000)
			Expect(err).ToNot(HaveOccurred())

			// the oldest entry was refunded between request and approval
			first.Status = ledgermodel.StatusRefunded
			first.RemainingAmount = 0

			resp, err := service.ApprovePayout(ctx, requested.TransactionID, 1)

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Status).To(Equal(ledgermodel.StatusPaid))

			Expect(first.Status).To(Equal(ledgermodel.StatusRefunded))
			Expect(first.RemainingAmount).To(BeZero())
			Expect(second.RemainingAmount).To(BeZero())
			Expect(second.Status).To(Equal(ledgermodel.StatusPaid))

			allocations, err := repo.GetAllocations(requested.TransactionID)
			Expect(err).ToNot(HaveOccurred())
			Expect(allocations[0].DeductedAmount).To(BeZero())
			Expect(allocations[1].DeductedAmount).To(Equal(int64(4000)))
		})

		It("marks the payout failed when balances shrank since the request, touching no entry", func() {
			requested, err := service.RequestPayout(ctx, ownerID, 5000)
			Expect(err).ToNot(HaveOccurred())

			// another payout drained the oldest entry in the meantime
			first.RemainingAmount = 0

			_, err = service.ApprovePayout(ctx, requested.TransactionID, 1)

			Expect(err).To(MatchError(apperrors.ErrInsufficientBalance))
			Expect(gatewayCalls).To(BeZero())
			Expect(second.RemainingAmount).To(Equal(int64(4000)))

			payout, getErr := repo.GetByTransactionID(requested.TransactionID)
			Expect(getErr).ToNot(HaveOccurred())
			Expect(payout.Status).To(Equal(ledgermodel.StatusFailed))
			Expect(payout.RejectReason).ToNot(BeNil())
		})

		It("marks the payout failed when the gateway transfer errors", func() {
			gatewayServer.Close()
			requested, err := service.RequestPayout(ctx, ownerID, 5000)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.ApprovePayout(ctx, requested.TransactionID, 1)

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeGatewayTransferError))

			payout, getErr := repo.GetByTransactionID(requested.TransactionID)
			Expect(getErr).ToNot(HaveOccurred())
			Expect(payout.Status).To(Equal(ledgermodel.StatusFailed))
			Expect(first.RemainingAmount).To(Equal(int64(3000)))
			Expect(second.RemainingAmount).To(Equal(int64(4000)))
		})

		It("rejects a payout that is no longer requested", func() {
			requested, err := service.RequestPayout(ctx, ownerID, 5000)
			Expect(err).ToNot(HaveOccurred())
			_, err = service.ApprovePayout(ctx, requested.TransactionID, 1)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.ApprovePayout(ctx, requested.TransactionID, 1)

			Expect(err).To(MatchError(apperrors.ErrInvalidPayoutStatus))
		})

		It("rejects payment transaction ids", func() {
			_, err := service.ApprovePayout(ctx, "tx-old", 1)

			Expect(err).To(MatchError(apperrors.ErrPayoutNotFound))
		})
	})

	Describe("RejectPayout", func() {
		It("closes the payout without touching any payment entry", func() {
			requested, err := service.RequestPayout(ctx, ownerID, 5000)
			Expect(err).ToNot(HaveOccurred())

			resp, err := service.RejectPayout(ctx, requested.TransactionID, 1, "bank account unverified")

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Status).To(Equal(ledgermodel.StatusRejected))
			Expect(resp.RejectReason).ToNot(BeNil())
			Expect(first.RemainingAmount).To(Equal(int64(3000)))
			Expect(second.RemainingAmount).To(Equal(int64(4000)))
			Expect(gatewayCalls).To(BeZero())
		})

		It("requires a reason", func() {
			requested, err := service.RequestPayout(ctx, ownerID, 5000)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RejectPayout(ctx, requested.TransactionID, 1, "")

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidReason))
		})

		It("cannot reject an executed payout", func() {
			requested, err := service.RequestPayout(ctx, ownerID, 5000)
			Expect(err).ToNot(HaveOccurred())
			_, err = service.ApprovePayout(ctx, requested.TransactionID, 1)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RejectPayout(ctx, requested.TransactionID, 1, "too late")

			Expect(err).To(MatchError(apperrors.ErrInvalidPayoutStatus))
		})
	})

	Describe("OwnerBalance", func() {
		It("sums remaining amounts across the owner's properties", func() {
			balance, err := service.OwnerBalance(ctx, ownerID)

			Expect(err).ToNot(HaveOccurred())
			Expect(balance.AvailableBalance).To(Equal(int64(7000)))
			Expect(balance.EntryCount).To(Equal(2))
		})

		It("shrinks after an executed payout", func() {
			requested, err := service.RequestPayout(ctx, ownerID, 5000)
			Expect(err).ToNot(HaveOccurred())
			_, err = service.ApprovePayout(ctx, requested.TransactionID, 1)
			Expect(err).ToNot(HaveOccurred())

			balance, err := service.OwnerBalance(ctx, ownerID)

			Expect(err).ToNot(HaveOccurred())
			Expect(balance.AvailableBalance).To(Equal(int64(2000)))
			Expect(balance.EntryCount).To(Equal(1))
		})
	})
})

func settledPayment(transactionID string, propertyID, net int64) *ledgermodel.Entry {
	return &ledgermodel.Entry{
		TransactionID:   transactionID,
		PayerID:         7,
		ReceiverID:      101,
		BookingID:       42,
		PropertyID:      propertyID,
		GrossAmount:     net,
		BaseAmount:      net,
		NetAmount:       net,
		RemainingAmount: net,
		Kind:            ledgermodel.KindPayment,
		Status:          ledgermodel.StatusSucceeded,
	}
}
