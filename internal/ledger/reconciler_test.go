package ledger_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "storage-marketplace/internal"
	"storage-marketplace/internal/catalog"
	bookingmodel "storage-marketplace/internal/core/datamodel/booking"
	ledgermodel "storage-marketplace/internal/core/datamodel/ledger"
	"storage-marketplace/internal/core/events"
	"storage-marketplace/internal/gateway"
	"storage-marketplace/internal/ledger"
)

var _ = Describe("Webhook reconciliation", func() {
	var (
		ctx      context.Context
		repo     *mockLedgerRepository
		bookings *mockBookingTransitions
		service  *ledger.Service
		entry    *ledgermodel.Entry
	)

	sessionRef := "sess-abc"

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockLedgerRepository()
		bookings = newMockBookingTransitions()
		bookings.bookings[42] = &bookingmodel.Booking{
			ID:             42,
			CustomerID:     7,
			UnitID:         5,
			PropertyID:     1,
			LifecycleState: "payment-pending",
		}

		catalogService := catalog.NewService(newMockCatalogRepository(), discardLogger())
		gatewayClient := gateway.NewClient(gateway.Config{APIURL: "http://gateway.invalid"}, discardLogger())
		fees := ledger.FeeSchedule{GatewayFeeBps: 290, GatewayFixedFee: 30, PlatformFeeBps: 210}
		service = ledger.NewService(repo, bookings, catalogService, gatewayClient, fees, events.NewEventBus(discardLogger()), discardLogger())

		ref := sessionRef
		entry = &ledgermodel.Entry{
			TransactionID:     "tx-1",
			ExternalReference: &ref,
			PayerID:           7,
			ReceiverID:        101,
			BookingID:         42,
			PropertyID:        1,
			GrossAmount:       10000,
			BaseAmount:        10000,
			GatewayFee:        320,
			PlatformFee:       210,
			NetAmount:         9470,
			Kind:              ledgermodel.KindPayment,
			Status:            ledgermodel.StatusPending,
		}
		Expect(repo.Create(entry)).To(Succeed())
	})

	Describe("checkout.completed", func() {
		It("settles the entry and confirms the booking as a first payment", func() {
			err := service.ProcessWebhookEvent(ctx, ledger.WebhookEvent{
				EventType:         ledger.WebhookCheckoutCompleted,
				ExternalReference: sessionRef,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(entry.Status).To(Equal(ledgermodel.StatusSucceeded))
			Expect(entry.RemainingAmount).To(Equal(int64(9470)))
			Expect(entry.PaymentDate).ToNot(BeNil())
			Expect(bookings.confirmCalls).To(HaveLen(1))
			Expect(bookings.confirmCalls[0].bookingID).To(Equal(int64(42)))
			Expect(bookings.confirmCalls[0].firstPayment).To(BeTrue())
		})

		It("stores the gateway payment id and raw payload on the entry", func() {
			err := service.ProcessWebhookEvent(ctx, ledger.WebhookEvent{
				EventType:         ledger.WebhookCheckoutCompleted,
				ExternalReference: sessionRef,
				GatewayPaymentID:  "pay_555",
				Raw:               []byte(`{"event_type":"checkout.completed"}`),
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(entry.InvoiceReference).ToNot(BeNil())
			Expect(*entry.InvoiceReference).To(Equal("pay_555"))
			Expect(entry.GatewayResponse).ToNot(BeEmpty())
		})

		It("treats a second payment for the booking as recurring", func() {
			prior := &ledgermodel.Entry{
				TransactionID: "tx-0",
				BookingID:     42,
				Kind:          ledgermodel.KindPayment,
				Status:        ledgermodel.StatusSucceeded,
				NetAmount:     9470,
			}
			Expect(repo.Create(prior)).To(Succeed())

			err := service.ProcessWebhookEvent(ctx, ledger.WebhookEvent{
				EventType:         ledger.WebhookCheckoutCompleted,
				ExternalReference: sessionRef,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(bookings.confirmCalls).To(HaveLen(1))
			Expect(bookings.confirmCalls[0].firstPayment).To(BeFalse())
		})
	})

	Describe("duplicate delivery", func() {
		It("settles the payment exactly once", func() {
			event := ledger.WebhookEvent{
				EventType:         ledger.WebhookCheckoutCompleted,
				ExternalReference: sessionRef,
			}

			Expect(service.ProcessWebhookEvent(ctx, event)).To(Succeed())
			Expect(service.ProcessWebhookEvent(ctx, event)).To(Succeed())

			Expect(entry.Status).To(Equal(ledgermodel.StatusSucceeded))
			Expect(bookings.confirmCalls).To(HaveLen(1))
		})
	})

	Describe("redelivery after a failed booking transition", func() {
		transient := errors.New("database connection reset")

		It("re-runs the confirm cascade until the booking catches up", func() {
			event := ledger.WebhookEvent{
				EventType:         ledger.WebhookCheckoutCompleted,
				ExternalReference: sessionRef,
			}

			bookings.transitionErr = transient
			Expect(service.ProcessWebhookEvent(ctx, event)).To(MatchError(transient))
			Expect(entry.Status).To(Equal(ledgermodel.StatusSucceeded))
			Expect(bookings.bookings[42].LifecycleState).To(Equal("payment-pending"))

			bookings.transitionErr = nil
			Expect(service.ProcessWebhookEvent(ctx, event)).To(Succeed())

			Expect(bookings.bookings[42].LifecycleState).To(Equal("booking-confirmed"))
			Expect(bookings.confirmCalls).To(HaveLen(2))
			Expect(bookings.confirmCalls[1].firstPayment).To(BeTrue())

			// once caught up, further redeliveries are pure no-ops
			Expect(service.ProcessWebhookEvent(ctx, event)).To(Succeed())
			Expect(bookings.confirmCalls).To(HaveLen(2))
		})

		It("re-runs a refund cascade the booking missed", func() {
			Expect(service.ProcessWebhookEvent(ctx, ledger.WebhookEvent{
				EventType:         ledger.WebhookCheckoutCompleted,
				ExternalReference: sessionRef,
			})).To(Succeed())

			refund := ledger.WebhookEvent{
				EventType:         ledger.WebhookPaymentRefunded,
				ExternalReference: sessionRef,
			}

			bookings.transitionErr = transient
			Expect(service.ProcessWebhookEvent(ctx, refund)).To(MatchError(transient))
			Expect(entry.Status).To(Equal(ledgermodel.StatusRefunded))
			Expect(bookings.bookings[42].LifecycleState).To(Equal("booking-confirmed"))

			bookings.transitionErr = nil
			Expect(service.ProcessWebhookEvent(ctx, refund)).To(Succeed())

			Expect(bookings.bookings[42].LifecycleState).To(Equal("booking-cancelled"))
			Expect(bookings.refundCalls).To(Equal([]int64{42, 42}))
		})
	})

	Describe("checkout.expired", func() {
		It("cancels the entry and records the failure with a default reason", func() {
			err := service.ProcessWebhookEvent(ctx, ledger.WebhookEvent{
				EventType:         ledger.WebhookCheckoutExpired,
				ExternalReference: sessionRef,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(entry.Status).To(Equal(ledgermodel.StatusCancelled))
			Expect(bookings.failureCalls).To(Equal([]string{"checkout session expired"}))
			Expect(bookings.confirmCalls).To(BeEmpty())
		})
	})

	Describe("payment.failed", func() {
		It("fails the entry and forwards the gateway's reason", func() {
			err := service.ProcessWebhookEvent(ctx, ledger.WebhookEvent{
				EventType:         ledger.WebhookPaymentFailed,
				ExternalReference: sessionRef,
				FailureReason:     "card declined",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(entry.Status).To(Equal(ledgermodel.StatusFailed))
			Expect(bookings.failureCalls).To(Equal([]string{"card declined"}))
		})
	})

	Describe("payment.refunded", func() {
		It("refunds a settled entry and cancels the booking", func() {
			Expect(service.ProcessWebhookEvent(ctx, ledger.WebhookEvent{
				EventType:         ledger.WebhookCheckoutCompleted,
				ExternalReference: sessionRef,
			})).To(Succeed())

			err := service.ProcessWebhookEvent(ctx, ledger.WebhookEvent{
				EventType:         ledger.WebhookPaymentRefunded,
				ExternalReference: sessionRef,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(entry.Status).To(Equal(ledgermodel.StatusRefunded))
			Expect(entry.RefundedAt).ToNot(BeNil())
			Expect(entry.RemainingAmount).To(BeZero())
			Expect(bookings.refundCalls).To(Equal([]int64{42}))
		})

		It("rejects a refund for a payment that never settled", func() {
			err := service.ProcessWebhookEvent(ctx, ledger.WebhookEvent{
				EventType:         ledger.WebhookPaymentRefunded,
				ExternalReference: sessionRef,
			})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeReconciliation))
			Expect(entry.Status).To(Equal(ledgermodel.StatusPending))
			Expect(bookings.refundCalls).To(BeEmpty())
		})
	})

	Describe("unknown event types", func() {
		It("rejects them without touching the ledger", func() {
			err := service.ProcessWebhookEvent(ctx, ledger.WebhookEvent{
				EventType:         "checkout.abandoned",
				ExternalReference: sessionRef,
			})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeUnknownGatewayEvent))
			Expect(entry.Status).To(Equal(ledgermodel.StatusPending))
		})
	})

	Describe("unknown external reference", func() {
		It("acknowledges without error so the gateway can retry later", func() {
			err := service.ProcessWebhookEvent(ctx, ledger.WebhookEvent{
				EventType:         ledger.WebhookCheckoutCompleted,
				ExternalReference: "sess-never-seen",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(bookings.confirmCalls).To(BeEmpty())
		})
	})
})
