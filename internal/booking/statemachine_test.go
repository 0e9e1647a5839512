package booking_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "storage-marketplace/internal"
	"storage-marketplace/internal/booking"
)

var _ = Describe("Lifecycle state machine", func() {
	Describe("meeting track", func() {
		It("moves initiated to meeting-requested", func() {
			next, effects, err := booking.Next(booking.StateInitiated, booking.Event{Kind: booking.EventRequestMeeting})

			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateMeetingRequested))
			Expect(effects).To(BeEmpty())
		})

		It("confirms or rejects only a requested meeting", func() {
			next, _, err := booking.Next(booking.StateMeetingRequested, booking.Event{Kind: booking.EventConfirmMeeting})
			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateMeetingConfirmed))

			next, _, err = booking.Next(booking.StateMeetingRequested, booking.Event{Kind: booking.EventRejectMeeting})
			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateMeetingRejected))

			_, _, err = booking.Next(booking.StateInitiated, booking.Event{Kind: booking.EventConfirmMeeting})
			Expect(err).To(MatchError(apperrors.ErrInvalidBookingState))
		})

		It("accepts document uploads after a rejected meeting", func() {
			next, _, err := booking.Next(booking.StateMeetingRejected, booking.Event{Kind: booking.EventUploadDocuments})

			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateDocumentsUploaded))
		})
	})

	Describe("document review", func() {
		review := func(total, approved, rejected, resubmission int) booking.Event {
			return booking.Event{
				Kind: booking.EventReviewDocuments,
				Review: booking.DocumentReview{
					Total:                total,
					Approved:             approved,
					Rejected:             rejected,
					ResubmissionRequired: resubmission,
					PendingReview:        total - approved - rejected - resubmission,
				},
			}
		}

		It("approves only when every document is approved", func() {
			next, _, err := booking.Next(booking.StateDocumentsUploaded, review(3, 3, 0, 0))

			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateDocumentsApproved))
		})

		It("stays under review while documents are outstanding", func() {
			next, _, err := booking.Next(booking.StateDocumentsUploaded, review(3, 2, 0, 0))

			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateDocumentsUnderReview))
		})

		It("prefers resubmission over rejection when both are present", func() {
			next, _, err := booking.Next(booking.StateDocumentsUnderReview, review(3, 1, 1, 1))

			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateDocumentsResubmissionRequired))
		})

		It("rejects the set when any document is rejected", func() {
			next, _, err := booking.Next(booking.StateDocumentsUnderReview, review(3, 2, 1, 0))

			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateDocumentsRejected))
		})

		It("lets a resubmitted set be reviewed again to approval", func() {
			next, _, err := booking.Next(booking.StateDocumentsResubmissionRequired, booking.Event{Kind: booking.EventResubmitDocuments})
			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateDocumentsResubmitted))

			next, _, err = booking.Next(next, review(3, 3, 0, 0))
			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateDocumentsApproved))
		})

		It("never approves an empty document set", func() {
			next, _, err := booking.Next(booking.StateDocumentsUploaded, review(0, 0, 0, 0))

			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateDocumentsUnderReview))
		})
	})

	Describe("payment track", func() {
		It("issues checkout from documents-approved", func() {
			next, _, err := booking.Next(booking.StateDocumentsApproved, booking.Event{Kind: booking.EventIssueCheckout})

			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StatePaymentPending))
		})

		It("lets a manual assignment skip straight from initiated", func() {
			next, _, err := booking.Next(booking.StateInitiated, booking.Event{Kind: booking.EventIssueCheckout})

			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StatePaymentPending))
		})

		It("allows reissuing a checkout while payment is pending", func() {
			next, _, err := booking.Next(booking.StatePaymentPending, booking.Event{Kind: booking.EventIssueCheckout})

			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StatePaymentPending))
		})

		It("confirms with occupancy and term effects on the first payment", func() {
			next, effects, err := booking.Next(booking.StatePaymentPending, booking.Event{Kind: booking.EventPaymentSucceeded, FirstPayment: true})

			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateBookingConfirmed))
			Expect(effects).To(ContainElements(booking.EffectOccupyUnit, booking.EffectNotifyConfirmed, booking.EffectEstablishTerm))
		})

		It("re-enters confirmed on a recurring payment without re-establishing the term", func() {
			next, effects, err := booking.Next(booking.StateBookingConfirmed, booking.Event{Kind: booking.EventPaymentSucceeded})

			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateBookingConfirmed))
			Expect(effects).To(Equal([]booking.Effect{booking.EffectNotifyRecurrence}))
		})

		It("keeps the booking in payment-pending after a failed payment", func() {
			next, effects, err := booking.Next(booking.StatePaymentPending, booking.Event{Kind: booking.EventPaymentFailed})

			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StatePaymentPending))
			Expect(effects).To(BeEmpty())
		})

		It("cancels and releases the unit on a refund", func() {
			next, effects, err := booking.Next(booking.StateBookingConfirmed, booking.Event{Kind: booking.EventRefund})

			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateBookingCancelled))
			Expect(effects).To(ContainElements(booking.EffectReleaseUnit, booking.EffectCloseTerm, booking.EffectNotifyCancelled))
		})

		It("only refunds confirmed bookings", func() {
			_, _, err := booking.Next(booking.StatePaymentPending, booking.Event{Kind: booking.EventRefund})

			Expect(err).To(MatchError(apperrors.ErrInvalidBookingState))
		})
	})

	Describe("cancellation and expiry", func() {
		It("cancels from any non-terminal state", func() {
			for _, state := range []booking.State{
				booking.StateInitiated,
				booking.StateMeetingRequested,
				booking.StateDocumentsUnderReview,
				booking.StatePaymentPending,
			} {
				next, effects, err := booking.Next(state, booking.Event{Kind: booking.EventCancel})
				Expect(err).ToNot(HaveOccurred())
				Expect(next).To(Equal(booking.StateBookingCancelled))
				Expect(effects).ToNot(ContainElement(booking.EffectReleaseUnit))
			}
		})

		It("releases the unit only when cancelling a confirmed booking", func() {
			_, effects, err := booking.Next(booking.StateBookingConfirmed, booking.Event{Kind: booking.EventCancel})

			Expect(err).ToNot(HaveOccurred())
			Expect(effects).To(ContainElement(booking.EffectReleaseUnit))
		})

		It("expires only confirmed bookings", func() {
			next, effects, err := booking.Next(booking.StateBookingConfirmed, booking.Event{Kind: booking.EventExpire})
			Expect(err).ToNot(HaveOccurred())
			Expect(next).To(Equal(booking.StateBookingExpired))
			Expect(effects).To(ContainElements(booking.EffectReleaseUnit, booking.EffectNotifyExpired))

			_, _, err = booking.Next(booking.StatePaymentPending, booking.Event{Kind: booking.EventExpire})
			Expect(err).To(MatchError(apperrors.ErrInvalidBookingState))
		})

		It("rejects every event in a terminal state", func() {
			for _, state := range []booking.State{booking.StateBookingCancelled, booking.StateBookingExpired} {
				for _, kind := range []booking.EventKind{
					booking.EventRequestMeeting,
					booking.EventIssueCheckout,
					booking.EventPaymentSucceeded,
					booking.EventCancel,
					booking.EventExpire,
				} {
					_, _, err := booking.Next(state, booking.Event{Kind: kind})
					Expect(err).To(MatchError(apperrors.ErrBookingTerminal))
				}
			}
		})
	})
})
