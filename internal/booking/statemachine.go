package booking

import (
	apperrors "storage-marketplace/internal"
)

// State is the closed set of booking lifecycle states. The stored
// lifecycle_state column only ever holds one of these values and is mutated
// exclusively through Next.
type State string

const (
	StateInitiated                     State = "initiated"
	StateMeetingRequested              State = "meeting-requested"
	StateMeetingConfirmed              State = "meeting-confirmed"
	StateMeetingRejected               State = "meeting-rejected"
	StateDocumentsUploaded             State = "documents-uploaded"
	StateDocumentsUnderReview          State = "documents-under-review"
	StateDocumentsApproved             State = "documents-approved"
	StateDocumentsResubmissionRequired State = "documents-resubmission-required"
	StateDocumentsRejected             State = "documents-rejected"
	StateDocumentsResubmitted          State = "documents-resubmitted"
	StatePaymentPending                State = "payment-pending"
	StateBookingConfirmed              State = "booking-confirmed"
	StateBookingCancelled              State = "booking-cancelled"
	StateBookingExpired                State = "booking-expired"
)

func (s State) Terminal() bool {
	return s == StateBookingCancelled || s == StateBookingExpired
}

// EventKind names a lifecycle trigger. Each kind carries its own payload on
// the Event struct; irrelevant fields stay zero.
type EventKind string

const (
	EventRequestMeeting    EventKind = "request-meeting"
	EventConfirmMeeting    EventKind = "confirm-meeting"
	EventRejectMeeting     EventKind = "reject-meeting"
	EventUploadDocuments   EventKind = "upload-documents"
	EventResubmitDocuments EventKind = "resubmit-documents"
	EventReviewDocuments   EventKind = "review-documents"
	EventIssueCheckout     EventKind = "issue-checkout"
	EventPaymentSucceeded  EventKind = "payment-succeeded"
	EventPaymentFailed     EventKind = "payment-failed"
	EventRefund            EventKind = "refund"
	EventCancel            EventKind = "cancel"
	EventExpire            EventKind = "expire"
)

// DocumentReview is the aggregate outcome of reviewing a booking's full
// document set. The transition is a function of the whole set, recomputed on
// every review, never of the single document just decided.
type DocumentReview struct {
	Total                int
	Approved             int
	Rejected             int
	PendingReview        int
	ResubmissionRequired int
}

func (r DocumentReview) allApproved() bool {
	return r.Total > 0 && r.Approved == r.Total
}

type Event struct {
	Kind         EventKind
	Review       DocumentReview
	FirstPayment bool
	Reason       string
}

// Effect is a side-effect intent emitted by a transition. The service
// executes effects after persisting the new state; effect failures are
// isolated from the transition itself.
type Effect string

const (
	EffectOccupyUnit       Effect = "occupy-unit"
	EffectReleaseUnit      Effect = "release-unit"
	EffectEstablishTerm    Effect = "establish-term"
	EffectCloseTerm        Effect = "close-term"
	EffectNotifyConfirmed  Effect = "notify-confirmed"
	EffectNotifyCancelled  Effect = "notify-cancelled"
	EffectNotifyExpired    Effect = "notify-expired"
	EffectNotifyRecurrence Effect = "notify-recurrence"
)

// Next is the pure transition function: given the current state and an event
// it returns the new state and the side-effect intents, or an error when the
// event is not legal in the current state. It never touches storage.
func Next(current State, event Event) (State, []Effect, error) {
	if current.Terminal() {
		return current, nil, apperrors.ErrBookingTerminal
	}

	switch event.Kind {
	case EventRequestMeeting:
		if current != StateInitiated {
			return current, nil, apperrors.ErrInvalidBookingState
		}
		return StateMeetingRequested, nil, nil

	case EventConfirmMeeting:
		if current != StateMeetingRequested {
			return current, nil, apperrors.ErrInvalidBookingState
		}
		return StateMeetingConfirmed, nil, nil

	case EventRejectMeeting:
		if current != StateMeetingRequested {
			return current, nil, apperrors.ErrInvalidBookingState
		}
		return StateMeetingRejected, nil, nil

	case EventUploadDocuments:
		switch current {
		case StateInitiated, StateMeetingRequested, StateMeetingConfirmed, StateMeetingRejected, StateDocumentsUploaded:
			return StateDocumentsUploaded, nil, nil
		}
		return current, nil, apperrors.ErrInvalidBookingState

	case EventResubmitDocuments:
		switch current {
		case StateDocumentsResubmissionRequired, StateDocumentsRejected:
			return StateDocumentsResubmitted, nil, nil
		}
		return current, nil, apperrors.ErrInvalidBookingState

	case EventReviewDocuments:
		switch current {
		case StateDocumentsUploaded, StateDocumentsUnderReview, StateDocumentsResubmitted, StateDocumentsResubmissionRequired:
		default:
			return current, nil, apperrors.ErrInvalidBookingState
		}
		switch {
		case event.Review.allApproved():
			return StateDocumentsApproved, nil, nil
		case event.Review.ResubmissionRequired > 0:
			return StateDocumentsResubmissionRequired, nil, nil
		case event.Review.Rejected > 0:
			return StateDocumentsRejected, nil, nil
		default:
			return StateDocumentsUnderReview, nil, nil
		}

	case EventIssueCheckout:
		switch current {
		case StateDocumentsApproved, StatePaymentPending:
			return StatePaymentPending, nil, nil
		case StateInitiated:
			// manual admin assignment skips the meeting/document track
			return StatePaymentPending, nil, nil
		}
		return current, nil, apperrors.ErrInvalidBookingState

	case EventPaymentSucceeded:
		switch current {
		case StatePaymentPending:
			effects := []Effect{EffectOccupyUnit, EffectNotifyConfirmed}
			if event.FirstPayment {
				effects = append(effects, EffectEstablishTerm)
			}
			return StateBookingConfirmed, effects, nil
		case StateBookingConfirmed:
			// recurring billing re-enters confirmed without a lifecycle change
			return StateBookingConfirmed, []Effect{EffectNotifyRecurrence}, nil
		}
		return current, nil, apperrors.ErrInvalidBookingState

	case EventPaymentFailed:
		// the unit was never granted, so nothing is released
		if current != StatePaymentPending {
			return current, nil, apperrors.ErrInvalidBookingState
		}
		return StatePaymentPending, nil, nil

	case EventRefund:
		if current != StateBookingConfirmed {
			return current, nil, apperrors.ErrInvalidBookingState
		}
		return StateBookingCancelled, []Effect{EffectReleaseUnit, EffectCloseTerm, EffectNotifyCancelled}, nil

	case EventCancel:
		effects := []Effect{EffectCloseTerm, EffectNotifyCancelled}
		if current == StateBookingConfirmed {
			effects = append([]Effect{EffectReleaseUnit}, effects...)
		}
		return StateBookingCancelled, effects, nil

	case EventExpire:
		if current != StateBookingConfirmed {
			return current, nil, apperrors.ErrInvalidBookingState
		}
		return StateBookingExpired, []Effect{EffectReleaseUnit, EffectCloseTerm, EffectNotifyExpired}, nil
	}

	return current, nil, apperrors.ErrInvalidBookingState
}
