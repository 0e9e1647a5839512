package booking_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	apperrors "storage-marketplace/internal"
	"storage-marketplace/internal/booking"
	"storage-marketplace/internal/catalog"
	bookingmodel "storage-marketplace/internal/core/datamodel/booking"
	catalogmodel "storage-marketplace/internal/core/datamodel/catalog"
	"storage-marketplace/internal/core/events"
	"storage-marketplace/internal/document"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockBookingRepository struct {
	bookings map[int64]*bookingmodel.Booking
	nextID   int64
}

func newMockBookingRepository() *mockBookingRepository {
	return &mockBookingRepository{bookings: make(map[int64]*bookingmodel.Booking), nextID: 1}
}

func (m *mockBookingRepository) Create(b *bookingmodel.Booking) error {
	b.ID = m.nextID
	m.nextID++
	b.CreatedAt = time.Now()
	m.bookings[b.ID] = b
	return nil
}

func (m *mockBookingRepository) GetByID(id int64) (*bookingmodel.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (m *mockBookingRepository) Update(b *bookingmodel.Booking) error {
	m.bookings[b.ID] = b
	return nil
}

func (m *mockBookingRepository) GetActiveByUnit(unitID int64) (*bookingmodel.Booking, error) {
	for _, b := range m.bookings {
		state := booking.State(b.LifecycleState)
		if b.UnitID == unitID && !state.Terminal() {
			return b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBookingRepository) ListByCustomer(customerID int64) ([]*bookingmodel.Booking, error) {
	var out []*bookingmodel.Booking
	for _, b := range m.bookings {
		if b.CustomerID == customerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBookingRepository) ListConfirmedEndingBefore(monthStart, cutoff time.Time) ([]*bookingmodel.Booking, error) {
	return nil, nil
}

func (m *mockBookingRepository) ListConfirmedByPeriod(period string) ([]*bookingmodel.Booking, error) {
	return nil, nil
}

func (m *mockBookingRepository) SoftDelete(id int64) error {
	delete(m.bookings, id)
	return nil
}

type mockCatalogRepository struct {
	units      map[int64]*catalogmodel.StorageUnit
	properties map[int64]*catalogmodel.Property
}

func newMockCatalogRepository() *mockCatalogRepository {
	return &mockCatalogRepository{
		units:      make(map[int64]*catalogmodel.StorageUnit),
		properties: make(map[int64]*catalogmodel.Property),
	}
}

func (m *mockCatalogRepository) GetUnit(unitID int64) (*catalogmodel.StorageUnit, error) {
	u, ok := m.units[unitID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (m *mockCatalogRepository) GetProperty(propertyID int64) (*catalogmodel.Property, error) {
	p, ok := m.properties[propertyID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (m *mockCatalogRepository) GetPropertiesByOwner(ownerID int64) ([]*catalogmodel.Property, error) {
	var out []*catalogmodel.Property
	for _, p := range m.properties {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalogRepository) SetOccupancy(unitID int64, occupied bool) error {
	if u, ok := m.units[unitID]; ok {
		u.IsOccupied = occupied
	}
	return nil
}

func (m *mockCatalogRepository) AdjustActiveCount(propertyID int64, delta int) error {
	if p, ok := m.properties[propertyID]; ok {
		p.ActiveCount += delta
	}
	return nil
}

type mockActionGuard struct {
	completed map[int64]bool
}

func newMockActionGuard() *mockActionGuard {
	return &mockActionGuard{completed: make(map[int64]bool)}
}

func (m *mockActionGuard) CompleteAction(notificationID int64) error {
	if m.completed[notificationID] {
		return apperrors.ErrActionAlreadyDone
	}
	m.completed[notificationID] = true
	return nil
}

type mockPaymentCollector struct {
	collectCalls []int64
	collectErr   error
	hasPayment   bool
}

func (m *mockPaymentCollector) CollectManual(ctx context.Context, bookingID, adminID int64, source string) error {
	if m.collectErr != nil {
		return m.collectErr
	}
	m.collectCalls = append(m.collectCalls, bookingID)
	return nil
}

func (m *mockPaymentCollector) HasCompletedPayment(bookingID int64) (bool, error) {
	return m.hasPayment, nil
}

var _ = Describe("Booking service", func() {
	var (
		ctx       context.Context
		repo      *mockBookingRepository
		catalogDB *mockCatalogRepository
		guard     *mockActionGuard
		collector *mockPaymentCollector
		service   *booking.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockBookingRepository()
		catalogDB = newMockCatalogRepository()
		guard = newMockActionGuard()
		collector = &mockPaymentCollector{}

		catalogDB.units[5] = &catalogmodel.StorageUnit{ID: 5, PropertyID: 1, MonthlyCharge: 10000, YearlyCharge: 110000}
		catalogDB.properties[1] = &catalogmodel.Property{ID: 1, OwnerID: 101}

		service = booking.NewService(repo, catalog.NewService(catalogDB, discardLogger()),
			events.NewEventBus(discardLogger()), guard, discardLogger())
		service.SetPaymentCollector(collector)
	})

	seedBooking := func(state booking.State) *bookingmodel.Booking {
		b := &bookingmodel.Booking{
			CustomerID:     7,
			UnitID:         5,
			PropertyID:     1,
			LifecycleState: string(state),
			PaymentState:   bookingmodel.PaymentStateUnpaid,
			PaymentPeriod:  bookingmodel.PeriodMonthly,
		}
		Expect(repo.Create(b)).To(Succeed())
		return b
	}

	Describe("Create", func() {
		It("opens an initiated booking for an available unit", func() {
			resp, err := service.Create(ctx, 7, booking.CreateBookingRequest{UnitID: 5, PaymentPeriod: "monthly"})

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.LifecycleState).To(Equal(string(booking.StateInitiated)))
			Expect(resp.PaymentState).To(Equal(bookingmodel.PaymentStateUnpaid))
			Expect(resp.PropertyID).To(Equal(int64(1)))
		})

		It("rejects an occupied unit", func() {
			catalogDB.units[5].IsOccupied = true

			_, err := service.Create(ctx, 7, booking.CreateBookingRequest{UnitID: 5, PaymentPeriod: "monthly"})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeUnitUnavailable))
		})

		It("rejects a unit that already carries an active booking", func() {
			seedBooking(booking.StateDocumentsUnderReview)

			_, err := service.Create(ctx, 8, booking.CreateBookingRequest{UnitID: 5, PaymentPeriod: "monthly"})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeUnitUnavailable))
		})

		It("allows rebooking a unit whose previous booking is terminal", func() {
			seedBooking(booking.StateBookingCancelled)

			_, err := service.Create(ctx, 8, booking.CreateBookingRequest{UnitID: 5, PaymentPeriod: "monthly"})

			Expect(err).ToNot(HaveOccurred())
		})

		It("rejects unknown payment periods", func() {
			_, err := service.Create(ctx, 7, booking.CreateBookingRequest{UnitID: 5, PaymentPeriod: "weekly"})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
		})

		It("rejects unknown units", func() {
			_, err := service.Create(ctx, 7, booking.CreateBookingRequest{UnitID: 99, PaymentPeriod: "monthly"})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeNotFound))
		})
	})

	Describe("ConfirmFromPayment", func() {
		It("establishes a 12-month term and occupies the unit on the first payment", func() {
			b := seedBooking(booking.StatePaymentPending)

			Expect(service.ConfirmFromPayment(ctx, b.ID, true)).To(Succeed())

			Expect(b.LifecycleState).To(Equal(string(booking.StateBookingConfirmed)))
			Expect(b.PaymentState).To(Equal(bookingmodel.PaymentStatePaid))
			Expect(b.StartDate).ToNot(BeNil())
			Expect(b.EndDate).ToNot(BeNil())
			Expect(b.EndDate.Sub(*b.StartDate)).To(BeNumerically("~", 365*24*time.Hour, 2*24*time.Hour))
			Expect(catalogDB.units[5].IsOccupied).To(BeTrue())
			Expect(catalogDB.properties[1].ActiveCount).To(Equal(1))
		})

		It("keeps the existing term on a recurring payment", func() {
			b := seedBooking(booking.StateBookingConfirmed)
			start := time.Now().AddDate(0, -3, 0)
			end := start.AddDate(1, 0, 0)
			b.StartDate = &start
			b.EndDate = &end

			Expect(service.ConfirmFromPayment(ctx, b.ID, false)).To(Succeed())

			Expect(b.StartDate.Equal(start)).To(BeTrue())
			Expect(b.EndDate.Equal(end)).To(BeTrue())
		})

		It("rejects payment success outside the payment track", func() {
			b := seedBooking(booking.StateDocumentsUnderReview)

			err := service.ConfirmFromPayment(ctx, b.ID, true)

			Expect(err).To(MatchError(apperrors.ErrInvalidBookingState))
			Expect(catalogDB.units[5].IsOccupied).To(BeFalse())
		})
	})

	Describe("HandlePaymentFailure", func() {
		It("keeps the booking in payment-pending for a retry", func() {
			b := seedBooking(booking.StatePaymentPending)
			b.PaymentState = bookingmodel.PaymentStatePending

			Expect(service.HandlePaymentFailure(ctx, b.ID, "card declined")).To(Succeed())

			Expect(b.LifecycleState).To(Equal(string(booking.StatePaymentPending)))
			Expect(b.PaymentState).To(Equal(bookingmodel.PaymentStateUnpaid))
			Expect(catalogDB.units[5].IsOccupied).To(BeFalse())
		})
	})

	Describe("Cancel", func() {
		It("releases the unit when cancelling a confirmed booking", func() {
			b := seedBooking(booking.StateBookingConfirmed)
			start := time.Now().AddDate(0, -1, 0)
			b.StartDate = &start
			catalogDB.units[5].IsOccupied = true
			catalogDB.properties[1].ActiveCount = 1

			resp, err := service.Cancel(ctx, b.ID, 7, false, "moving out")

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.LifecycleState).To(Equal(string(booking.StateBookingCancelled)))
			Expect(catalogDB.units[5].IsOccupied).To(BeFalse())
			Expect(catalogDB.properties[1].ActiveCount).To(BeZero())
		})

		It("forbids cancelling someone else's booking", func() {
			b := seedBooking(booking.StateInitiated)

			_, err := service.Cancel(ctx, b.ID, 8, false, "not mine")

			Expect(err).To(MatchError(apperrors.ErrUnauthorizedAccess))
		})

		It("lets an admin cancel any booking", func() {
			b := seedBooking(booking.StateInitiated)

			_, err := service.Cancel(ctx, b.ID, 1, true, "fraud")

			Expect(err).ToNot(HaveOccurred())
		})

		It("rejects cancelling a terminal booking", func() {
			b := seedBooking(booking.StateBookingExpired)

			_, err := service.Cancel(ctx, b.ID, 7, false, "too late")

			Expect(err).To(MatchError(apperrors.ErrBookingTerminal))
		})
	})

	Describe("Expire", func() {
		It("expires a confirmed booking and releases the unit", func() {
			b := seedBooking(booking.StateBookingConfirmed)
			start := time.Now().AddDate(-1, 0, 0)
			b.StartDate = &start
			catalogDB.units[5].IsOccupied = true

			Expect(service.Expire(ctx, b.ID)).To(Succeed())

			Expect(b.LifecycleState).To(Equal(string(booking.StateBookingExpired)))
			Expect(catalogDB.units[5].IsOccupied).To(BeFalse())
		})
	})

	Describe("AssignManually", func() {
		It("flags the booking and leaves it ready for checkout issuance", func() {
			resp, err := service.AssignManually(ctx, 1, booking.ManualAssignmentRequest{
				CustomerID:    7,
				UnitID:        5,
				PaymentPeriod: "yearly",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.IsManualAssignment).To(BeTrue())
			Expect(resp.LifecycleState).To(Equal(string(booking.StateInitiated)))

			Expect(service.MarkPaymentPending(ctx, resp.ID)).To(Succeed())
		})
	})

	Describe("admin command dispatch", func() {
		It("collects a payment exactly once per notification", func() {
			b := seedBooking(booking.StatePaymentPending)
			cmd := booking.CollectPaymentCommand{BookingID: b.ID, NotificationID: 11, AdminID: 1}

			Expect(service.Dispatch(ctx, cmd)).To(Succeed())
			err := service.Dispatch(ctx, cmd)

			Expect(err).To(MatchError(apperrors.ErrActionAlreadyDone))
			Expect(collector.collectCalls).To(Equal([]int64{b.ID}))
		})

		It("dispatches commands without a notification unguarded", func() {
			b := seedBooking(booking.StatePaymentPending)
			cmd := booking.CollectPaymentCommand{BookingID: b.ID, AdminID: 1}

			Expect(service.Dispatch(ctx, cmd)).To(Succeed())
			Expect(service.Dispatch(ctx, cmd)).To(Succeed())

			Expect(collector.collectCalls).To(HaveLen(2))
		})

		It("refuses to collect on a terminal booking", func() {
			b := seedBooking(booking.StateBookingCancelled)

			err := service.Dispatch(ctx, booking.CollectPaymentCommand{BookingID: b.ID, AdminID: 1})

			Expect(err).To(MatchError(apperrors.ErrBookingTerminal))
			Expect(collector.collectCalls).To(BeEmpty())
		})

		It("requires a reason to cancel", func() {
			b := seedBooking(booking.StatePaymentPending)

			err := service.Dispatch(ctx, booking.CancelBookingCommand{BookingID: b.ID, AdminID: 1})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidReason))
		})
	})
})

var _ document.BookingProgress = (*booking.Service)(nil)
