package scanner

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/gorm"

	"storage-marketplace/internal/catalog"
	bookingmodel "storage-marketplace/internal/core/datamodel/booking"
	catalogmodel "storage-marketplace/internal/core/datamodel/catalog"
	"storage-marketplace/internal/core/events"
)

type stubBookingSource struct {
	ending    []*bookingmodel.Booking
	confirmed []*bookingmodel.Booking
	updated   []int64
}

func (s *stubBookingSource) ListConfirmedEndingBefore(monthStart, cutoff time.Time) ([]*bookingmodel.Booking, error) {
	return s.ending, nil
}

func (s *stubBookingSource) ListConfirmedByPeriod(period string) ([]*bookingmodel.Booking, error) {
	return s.confirmed, nil
}

func (s *stubBookingSource) Update(b *bookingmodel.Booking) error {
	s.updated = append(s.updated, b.ID)
	return nil
}

type stubExpirer struct {
	calls   []int64
	failIDs map[int64]bool
}

func (s *stubExpirer) Expire(ctx context.Context, bookingID int64) error {
	s.calls = append(s.calls, bookingID)
	if s.failIDs[bookingID] {
		return gorm.ErrInvalidData
	}
	return nil
}

type stubBillingLedger struct {
	covered  map[int64]bool
	checkErr error
}

func (s *stubBillingLedger) HasSucceededPaymentInWindow(bookingID int64, from, to time.Time) (bool, error) {
	if s.checkErr != nil {
		return false, s.checkErr
	}
	return s.covered[bookingID], nil
}

type stubCatalogRepository struct {
	units map[int64]*catalogmodel.StorageUnit
}

func (s *stubCatalogRepository) GetUnit(unitID int64) (*catalogmodel.StorageUnit, error) {
	u, ok := s.units[unitID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (s *stubCatalogRepository) GetProperty(propertyID int64) (*catalogmodel.Property, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepository) GetPropertiesByOwner(ownerID int64) ([]*catalogmodel.Property, error) {
	return nil, nil
}

func (s *stubCatalogRepository) SetOccupancy(unitID int64, occupied bool) error { return nil }

func (s *stubCatalogRepository) AdjustActiveCount(propertyID int64, delta int) error { return nil }

var _ = ginkgo.Describe("Daily sweep", func() {
	var (
		ctx       context.Context
		fixedNow  time.Time
		bookings  *stubBookingSource
		expirer   *stubExpirer
		ledger    *stubBillingLedger
		eventBus  *events.EventBus
		reminders chan events.Event
		sweep     *Scanner
	)

	newMonthly := func(id int64, start time.Time) *bookingmodel.Booking {
		return &bookingmodel.Booking{
			ID:             id,
			CustomerID:     7,
			UnitID:         5,
			PropertyID:     1,
			StartDate:      &start,
			LifecycleState: "booking-confirmed",
			PaymentPeriod:  bookingmodel.PeriodMonthly,
		}
	}

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		fixedNow = time.Date(2025, time.June, 15, 9, 30, 0, 0, time.UTC)
		bookings = &stubBookingSource{}
		expirer = &stubExpirer{failIDs: make(map[int64]bool)}
		ledger = &stubBillingLedger{covered: make(map[int64]bool)}

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		eventBus = events.NewEventBus(logger)
		reminders = make(chan events.Event, 8)
		eventBus.Subscribe(events.EventTypeReminderDue, func(ctx context.Context, e events.Event) error {
			reminders <- e
			return nil
		})

		catalogRepo := &stubCatalogRepository{units: map[int64]*catalogmodel.StorageUnit{
			5: {ID: 5, PropertyID: 1, MonthlyCharge: 10000},
		}}
		sweep = New(bookings, expirer, ledger, catalog.NewService(catalogRepo, logger), eventBus, logger)
		sweep.now = func() time.Time { return fixedNow }
	})

	ginkgo.Describe("expiry pass", func() {
		ginkgo.It("expires every candidate the repository returns", func() {
			bookings.ending = []*bookingmodel.Booking{{ID: 1}, {ID: 2}, {ID: 3}}

			sweep.sweepExpired(ctx)

			gomega.Expect(expirer.calls).To(gomega.Equal([]int64{1, 2, 3}))
		})

		ginkgo.It("keeps sweeping after a failed transition", func() {
			bookings.ending = []*bookingmodel.Booking{{ID: 1}, {ID: 2}, {ID: 3}}
			expirer.failIDs[2] = true

			sweep.sweepExpired(ctx)

			gomega.Expect(expirer.calls).To(gomega.Equal([]int64{1, 2, 3}))
		})
	})

	ginkgo.Describe("reminder pass", func() {
		ginkgo.It("emits a reminder and stamps the booking when a cycle lands on today", func() {
			start := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
			b := newMonthly(10, start)
			bookings.confirmed = []*bookingmodel.Booking{b}

			sweep.sweepReminders(ctx)

			gomega.Expect(bookings.updated).To(gomega.Equal([]int64{10}))
			gomega.Expect(b.LastReminderSentOn).ToNot(gomega.BeNil())
			gomega.Expect(b.LastReminderSentOn.Equal(time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC))).To(gomega.BeTrue())
			gomega.Eventually(reminders).Should(gomega.Receive())
		})

		ginkgo.It("skips bookings without an established term", func() {
			b := newMonthly(10, fixedNow)
			b.StartDate = nil
			bookings.confirmed = []*bookingmodel.Booking{b}

			sweep.sweepReminders(ctx)

			gomega.Expect(bookings.updated).To(gomega.BeEmpty())
		})

		ginkgo.It("never reminds on the start date itself", func() {
			start := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
			bookings.confirmed = []*bookingmodel.Booking{newMonthly(10, start)}

			sweep.sweepReminders(ctx)

			gomega.Expect(bookings.updated).To(gomega.BeEmpty())
		})

		ginkgo.It("skips bookings whose cycle lands on another day", func() {
			start := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)
			bookings.confirmed = []*bookingmodel.Booking{newMonthly(10, start)}

			sweep.sweepReminders(ctx)

			gomega.Expect(bookings.updated).To(gomega.BeEmpty())
		})

		ginkgo.It("sends at most one reminder per day per booking", func() {
			start := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
			b := newMonthly(10, start)
			bookings.confirmed = []*bookingmodel.Booking{b}

			sweep.sweepReminders(ctx)
			sweep.sweepReminders(ctx)

			gomega.Expect(bookings.updated).To(gomega.Equal([]int64{10}))
		})

		ginkgo.It("skips cycles already covered by a successful payment", func() {
			start := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
			b := newMonthly(10, start)
			bookings.confirmed = []*bookingmodel.Booking{b}
			ledger.covered[10] = true

			sweep.sweepReminders(ctx)

			gomega.Expect(bookings.updated).To(gomega.BeEmpty())
			gomega.Expect(b.LastReminderSentOn).To(gomega.BeNil())
		})

		ginkgo.It("isolates ledger failures to the affected booking", func() {
			start := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
			bookings.confirmed = []*bookingmodel.Booking{newMonthly(10, start)}
			ledger.checkErr = gorm.ErrInvalidDB

			sweep.sweepReminders(ctx)

			gomega.Expect(bookings.updated).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("non-UTC locations", func() {
		ginkgo.It("stamps reminders on the local calendar day", func() {
			jakarta := time.FixedZone("WIB", 7*60*60)
			fixedNow = time.Date(2025, time.June, 15, 6, 0, 0, 0, jakarta)
			start := time.Date(2025, time.March, 15, 0, 30, 0, 0, jakarta)
			b := newMonthly(10, start)
			bookings.confirmed = []*bookingmodel.Booking{b}

			sweep.sweepReminders(ctx)

			gomega.Expect(bookings.updated).To(gomega.Equal([]int64{10}))
			gomega.Expect(b.LastReminderSentOn).ToNot(gomega.BeNil())
			gomega.Expect(b.LastReminderSentOn.Equal(time.Date(2025, time.June, 15, 0, 0, 0, 0, jakarta))).To(gomega.BeTrue())
		})
	})
})
