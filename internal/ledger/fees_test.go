package ledger_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"storage-marketplace/internal/ledger"
)

var _ = Describe("FeeSchedule", func() {
	var schedule ledger.FeeSchedule

	BeforeEach(func() {
		schedule = ledger.FeeSchedule{
			GatewayFeeBps:   290,
			GatewayFixedFee: 30,
			PlatformFeeBps:  210,
		}
	})

	Describe("Compute", func() {
		Context("with a gross charge of 10000", func() {
			It("splits into gateway fee 320, platform fee 210 and net 9470", func() {
				breakdown := schedule.Compute(10000)

				Expect(breakdown.GatewayFee).To(Equal(int64(320)))
				Expect(breakdown.PlatformFee).To(Equal(int64(210)))
				Expect(breakdown.NetAmount).To(Equal(int64(9470)))
			})

			It("keeps the split exhaustive", func() {
				breakdown := schedule.Compute(10000)

				Expect(breakdown.GatewayFee + breakdown.PlatformFee + breakdown.NetAmount).To(Equal(int64(10000)))
			})
		})

		Context("when the percentage does not divide evenly", func() {
			It("rounds half up on minor units", func() {
				// 999 * 290bps = 28.971 -> 29, 999 * 210bps = 20.979 -> 21
				breakdown := schedule.Compute(999)

				Expect(breakdown.GatewayFee).To(Equal(int64(59)))
				Expect(breakdown.PlatformFee).To(Equal(int64(21)))
				Expect(breakdown.NetAmount).To(Equal(int64(919)))
			})

			It("rounds an exact half upward", func() {
				// 500 * 290bps = 14.5 -> 15
				breakdown := schedule.Compute(500)

				Expect(breakdown.GatewayFee).To(Equal(int64(45)))
			})
		})

		Context("with zero percentage fees", func() {
			It("still charges the fixed fee", func() {
				flat := ledger.FeeSchedule{GatewayFixedFee: 30}
				breakdown := flat.Compute(10000)

				Expect(breakdown.GatewayFee).To(Equal(int64(30)))
				Expect(breakdown.PlatformFee).To(BeZero())
				Expect(breakdown.NetAmount).To(Equal(int64(9970)))
			})
		})
	})
})
