package ledger

// FeeSchedule is the injected fee configuration. Percentages are carried as
// basis points (290 = 2.9%) so the whole ledger path stays in integer
// arithmetic; no floating point is permitted anywhere money is computed.
type FeeSchedule struct {
	GatewayFeeBps   int64
	GatewayFixedFee int64
	PlatformFeeBps  int64
}

type FeeBreakdown struct {
	GatewayFee  int64
	PlatformFee int64
	NetAmount   int64
}

// Compute splits a gross charge into gateway fee, platform fee and the net
// amount owed to the property owner. Rounding is half-up on minor units.
func (s FeeSchedule) Compute(grossAmount int64) FeeBreakdown {
	gatewayFee := roundHalfUpBps(grossAmount, s.GatewayFeeBps) + s.GatewayFixedFee
	platformFee := roundHalfUpBps(grossAmount, s.PlatformFeeBps)
	return FeeBreakdown{
		GatewayFee:  gatewayFee,
		PlatformFee: platformFee,
		NetAmount:   grossAmount - gatewayFee - platformFee,
	}
}

func roundHalfUpBps(amount, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}
