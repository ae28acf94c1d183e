package market

import "math"

// ComputeATR returns the Wilder-smoothed average true range over the trailing
// period, seeded with the SMA of the first period true-range values. The true
// range of the first candle is high-low since no previous close exists.
// Returns 0 when fewer than period+1 candles are available; callers must
// treat 0 as "insufficient data", not as zero volatility.
func ComputeATR(candles []Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}

	tr := make([]float64, len(candles))
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		hl := candles[i].High - candles[i].Low
		hc := math.Abs(candles[i].High - candles[i-1].Close)
		lc := math.Abs(candles[i].Low - candles[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	// Seed with SMA of the first period TR values, then Wilder's smoothing:
	// RMA = (RMA*(N-1) + TR) / N
	var atr float64
	for i := 1; i <= period; i++ {
		atr += tr[i]
	}
	atr /= float64(period)
	for i := period + 1; i < len(candles); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
	}
	return atr
}
