package friction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tradereplay/services/direction"
	"tradereplay/services/market"
)

func TestClassifySession(t *testing.T) {
	cases := []struct {
		hour int
		want Session
	}{
		{21, SessionRollover},
		{22, SessionRollover},
		{23, SessionAsian},
		{0, SessionAsian},
		{6, SessionAsian},
		{7, SessionLondon},
		{11, SessionLondon},
		{12, SessionNYOverlap},
		{16, SessionNYOverlap},
		{17, SessionLateNY},
		{20, SessionLateNY},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ClassifySession(tc.hour), "hour %d", tc.hour)
	}

	// Every hour of the day maps to some band.
	for h := 0; h < 24; h++ {
		require.NotEmpty(t, ClassifySession(h))
	}
}

func TestSpreadRepeatableForSeed(t *testing.T) {
	spec, err := market.Spec("EURUSD")
	require.NoError(t, err)

	a, _, _ := ComputeSpread(spec, 9, 0.0012, 0.0010, 12345)
	b, _, _ := ComputeSpread(spec, 9, 0.0012, 0.0010, 12345)
	require.Equal(t, a, b)

	c, _, _ := ComputeSpread(spec, 9, 0.0012, 0.0010, 54321)
	require.NotEqual(t, a, c)
}

func TestSpreadWidensWithSessionAndVolatility(t *testing.T) {
	spec, err := market.Spec("GBPUSD")
	require.NoError(t, err)

	london, _, _ := ComputeSpread(spec, 9, 0.001, 0.001, 1)
	rollover, _, _ := ComputeSpread(spec, 21, 0.001, 0.001, 1)
	require.Greater(t, rollover, london)

	calm, _, calmMult := ComputeSpread(spec, 9, 0.0007, 0.001, 1)
	wild, _, wildMult := ComputeSpread(spec, 9, 0.002, 0.001, 1)
	require.Greater(t, wild, calm)
	require.Equal(t, 0.9, calmMult)
	require.Equal(t, 1.7, wildMult)
}

func TestVolatilityMultiplierBands(t *testing.T) {
	cases := []struct {
		atr, avg float64
		want     float64
	}{
		{0.0007, 0.001, volMultLow},
		{0.001, 0.001, volMultNormal},
		{0.0013, 0.001, volMultElevated},
		{0.002, 0.001, volMultHigh},
		{0.001, 0, volMultNormal}, // missing baseline treated as normal
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, VolatilityMultiplier(tc.atr, tc.avg))
	}
}

func TestSlippageNeverNegativeAndRolloverWorst(t *testing.T) {
	spec, err := market.Spec("EURUSD")
	require.NoError(t, err)

	for h := 0; h < 24; h++ {
		for seed := int64(0); seed < 50; seed++ {
			require.GreaterOrEqual(t, ComputeSlippage(spec, h, 0.001, 0.001, seed), 0.0)
		}
	}

	rollover := ComputeSlippage(spec, 21, 0.001, 0.001, 7)
	overlap := ComputeSlippage(spec, 14, 0.001, 0.001, 7)
	require.Greater(t, rollover, overlap)
}

func TestFillPriceSignInvariant(t *testing.T) {
	spec, err := market.Spec("EURUSD")
	require.NoError(t, err)

	mid := 1.0850
	for seed := int64(0); seed < 100; seed++ {
		q := QuoteFor(spec, 14, 0.0011, 0.0010, seed)
		long := FillPrice(direction.Long, mid, q)
		short := FillPrice(direction.Short, mid, q)
		require.GreaterOrEqual(t, long, mid, "seed %d", seed)
		require.LessOrEqual(t, short, mid, "seed %d", seed)
	}
}

func TestQuoteTagsMultipliers(t *testing.T) {
	spec, err := market.Spec("EURJPY")
	require.NoError(t, err)

	q := QuoteFor(spec, 21, 0.02, 0.01, 3)
	require.Equal(t, SessionRollover, q.Session)
	require.Equal(t, 2.2, q.SessionMult)
	require.Equal(t, 1.7, q.VolMult)
	require.InDelta(t, q.SpreadPips*spec.PipSize, q.SpreadPrice, 1e-12)
	require.InDelta(t, q.SlippagePips*spec.PipSize, q.SlippagePrice, 1e-12)
}
