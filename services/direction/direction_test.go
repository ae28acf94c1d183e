package direction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tradereplay/services/market"
)

// fixedRand returns a constant draw so confidence math is exact in tests.
type fixedRand struct{ v float64 }

func (f fixedRand) Float64() float64 { return f.v }

func TestEfficiency(t *testing.T) {
	require.InDelta(t, 0.5, Efficiency(market.Candle{Open: 1.0, High: 1.2, Low: 1.0, Close: 1.1}), 1e-12)
	require.Zero(t, Efficiency(market.Candle{Open: 1, High: 1, Low: 1, Close: 1}))
}

func TestClassifyNeutralOnWickyBar(t *testing.T) {
	// Body 0.01 over a 0.10 range: efficiency 0.1, below the cutoff.
	decision := market.Candle{Open: 1.00, High: 1.06, Low: 0.96, Close: 1.01}
	res := Classify(decision, market.Candle{}, fixedRand{0.5})

	require.Equal(t, Neutral, res.Bias)
	require.Equal(t, NeutralConfidence, res.Confidence)
}

func TestClassifyBiasFollowsBodySign(t *testing.T) {
	up := market.Candle{Open: 1.00, High: 1.10, Low: 0.99, Close: 1.08}
	down := market.Candle{Open: 1.08, High: 1.09, Low: 0.98, Close: 1.00}

	require.Equal(t, Long, Classify(up, market.Candle{}, fixedRand{0.5}).Bias)
	require.Equal(t, Short, Classify(down, market.Candle{}, fixedRand{0.5}).Bias)
}

func TestClassifyAgreementBonus(t *testing.T) {
	decision := market.Candle{Open: 1.00, High: 1.10, Low: 0.99, Close: 1.08}
	agreeing := market.Candle{Open: 1.00, High: 1.02, Low: 0.99, Close: 1.01}
	opposing := market.Candle{Open: 1.01, High: 1.02, Low: 0.99, Close: 1.00}

	// rng draw of 0.5 makes the jitter term exactly zero.
	with := Classify(decision, agreeing, fixedRand{0.5})
	without := Classify(decision, opposing, fixedRand{0.5})

	require.Equal(t, with.Bias, without.Bias)
	require.InDelta(t, agreementBonus, with.Confidence-without.Confidence, 1e-12)
}

func TestClassifyConfidenceBounded(t *testing.T) {
	// Full-body bar, agreeing confirmation, maximum jitter draw.
	decision := market.Candle{Open: 1.00, High: 1.10, Low: 1.00, Close: 1.10}
	confirm := market.Candle{Open: 1.00, High: 1.01, Low: 1.00, Close: 1.01}

	res := Classify(decision, confirm, fixedRand{1.0})
	require.Equal(t, Long, res.Bias)
	require.LessOrEqual(t, res.Confidence, confidenceCeiling)

	res = Classify(decision, confirm, fixedRand{0.0})
	require.GreaterOrEqual(t, res.Confidence, NeutralConfidence)
}
