// Package direction derives a directional bias and confidence from
// higher-timeframe and confirmation-timeframe candle geometry.
package direction

import (
	"tradereplay/services/market"
)

// Bias is the directional read of the higher timeframe.
type Bias int

const (
	Neutral Bias = iota
	Long
	Short
)

func (b Bias) String() string {
	switch b {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "neutral"
	}
}

// Tunables for the classifier. Body efficiency below the cutoff means the
// higher-timeframe bar is mostly wick and carries no directional information.
const (
	EfficiencyCutoff  = 0.30
	NeutralConfidence = 0.20
	confidenceBase    = 0.50
	efficiencyWeight  = 0.35
	agreementBonus    = 0.10
	confidenceJitter  = 0.05
	confidenceCeiling = 0.95
)

// Result is the classifier output.
type Result struct {
	Bias       Bias
	Confidence float64
}

// Rand is the subset of a seeded stream the classifier draws from.
type Rand interface {
	Float64() float64
}

// Efficiency returns |close-open| / (high-low) for a candle, 0 for a
// degenerate zero-range bar.
func Efficiency(c market.Candle) float64 {
	r := c.High - c.Low
	if r <= 0 {
		return 0
	}
	body := c.Close - c.Open
	if body < 0 {
		body = -body
	}
	return body / r
}

// Classify reads the decision (higher-timeframe) candle for bias and blends
// in agreement from the confirmation (lower-timeframe) candle. A neutral
// bias carries a fixed low confidence and must short-circuit any trade
// consideration in the caller.
func Classify(decision, confirmation market.Candle, rng Rand) Result {
	eff := Efficiency(decision)
	if eff < EfficiencyCutoff {
		return Result{Bias: Neutral, Confidence: NeutralConfidence}
	}

	bias := Long
	if decision.Close < decision.Open {
		bias = Short
	}

	conf := confidenceBase + efficiencyWeight*eff
	if agrees(bias, confirmation) {
		conf += agreementBonus
	}
	conf += (rng.Float64()*2 - 1) * confidenceJitter

	if conf > confidenceCeiling {
		conf = confidenceCeiling
	}
	if conf < NeutralConfidence {
		conf = NeutralConfidence
	}
	return Result{Bias: bias, Confidence: conf}
}

func agrees(b Bias, c market.Candle) bool {
	switch b {
	case Long:
		return c.Close > c.Open
	case Short:
		return c.Close < c.Open
	default:
		return false
	}
}
