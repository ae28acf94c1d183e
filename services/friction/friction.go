package friction

import (
	"math"

	"tradereplay/services/direction"
	"tradereplay/services/market"
)

// Volatility multiplier bands over the atr/avgAtr ratio. A missing baseline
// (avgAtr == 0) is treated as normal rather than inventing volatility.
const (
	volRatioLow      = 0.8
	volRatioElevated = 1.2
	volRatioHigh     = 1.8

	volMultLow      = 0.9
	volMultNormal   = 1.0
	volMultElevated = 1.3
	volMultHigh     = 1.7

	spreadJitterAmp = 0.05
	slipJitterAmp   = 0.08
	slipBaseFrac    = 0.15 // base slippage as a fraction of the spread baseline
	slipVolFrac     = 0.35 // slippage added per unit of excess ATR ratio
)

// Quote carries the spread and slippage applied to one fill, in pips and raw
// price units, tagged with the multipliers that produced them. Retained on
// the trade record for auditability; never recomputed later.
type Quote struct {
	Session       Session
	SpreadPips    float64
	SpreadPrice   float64
	SlippagePips  float64
	SlippagePrice float64
	SessionMult   float64
	VolMult       float64
}

// VolatilityMultiplier is the 4-bucket step function of the ATR ratio shared
// by the spread model and the regime classifier.
func VolatilityMultiplier(atr, avgAtr float64) float64 {
	switch ratio := atrRatio(atr, avgAtr); {
	case ratio < volRatioLow:
		return volMultLow
	case ratio < volRatioElevated:
		return volMultNormal
	case ratio < volRatioHigh:
		return volMultElevated
	default:
		return volMultHigh
	}
}

func atrRatio(atr, avgAtr float64) float64 {
	if avgAtr <= 0 {
		return 1.0
	}
	return atr / avgAtr
}

// ComputeSpread returns the spread in pips for one fill:
// baseline x session multiplier x volatility multiplier x deterministic
// jitter. The jitter is a pure function of the seed, never a stateful
// generator, so repeated calls with the same seed are identical.
func ComputeSpread(spec market.InstrumentSpec, hourUTC int, atr, avgAtr float64, seed int64) (pips, sessionMult, volMult float64) {
	session := ClassifySession(hourUTC)
	sessionMult = sessionSpreadMult[session]
	volMult = VolatilityMultiplier(atr, avgAtr)
	jitter := 1 + spreadJitterAmp*math.Sin(float64(seed))
	return spec.SpreadPips * sessionMult * volMult * jitter, sessionMult, volMult
}

// ComputeSlippage returns the slippage in pips for one fill: a base term
// proportional to the instrument's spread baseline, a volatility term driven
// by the excess ATR ratio, and a session-specific additive penalty, floored
// at zero. Jitter is independent of the spread jitter but equally
// deterministic.
func ComputeSlippage(spec market.InstrumentSpec, hourUTC int, atr, avgAtr float64, seed int64) float64 {
	session := ClassifySession(hourUTC)
	base := spec.SpreadPips * slipBaseFrac
	volTerm := math.Max(0, atrRatio(atr, avgAtr)-1) * spec.SpreadPips * slipVolFrac
	jitter := 1 + slipJitterAmp*math.Cos(float64(seed))

	pips := (base+volTerm)*jitter + sessionSlipAddPips[session]
	return math.Max(0, pips)
}

// QuoteFor assembles the full friction quote for one prospective fill.
func QuoteFor(spec market.InstrumentSpec, hourUTC int, atr, avgAtr float64, seed int64) Quote {
	spreadPips, sessionMult, volMult := ComputeSpread(spec, hourUTC, atr, avgAtr, seed)
	slipPips := ComputeSlippage(spec, hourUTC, atr, avgAtr, seed)
	return Quote{
		Session:       ClassifySession(hourUTC),
		SpreadPips:    spreadPips,
		SpreadPrice:   spreadPips * spec.PipSize,
		SlippagePips:  slipPips,
		SlippagePrice: slipPips * spec.PipSize,
		SessionMult:   sessionMult,
		VolMult:       volMult,
	}
}

// FillPrice applies the quote to a mid price. Longs pay up, shorts receive
// less: friction always works against the trader.
func FillPrice(bias direction.Bias, mid float64, q Quote) float64 {
	cost := q.SpreadPrice/2 + q.SlippagePrice
	if bias == direction.Short {
		return mid - cost
	}
	return mid + cost
}
