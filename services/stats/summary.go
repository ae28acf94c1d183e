// Package stats reduces a closed trade list into aggregate performance
// statistics. The reduction is pure and wholesale: summaries are recomputed
// from the full list, never updated incrementally.
package stats

import (
	"math"

	"tradereplay/services/engine"
)

// profitFactorSentinel stands in for an infinite profit factor when the run
// had no measurable gross loss.
const profitFactorSentinel = 999.0

// tradingDaysPerYear scales the per-trade Sharpe ratio to an annual figure.
const tradingDaysPerYear = 252

// Bucket is one row of a breakdown map.
type Bucket struct {
	Trades     int
	Wins       int
	NetPips    float64
	Expectancy float64
}

// Summary is the full aggregate over one run's trades.
type Summary struct {
	TotalTrades  int
	Wins         int
	Losses       int
	WinRate      float64
	NetPips      float64
	Expectancy   float64
	ProfitFactor float64
	MaxDrawdown  float64
	Sharpe       float64
	LongestWins  int
	LongestLoss  int
	AvgCapture   float64

	ByInstrument map[string]Bucket
	BySession    map[string]Bucket
	ByRegime     map[string]Bucket
}

// Summarize reduces trades to a Summary. An empty list yields the zero
// summary with initialized breakdown maps.
func Summarize(trades []engine.TradeRecord) Summary {
	s := Summary{
		ByInstrument: map[string]Bucket{},
		BySession:    map[string]Bucket{},
		ByRegime:     map[string]Bucket{},
	}
	if len(trades) == 0 {
		return s
	}

	var grossProfit, grossLoss, captureSum float64
	var winStreak, lossStreak int

	for _, tr := range trades {
		s.TotalTrades++
		s.NetPips += tr.Pips
		captureSum += tr.CaptureRatio

		if tr.Win {
			s.Wins++
			grossProfit += tr.Pips
			winStreak++
			lossStreak = 0
		} else {
			s.Losses++
			grossLoss += -tr.Pips
			lossStreak++
			winStreak = 0
		}
		if winStreak > s.LongestWins {
			s.LongestWins = winStreak
		}
		if lossStreak > s.LongestLoss {
			s.LongestLoss = lossStreak
		}

		bump(s.ByInstrument, tr.Instrument, tr)
		bump(s.BySession, string(tr.Session), tr)
		bump(s.ByRegime, string(tr.Regime), tr)
	}

	s.WinRate = float64(s.Wins) / float64(s.TotalTrades)
	s.Expectancy = s.NetPips / float64(s.TotalTrades)
	s.AvgCapture = captureSum / float64(s.TotalTrades)

	if grossLoss < 1e-9 {
		s.ProfitFactor = profitFactorSentinel
	} else {
		s.ProfitFactor = grossProfit / grossLoss
	}

	s.MaxDrawdown = maxDrawdown(trades)
	s.Sharpe = annualizedSharpe(trades)

	finalize(s.ByInstrument)
	finalize(s.BySession)
	finalize(s.ByRegime)
	return s
}

// maxDrawdown is the largest peak-to-trough decline of the cumulative pips
// curve, in trade order.
func maxDrawdown(trades []engine.TradeRecord) float64 {
	var equity, peak, dd float64
	for _, tr := range trades {
		equity += tr.Pips
		if equity > peak {
			peak = equity
		}
		if draw := peak - equity; draw > dd {
			dd = draw
		}
	}
	return dd
}

// annualizedSharpe computes mean/stddev of per-trade pips, scaled by the
// square root of the trading year. Sample standard deviation; degenerate
// inputs (fewer than two trades, zero variance) yield 0.
func annualizedSharpe(trades []engine.TradeRecord) float64 {
	if len(trades) < 2 {
		return 0
	}

	var sum float64
	for _, tr := range trades {
		sum += tr.Pips
	}
	mean := sum / float64(len(trades))

	var sq float64
	for _, tr := range trades {
		d := tr.Pips - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(trades)-1))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

func bump(m map[string]Bucket, key string, tr engine.TradeRecord) {
	b := m[key]
	b.Trades++
	if tr.Win {
		b.Wins++
	}
	b.NetPips += tr.Pips
	m[key] = b
}

func finalize(m map[string]Bucket) {
	for key, b := range m {
		b.Expectancy = b.NetPips / float64(b.Trades)
		m[key] = b
	}
}
