package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"tradereplay/services/engine"
	"tradereplay/services/friction"
)

func tradesFromPips(pips ...float64) []engine.TradeRecord {
	trades := make([]engine.TradeRecord, len(pips))
	for i, p := range pips {
		trades[i] = engine.TradeRecord{
			Instrument: "EURUSD",
			Session:    friction.SessionLondon,
			Regime:     friction.RegimeNormal,
			Pips:       p,
			Win:        p > 0,
		}
	}
	return trades
}

func TestSummarizeKnownSequence(t *testing.T) {
	s := Summarize(tradesFromPips(10, -5, 3, -2, 8))

	require.Equal(t, 5, s.TotalTrades)
	require.Equal(t, 3, s.Wins)
	require.Equal(t, 2, s.Losses)
	require.InDelta(t, 0.6, s.WinRate, 1e-12)
	require.InDelta(t, 2.8, s.Expectancy, 1e-12)
	require.InDelta(t, 3.0, s.ProfitFactor, 1e-12) // (10+3+8)/(5+2)
	require.InDelta(t, 5.0, s.MaxDrawdown, 1e-12)  // peak 10 after trade 1, trough 5 after trade 2
}

func TestSummarizeStreaks(t *testing.T) {
	s := Summarize(tradesFromPips(1, 2, 3, -1, -2, 4, -1))
	require.Equal(t, 3, s.LongestWins)
	require.Equal(t, 2, s.LongestLoss)
}

func TestProfitFactorSentinelWithoutLosses(t *testing.T) {
	s := Summarize(tradesFromPips(4, 6, 2))
	require.Equal(t, profitFactorSentinel, s.ProfitFactor)
	require.Equal(t, 0.0, s.MaxDrawdown)
}

func TestSharpe(t *testing.T) {
	t.Run("degenerate inputs", func(t *testing.T) {
		require.Zero(t, Summarize(nil).Sharpe)
		require.Zero(t, Summarize(tradesFromPips(5)).Sharpe)
		require.Zero(t, Summarize(tradesFromPips(3, 3, 3)).Sharpe)
	})

	t.Run("known vector", func(t *testing.T) {
		// pips {1, 3}: mean 2, sample std sqrt(2).
		s := Summarize(tradesFromPips(1, 3))
		want := 2 / math.Sqrt2 * math.Sqrt(252)
		require.InDelta(t, want, s.Sharpe, 1e-9)
	})
}

func TestBreakdowns(t *testing.T) {
	trades := tradesFromPips(10, -5, 3)
	trades[1].Instrument = "GBPUSD"
	trades[1].Session = friction.SessionRollover
	trades[2].Regime = friction.RegimeVolatile

	s := Summarize(trades)

	require.Len(t, s.ByInstrument, 2)
	eur := s.ByInstrument["EURUSD"]
	require.Equal(t, 2, eur.Trades)
	require.Equal(t, 2, eur.Wins)
	require.InDelta(t, 13.0, eur.NetPips, 1e-12)
	require.InDelta(t, 6.5, eur.Expectancy, 1e-12)

	gbp := s.ByInstrument["GBPUSD"]
	require.Equal(t, 1, gbp.Trades)
	require.Equal(t, 0, gbp.Wins)
	require.InDelta(t, -5.0, gbp.NetPips, 1e-12)

	require.Equal(t, 1, s.BySession[string(friction.SessionRollover)].Trades)
	require.Equal(t, 1, s.ByRegime[string(friction.RegimeVolatile)].Trades)
}

func TestSummarizeEmptyList(t *testing.T) {
	s := Summarize(nil)
	require.Zero(t, s.TotalTrades)
	require.NotNil(t, s.ByInstrument)
	require.Empty(t, s.ByInstrument)
}

func TestSummarizeIsWholesale(t *testing.T) {
	trades := tradesFromPips(10, -5, 3, -2, 8)
	a := Summarize(trades)
	b := Summarize(trades)
	require.Equal(t, a, b)
}
