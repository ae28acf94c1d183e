package monitoring

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"tradereplay/services/engine"
	"tradereplay/services/governance"
)

func TestObserveRun(t *testing.T) {
	reg := NewRegistry()

	result := &engine.RunResult{
		DurationMs: 1500,
		Trades: []engine.TradeRecord{
			{Instrument: "EURUSD", ExitReason: engine.ExitTakeProfit, Decision: governance.Decision{Verdict: governance.Approved}},
			{Instrument: "EURUSD", ExitReason: engine.ExitStopLoss, Decision: governance.Decision{Verdict: governance.Approved}},
			{Instrument: "GBPUSD", ExitReason: engine.ExitTime, Decision: governance.Decision{Verdict: governance.Throttled}},
		},
	}
	reg.ObserveRun(result)

	values, err := reg.Gather()
	require.NoError(t, err)
	require.Equal(t, 1.0, values["tradereplay_runs_total"])
	require.Equal(t, 3.0, values["tradereplay_trades_total"])
	require.Equal(t, 3.0, values["tradereplay_governance_verdicts_total"])
}

func TestHandlerServesExposition(t *testing.T) {
	reg := NewRegistry()
	reg.RunsTotal.Inc()

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "tradereplay_runs_total 1")
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	a.RunsTotal.Inc()

	values, err := b.Gather()
	require.NoError(t, err)
	require.Zero(t, values["tradereplay_runs_total"])
}
