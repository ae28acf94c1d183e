package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"tradereplay/services/config"
	"tradereplay/services/engine"
	"tradereplay/services/stats"
)

func TestPrintSummaryOrdersInstrumentsAlphabetically(t *testing.T) {
	cfg := config.Default()
	result := &engine.RunResult{
		RunID:    "test-run",
		Snapshot: config.Snapshot{Hash: "0123456789abcdef"},
	}
	summary := stats.Summary{
		ByInstrument: map[string]stats.Bucket{
			"USDJPY": {Trades: 3, Wins: 1, NetPips: -4.0, Expectancy: -1.3},
			"EURUSD": {Trades: 5, Wins: 3, NetPips: 12.5, Expectancy: 2.5},
			"GBPUSD": {Trades: 2, Wins: 2, NetPips: 8.0, Expectancy: 4.0},
		},
	}

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printSummary(cmd, cfg, result, summary)

	out := buf.String()
	eur := strings.Index(out, "EURUSD")
	gbp := strings.Index(out, "GBPUSD")
	jpy := strings.Index(out, "USDJPY")
	require.NotEqual(t, -1, eur)
	require.Less(t, eur, gbp)
	require.Less(t, gbp, jpy)
}
