package engine

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradereplay/services/config"
)

func runnerConfig(workers int) config.BacktestConfig {
	cfg := config.Default()
	cfg.Instruments = []string{"EURUSD", "GBPUSD", "USDJPY"}
	cfg.Start = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	cfg.End = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	cfg.Workers = workers
	return cfg
}

func TestRunIndependentOfWorkerCount(t *testing.T) {
	serial, err := NewRunner(runnerConfig(1), nil, nil).Run(context.Background())
	require.NoError(t, err)
	parallel, err := NewRunner(runnerConfig(3), nil, nil).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, serial.Trades, parallel.Trades)
	require.Equal(t, serial.Events, parallel.Events)
	require.Equal(t, serial.Snapshot.Hash, parallel.Snapshot.Hash)
}

func TestRunTradesSortedByEntryTime(t *testing.T) {
	result, err := NewRunner(runnerConfig(2), nil, nil).Run(context.Background())
	require.NoError(t, err)

	sorted := sort.SliceIsSorted(result.Trades, func(i, j int) bool {
		a, b := result.Trades[i], result.Trades[j]
		if a.EntryTime != b.EntryTime {
			return a.EntryTime < b.EntryTime
		}
		return a.Instrument < b.Instrument
	})
	require.True(t, sorted)
	require.NotEmpty(t, result.RunID)
}

func TestRunFailsOnUnknownInstrument(t *testing.T) {
	cfg := runnerConfig(2)
	cfg.Instruments = append(cfg.Instruments, "XYZABC")

	_, err := NewRunner(cfg, nil, nil).Run(context.Background())
	require.Error(t, err)
}

func TestRunHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(runnerConfig(1), nil, nil).Run(ctx)
	require.Error(t, err)
}

func TestSeedForStableAndDistinct(t *testing.T) {
	a := SeedFor(42, "EURUSD", "baseline", "default", 100)
	b := SeedFor(42, "EURUSD", "baseline", "default", 100)
	require.Equal(t, a, b)

	require.NotEqual(t, a, SeedFor(42, "EURUSD", "baseline", "default", 101))
	require.NotEqual(t, a, SeedFor(42, "GBPUSD", "baseline", "default", 100))
	require.NotEqual(t, a, SeedFor(42, "EURUSD", "wide-stops", "default", 100))
	require.NotEqual(t, a, SeedFor(43, "EURUSD", "baseline", "default", 100))
}
