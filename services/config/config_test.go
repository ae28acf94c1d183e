package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*BacktestConfig)
	}{
		{"empty instruments", func(c *BacktestConfig) { c.Instruments = nil }},
		{"inverted range", func(c *BacktestConfig) { c.Start, c.End = c.End, c.Start }},
		{"zero balance", func(c *BacktestConfig) { c.AccountBalance = 0 }},
		{"negative risk", func(c *BacktestConfig) { c.RiskFraction = -0.01 }},
		{"oversized risk", func(c *BacktestConfig) { c.RiskFraction = 0.5 }},
		{"zero stop", func(c *BacktestConfig) { c.StopLossPips = 0 }},
		{"zero hold", func(c *BacktestConfig) { c.MaxHoldBars = 0 }},
		{"negative cooldown", func(c *BacktestConfig) { c.CooldownBars = -1 }},
		{"zero workers", func(c *BacktestConfig) { c.Workers = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadAppliesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backtest.yaml")
	body := `
instruments: [EURJPY]
variant: wide-stops
stop_loss_pips: 30
seed: 7
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"EURJPY"}, cfg.Instruments)
	require.Equal(t, "wide-stops", cfg.Variant)
	require.Equal(t, 30.0, cfg.StopLossPips)
	require.Equal(t, int64(7), cfg.Seed)
	// Untouched fields keep their defaults.
	require.Equal(t, Default().TakeProfitPips, cfg.TakeProfitPips)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("instruments: []\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BACKTEST_VARIANT", "ab-test")
	t.Setenv("BACKTEST_SEED", "99")

	cfg := Default()
	require.NoError(t, cfg.FromEnv())
	require.Equal(t, "ab-test", cfg.Variant)
	require.Equal(t, int64(99), cfg.Seed)

	t.Setenv("BACKTEST_SEED", "not-a-number")
	require.Error(t, cfg.FromEnv())
}

func TestSnapshotHashTracksConfig(t *testing.T) {
	a := Default()
	b := Default()
	require.Equal(t, a.Snapshot().Hash, b.Snapshot().Hash)

	b.Seed = 43
	require.NotEqual(t, a.Snapshot().Hash, b.Snapshot().Hash)
	require.Len(t, a.Snapshot().Hash, 64)
}

func TestDefaultRangeIsSane(t *testing.T) {
	cfg := Default()
	require.True(t, cfg.End.After(cfg.Start.Add(24*time.Hour)))
}
