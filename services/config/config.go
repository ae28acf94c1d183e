// Package config holds the backtest run configuration: which instruments to
// replay, over what range, and the fixed risk parameters of the strategy.
// Validation is fail-fast at load time so a bad config never reaches the
// simulation, and every accepted config can be snapshotted to a sha256 hash
// for reproducibility audits.
package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// BacktestConfig describes one simulation run. Variant and Agent never change
// behavior directly; they only name the run and feed the seed derivation.
type BacktestConfig struct {
	Instruments    []string  `yaml:"instruments"`
	Start          time.Time `yaml:"start"`
	End            time.Time `yaml:"end"`
	AccountBalance float64   `yaml:"account_balance"`
	RiskFraction   float64   `yaml:"risk_fraction"`
	TakeProfitPips float64   `yaml:"take_profit_pips"`
	StopLossPips   float64   `yaml:"stop_loss_pips"`
	MaxHoldBars    int       `yaml:"max_hold_bars"`
	CooldownBars   int       `yaml:"cooldown_bars"`
	MinLookback    int       `yaml:"min_lookback"`
	ATRPeriod      int       `yaml:"atr_period"`
	Variant        string    `yaml:"variant"`
	Agent          string    `yaml:"agent"`
	Seed           int64     `yaml:"seed"`
	Workers        int       `yaml:"workers"`
}

// Default returns the baseline run configuration.
func Default() BacktestConfig {
	return BacktestConfig{
		Instruments:    []string{"EURUSD", "GBPUSD", "USDJPY"},
		Start:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		AccountBalance: 10000,
		RiskFraction:   0.01,
		TakeProfitPips: 25,
		StopLossPips:   15,
		MaxHoldBars:    48,
		CooldownBars:   4,
		MinLookback:    20,
		ATRPeriod:      14,
		Variant:        "baseline",
		Agent:          "default",
		Seed:           42,
		Workers:        4,
	}
}

// Load reads a YAML config file over the defaults and validates the result.
func Load(path string) (BacktestConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv applies environment overrides for the fields an operator most often
// varies between runs. Unset variables leave the config untouched.
func (c *BacktestConfig) FromEnv() error {
	if v := os.Getenv("BACKTEST_VARIANT"); v != "" {
		c.Variant = v
	}
	if v := os.Getenv("BACKTEST_AGENT"); v != "" {
		c.Agent = v
	}
	if v := os.Getenv("BACKTEST_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse BACKTEST_SEED %q: %w", v, err)
		}
		c.Seed = seed
	}
	if v := os.Getenv("BACKTEST_WORKERS"); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse BACKTEST_WORKERS %q: %w", v, err)
		}
		c.Workers = workers
	}
	return nil
}

// Validate rejects configurations the simulator cannot run.
func (c BacktestConfig) Validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("instrument list is empty")
	}
	if !c.End.After(c.Start) {
		return fmt.Errorf("date range inverted: start %s, end %s", c.Start.Format(time.RFC3339), c.End.Format(time.RFC3339))
	}
	if c.AccountBalance <= 0 {
		return fmt.Errorf("account balance must be positive, got %v", c.AccountBalance)
	}
	if c.RiskFraction <= 0 || c.RiskFraction > 0.1 {
		return fmt.Errorf("risk fraction must be in (0, 0.1], got %v", c.RiskFraction)
	}
	if c.TakeProfitPips <= 0 || c.StopLossPips <= 0 {
		return fmt.Errorf("tp/sl distances must be positive, got tp=%v sl=%v", c.TakeProfitPips, c.StopLossPips)
	}
	if c.MaxHoldBars <= 0 {
		return fmt.Errorf("max hold bars must be positive, got %d", c.MaxHoldBars)
	}
	if c.CooldownBars < 0 {
		return fmt.Errorf("cooldown bars must be non-negative, got %d", c.CooldownBars)
	}
	if c.MinLookback <= 0 || c.ATRPeriod <= 0 {
		return fmt.Errorf("lookback and atr period must be positive, got lookback=%d atr=%d", c.MinLookback, c.ATRPeriod)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}

// Snapshot captures the exact configuration of an accepted run.
type Snapshot struct {
	Hash      string         `json:"hash"`
	Timestamp uint64         `json:"timestamp"`
	Config    BacktestConfig `json:"config"`
}

// Snapshot hashes the config for embedding in run manifests. Two runs with
// equal hashes simulated identical parameter sets.
func (c BacktestConfig) Snapshot() Snapshot {
	raw, _ := json.Marshal(c)
	return Snapshot{
		Hash:      fmt.Sprintf("%x", sha256.Sum256(raw)),
		Timestamp: uint64(time.Now().UnixMilli()),
		Config:    c,
	}
}
