// Package main is the replay CLI: run a backtest from the terminal and print
// or export the results.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tradereplay/services/arrowexport"
	"tradereplay/services/clickhouse"
	"tradereplay/services/config"
	"tradereplay/services/engine"
	"tradereplay/services/stats"
)

var (
	flagConfig      string
	flagInstruments []string
	flagVariant     string
	flagSeed        int64
	flagWorkers     int
	flagStart       string
	flagEnd         string
	flagExportPath  string
	flagPersist     bool
	flagClear       bool
	flagVerbose     bool
)

func main() {
	root := &cobra.Command{
		Use:   "replay",
		Short: "Deterministic trade-replay simulation",
		RunE:  runReplay,
	}

	root.Flags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config")
	root.Flags().StringSliceVarP(&flagInstruments, "instruments", "i", nil, "instruments to simulate")
	root.Flags().StringVar(&flagVariant, "variant", "", "variant identifier")
	root.Flags().Int64Var(&flagSeed, "seed", 0, "run seed (0 keeps the configured seed)")
	root.Flags().IntVar(&flagWorkers, "workers", 0, "worker count (0 keeps the configured count)")
	root.Flags().StringVar(&flagStart, "start", "", "range start, YYYY-MM-DD")
	root.Flags().StringVar(&flagEnd, "end", "", "range end, YYYY-MM-DD")
	root.Flags().StringVar(&flagExportPath, "export", "", "write the ledger as Arrow IPC to this path")
	root.Flags().BoolVar(&flagPersist, "persist", false, "write trades to ClickHouse")
	root.Flags().BoolVar(&flagClear, "clear-variant", false, "clear stored trades for the variant before persisting")
	root.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if flagVerbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer logger.Sync()
	}

	ctx := cmd.Context()
	result, err := engine.NewRunner(cfg, nil, logger).Run(ctx)
	if err != nil {
		return err
	}
	summary := stats.Summarize(result.Trades)
	printSummary(cmd, cfg, result, summary)

	if flagExportPath != "" {
		if err := exportLedger(result); err != nil {
			return err
		}
		cmd.Printf("ledger exported to %s\n", flagExportPath)
	}

	if flagPersist {
		if err := persistLedger(ctx, cfg, result, logger); err != nil {
			return err
		}
	}
	return nil
}

func buildConfig() (config.BacktestConfig, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if err := cfg.FromEnv(); err != nil {
		return cfg, err
	}

	if len(flagInstruments) > 0 {
		cfg.Instruments = flagInstruments
	}
	if flagVariant != "" {
		cfg.Variant = flagVariant
	}
	if flagSeed != 0 {
		cfg.Seed = flagSeed
	}
	if flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	if flagStart != "" {
		start, err := time.Parse("2006-01-02", flagStart)
		if err != nil {
			return cfg, fmt.Errorf("parse --start: %w", err)
		}
		cfg.Start = start
	}
	if flagEnd != "" {
		end, err := time.Parse("2006-01-02", flagEnd)
		if err != nil {
			return cfg, fmt.Errorf("parse --end: %w", err)
		}
		cfg.End = end
	}
	return cfg, cfg.Validate()
}

func printSummary(cmd *cobra.Command, cfg config.BacktestConfig, result *engine.RunResult, s stats.Summary) {
	cmd.Printf("run %s (variant %s, config %s)\n", result.RunID, cfg.Variant, result.Snapshot.Hash[:12])
	cmd.Printf("trades: %d  wins: %d  losses: %d  win rate: %.1f%%\n",
		s.TotalTrades, s.Wins, s.Losses, s.WinRate*100)
	cmd.Printf("net pips: %.1f  expectancy: %.2f  profit factor: %.2f\n",
		s.NetPips, s.Expectancy, s.ProfitFactor)
	cmd.Printf("max drawdown: %.1f pips  sharpe: %.2f  streaks: +%d/-%d\n",
		s.MaxDrawdown, s.Sharpe, s.LongestWins, s.LongestLoss)

	instruments := make([]string, 0, len(s.ByInstrument))
	for instrument := range s.ByInstrument {
		instruments = append(instruments, instrument)
	}
	sort.Strings(instruments)
	for _, instrument := range instruments {
		b := s.ByInstrument[instrument]
		cmd.Printf("  %-8s trades=%-4d wins=%-4d net=%.1f exp=%.2f\n",
			instrument, b.Trades, b.Wins, b.NetPips, b.Expectancy)
	}
}

func exportLedger(result *engine.RunResult) error {
	data, err := arrowexport.NewExporter().Export(result.Trades)
	if err != nil {
		return fmt.Errorf("export ledger: %w", err)
	}
	if err := os.WriteFile(flagExportPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", flagExportPath, err)
	}
	return nil
}

func persistLedger(ctx context.Context, cfg config.BacktestConfig, result *engine.RunResult, logger *zap.Logger) error {
	store, err := clickhouse.Open(ctx, clickhouse.ConfigFromEnv(), logger)
	if err != nil {
		return fmt.Errorf("connect clickhouse: %w", err)
	}
	if flagClear {
		if err := store.ClearVariant(ctx, cfg.Variant); err != nil {
			return err
		}
	}
	report := store.InsertTrades(ctx, result.RunID, cfg.Variant, result.Trades)
	if report.Errors > 0 {
		return fmt.Errorf("%d trades failed to persist: %v", report.Errors, report.ErrorMessages)
	}
	return nil
}
