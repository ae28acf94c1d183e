package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradereplay/services/config"
	"tradereplay/services/governance"
	"tradereplay/services/market"
)

// RunResult is the output of one full simulation run. Trades are sorted by
// entry time (instrument as tie-break) so the ordering is identical whether
// the run used one worker or many.
type RunResult struct {
	RunID      string
	Snapshot   config.Snapshot
	Trades     []TradeRecord
	Events     []Event
	DurationMs int64
}

// Runner fans the per-instrument walks out over a worker pool and merges the
// results. Instruments are independent, so the only cross-instrument step is
// the final sort.
type Runner struct {
	cfg config.BacktestConfig
	gov *governance.Simulator
	log *zap.Logger
}

func NewRunner(cfg config.BacktestConfig, gov *governance.Simulator, logger *zap.Logger) *Runner {
	if gov == nil {
		gov = governance.NewSimulator(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, gov: gov, log: logger}
}

type instrumentResult struct {
	trades []TradeRecord
	events []Event
}

// Run simulates every configured instrument and returns the merged result.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	started := time.Now()
	runID := uuid.NewString()

	r.log.Info("starting backtest run",
		zap.String("run_id", runID),
		zap.String("variant", r.cfg.Variant),
		zap.Int("instruments", len(r.cfg.Instruments)),
		zap.Int("workers", r.cfg.Workers))

	instrumentChan := make(chan string, len(r.cfg.Instruments))
	resultChan := make(chan instrumentResult, len(r.cfg.Instruments))
	errorChan := make(chan error, len(r.cfg.Instruments))

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go r.worker(ctx, instrumentChan, resultChan, errorChan, &wg)
	}

	for _, instrument := range r.cfg.Instruments {
		instrumentChan <- instrument
	}
	close(instrumentChan)

	wg.Wait()
	close(resultChan)
	close(errorChan)

	var errs []error
	for err := range errorChan {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("backtest run %s failed: %v", runID, errs)
	}

	result := &RunResult{RunID: runID, Snapshot: r.cfg.Snapshot()}
	for res := range resultChan {
		result.Trades = append(result.Trades, res.trades...)
		result.Events = append(result.Events, res.events...)
	}

	sort.Slice(result.Trades, func(i, j int) bool {
		a, b := result.Trades[i], result.Trades[j]
		if a.EntryTime != b.EntryTime {
			return a.EntryTime < b.EntryTime
		}
		return a.Instrument < b.Instrument
	})
	sort.Slice(result.Events, func(i, j int) bool {
		a, b := result.Events[i], result.Events[j]
		if a.Ts != b.Ts {
			return a.Ts < b.Ts
		}
		if a.Instrument != b.Instrument {
			return a.Instrument < b.Instrument
		}
		// A fill and its same-bar exit share a timestamp; the enum order
		// matches the lifecycle order, making the sort total.
		return a.Type < b.Type
	})

	result.DurationMs = time.Since(started).Milliseconds()
	r.log.Info("backtest run complete",
		zap.String("run_id", runID),
		zap.Int("trades", len(result.Trades)),
		zap.Int64("duration_ms", result.DurationMs))
	return result, nil
}

func (r *Runner) worker(ctx context.Context, instruments <-chan string, results chan<- instrumentResult, errors chan<- error, wg *sync.WaitGroup) {
	defer wg.Done()
	for instrument := range instruments {
		select {
		case <-ctx.Done():
			errors <- ctx.Err()
			return
		default:
		}

		trades, events, err := r.runInstrument(instrument)
		if err != nil {
			errors <- fmt.Errorf("instrument %s: %w", instrument, err)
			continue
		}
		results <- instrumentResult{trades: trades, events: events}
	}
}

func (r *Runner) runInstrument(instrument string) ([]TradeRecord, []Event, error) {
	bundle, err := market.BuildBundle(instrument, r.cfg.Start, r.cfg.End, r.cfg.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("build bundle: %w", err)
	}

	walker := NewWalker(r.cfg, r.gov, r.log)
	trades, err := walker.Walk(*bundle)
	if err != nil {
		return nil, nil, fmt.Errorf("walk: %w", err)
	}
	return trades, walker.Events().Events, nil
}
