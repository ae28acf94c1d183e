// Package engine walks candle history bar by bar, deciding entries through
// governance and the direction classifier and resolving exits against fixed
// take-profit, stop-loss and hold-duration limits. Decisions at bar i only
// ever use data up to bar i's close; fills happen at bar i+1's open.
package engine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradereplay/services/config"
	"tradereplay/services/direction"
	"tradereplay/services/friction"
	"tradereplay/services/governance"
	"tradereplay/services/market"
)

// State is the trade lifecycle state. Transitions only ever move forward:
// SCANNING -> PENDING_ENTRY -> OPEN -> one of the CLOSED states.
type State int

const (
	StateScanning State = iota
	StatePendingEntry
	StateOpen
	StateClosedTP
	StateClosedSL
	StateClosedTime
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StatePendingEntry:
		return "pending_entry"
	case StateOpen:
		return "open"
	case StateClosedTP:
		return "closed_tp"
	case StateClosedSL:
		return "closed_sl"
	case StateClosedTime:
		return "closed_time"
	default:
		return "unknown"
	}
}

// advance moves the lifecycle to the next state. Transitions only ever go
// forward through the enum; a backward move is a programming error.
func (s State) advance(to State) State {
	if to <= s {
		panic(fmt.Sprintf("lifecycle moved backward: %s -> %s", s, to))
	}
	return to
}

// exitReason maps a terminal state onto the ledger label.
func (s State) exitReason() ExitReason {
	switch s {
	case StateClosedTP:
		return ExitTakeProfit
	case StateClosedSL:
		return ExitStopLoss
	case StateClosedTime:
		return ExitTime
	}
	panic("exit reason requested for non-terminal state " + s.String())
}

// eventType maps a terminal state onto its log event.
func (s State) eventType() EventType {
	switch s {
	case StateClosedTP:
		return EventTakeProfitHit
	case StateClosedSL:
		return EventStopHit
	case StateClosedTime:
		return EventTimeExit
	}
	panic("exit event requested for non-terminal state " + s.String())
}

// ExitReason records how an open trade resolved.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "take_profit"
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTime       ExitReason = "time"
)

// throttleAdmitProb is the fixed admission probability for throttled entries.
// Kept constant rather than scaled by score so throttle behavior stays a
// coarse, auditable knob.
const throttleAdmitProb = 0.30

// atr windows, in multiples of the configured period. The short window reads
// current volatility, the long one the baseline it is compared against.
const (
	atrWindowMult   = 2
	atrBaselineMult = 6
)

// TradeRecord is immutable once the walker closes it.
type TradeRecord struct {
	ID           string
	Instrument   string
	Direction    direction.Bias
	EntryTime    int64
	ExitTime     int64
	EntryPrice   float64
	ExitPrice    float64
	DurationBars int
	Session      friction.Session
	Regime       friction.Regime
	Quote        friction.Quote
	Decision     governance.Decision
	Confidence   float64
	Pips         float64
	MFEPips      float64
	MAEPips      float64
	CaptureRatio float64
	Win          bool
	ExitReason   ExitReason
	StakeUSD     decimal.Decimal
	PnLUSD       decimal.Decimal
}

// Walker runs the lifecycle state machine over one instrument's bundle.
type Walker struct {
	cfg    config.BacktestConfig
	gov    *governance.Simulator
	log    *zap.Logger
	events *EventLog
}

func NewWalker(cfg config.BacktestConfig, gov *governance.Simulator, logger *zap.Logger) *Walker {
	if gov == nil {
		gov = governance.NewSimulator(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{cfg: cfg, gov: gov, log: logger, events: &EventLog{}}
}

// Events returns the event log accumulated by Walk calls on this walker.
func (w *Walker) Events() *EventLog { return w.events }

// Walk replays the bundle's base series and returns the closed trades in
// entry order. An instrument with fewer than the minimum lookback bars is
// skipped with a warning, never a failure.
func (w *Walker) Walk(bundle market.CandleBundle) ([]TradeRecord, error) {
	spec, err := market.Spec(bundle.Instrument)
	if err != nil {
		return nil, err
	}

	bars := bundle.Base()
	if len(bars) < w.cfg.MinLookback {
		w.log.Warn("skipping instrument, not enough history",
			zap.String("instrument", bundle.Instrument),
			zap.Int("bars", len(bars)),
			zap.Int("min_lookback", w.cfg.MinLookback))
		var ts int64
		if len(bars) > 0 {
			ts = bars[len(bars)-1].Timestamp
		}
		w.events.Append(Event{
			Ts:         ts,
			Type:       EventInstrumentSkipped,
			Instrument: bundle.Instrument,
			Details:    map[string]string{"bars": strconv.Itoa(len(bars))},
		})
		return nil, nil
	}

	var trades []TradeRecord
	state := StateScanning
	for i := w.cfg.MinLookback; i < len(bars)-1; i++ {
		cand, ok := w.scan(bundle, spec, bars, i)
		if !ok {
			continue
		}

		state = state.advance(StatePendingEntry)
		w.events.Append(Event{
			Ts:         bars[i].Timestamp,
			Type:       EventEntryScheduled,
			Instrument: bundle.Instrument,
			Details:    map[string]string{"direction": cand.dir.Bias.String()},
		})

		rec, exitIdx := w.fillAndResolve(bars, spec, i, cand, state)
		trades = append(trades, rec)

		// Cooldown: no new pending entry for CooldownBars after the exit bar.
		i = exitIdx + w.cfg.CooldownBars
		state = StateScanning
	}
	return trades, nil
}

// candidate carries everything scan approved for a fill.
type candidate struct {
	dir      direction.Result
	quote    friction.Quote
	decision governance.Decision
	session  friction.Session
	regime   friction.Regime
}

// scan evaluates bar i as a potential decision bar, using only data at or
// before bar i's close. Governance runs before the classifier so rejected
// bars never consume classifier draws.
func (w *Walker) scan(bundle market.CandleBundle, spec market.InstrumentSpec, bars []market.Candle, i int) (candidate, bool) {
	seed := SeedFor(w.cfg.Seed, bundle.Instrument, w.cfg.Variant, w.cfg.Agent, i)
	stream := NewStream(seed)

	atr := market.ComputeATR(tail(bars[:i+1], w.cfg.ATRPeriod*atrWindowMult), w.cfg.ATRPeriod)
	avgATR := market.ComputeATR(tail(bars[:i+1], w.cfg.ATRPeriod*atrBaselineMult), w.cfg.ATRPeriod)
	if atr == 0 || avgATR == 0 {
		return candidate{}, false
	}

	hour := time.UnixMilli(bars[i].Timestamp).UTC().Hour()
	session := friction.ClassifySession(hour)
	regime := friction.ClassifyRegime(atr, avgATR)
	quote := friction.QuoteFor(spec, hour, atr, avgATR, seed)

	baseClose := bars[i].Timestamp
	htf, ok := market.LatestCompletedAt(bundle.Series[market.TF4h], 240, baseClose)
	if !ok {
		// No completed 4h bar yet: fall back one tier up.
		htf, ok = market.LatestCompletedAt(bundle.Series[market.TF1d], 1440, baseClose)
	}
	if !ok {
		return candidate{}, false
	}
	confirm, ok := market.LatestCompletedAt(bundle.Series[market.TF1h], 60, baseClose)
	if !ok {
		return candidate{}, false
	}
	daily, dailyOK := market.LatestCompletedAt(bundle.Series[market.TF1d], 1440, baseClose)

	govIn := governance.Input{
		Spec:            spec,
		ATR:             atr,
		AvgATR:          avgATR,
		SpreadPips:      quote.SpreadPips,
		Session:         session,
		Regime:          regime,
		HTFAligned:      dailyOK && bodiesAgree(htf, daily),
		ConfirmStrength: direction.Efficiency(confirm),
	}
	dec := w.gov.Evaluate(govIn, stream)
	switch dec.Verdict {
	case governance.Rejected:
		return candidate{}, false
	case governance.Throttled:
		if stream.Float64() >= throttleAdmitProb {
			return candidate{}, false
		}
	}

	dir := direction.Classify(htf, confirm, stream)
	if dir.Bias == direction.Neutral {
		return candidate{}, false
	}

	return candidate{dir: dir, quote: quote, decision: dec, session: session, regime: regime}, true
}

// fillAndResolve fills at bar decisionIdx+1's open and walks forward until
// stop, target or the hold cap resolves the trade. Within one bar the stop is
// checked before the target, and exits are pinned exactly at the breached
// level rather than the bar extreme.
func (w *Walker) fillAndResolve(bars []market.Candle, spec market.InstrumentSpec, decisionIdx int, cand candidate, state State) (TradeRecord, int) {
	fillIdx := decisionIdx + 1
	pip := spec.PipSize
	long := cand.dir.Bias == direction.Long

	mid := bars[fillIdx].Open
	entry := friction.FillPrice(cand.dir.Bias, mid, cand.quote)
	state = state.advance(StateOpen)

	var tp, sl float64
	if long {
		tp = entry + w.cfg.TakeProfitPips*pip
		sl = entry - w.cfg.StopLossPips*pip
	} else {
		tp = entry - w.cfg.TakeProfitPips*pip
		sl = entry + w.cfg.StopLossPips*pip
	}

	w.events.Append(Event{
		Ts:         bars[fillIdx].Timestamp,
		Type:       EventEntryFill,
		Instrument: spec.Symbol,
		Details:    map[string]string{"direction": cand.dir.Bias.String()},
	})

	lastIdx := fillIdx + w.cfg.MaxHoldBars
	if lastIdx > len(bars)-1 {
		lastIdx = len(bars) - 1
	}

	var mfe, mae float64
	exitIdx := lastIdx
	exitPrice := bars[lastIdx].Close

	for j := fillIdx; j <= lastIdx; j++ {
		bar := bars[j]

		var fav, adv float64
		if long {
			fav = (bar.High - entry) / pip
			adv = (entry - bar.Low) / pip
		} else {
			fav = (entry - bar.Low) / pip
			adv = (bar.High - entry) / pip
		}
		if fav > mfe {
			mfe = fav
		}
		if adv > mae {
			mae = adv
		}

		// Stop before target: when both levels sit inside one bar, assume
		// the adverse path happened first.
		if (long && bar.Low <= sl) || (!long && bar.High >= sl) {
			exitIdx, exitPrice = j, sl
			state = state.advance(StateClosedSL)
			break
		}
		if (long && bar.High >= tp) || (!long && bar.Low <= tp) {
			exitIdx, exitPrice = j, tp
			state = state.advance(StateClosedTP)
			break
		}
	}
	if state == StateOpen {
		state = state.advance(StateClosedTime)
	}
	reason := state.exitReason()

	pips := (exitPrice - entry) / pip
	if !long {
		pips = -pips
	}

	capture := 0.0
	if mfe > 0 {
		capture = pips / mfe
		if capture < 0 {
			capture = 0
		}
		if capture > 1 {
			capture = 1
		}
	}

	stake := decimal.NewFromFloat(w.cfg.AccountBalance).Mul(decimal.NewFromFloat(w.cfg.RiskFraction))
	pnl := stake.Mul(decimal.NewFromFloat(pips / w.cfg.StopLossPips)).Round(4)

	w.events.Append(Event{
		Ts:         bars[exitIdx].Timestamp,
		Type:       state.eventType(),
		Instrument: spec.Symbol,
		Details:    map[string]string{"reason": string(reason)},
	})

	return TradeRecord{
		ID:           w.tradeID(spec.Symbol, fillIdx),
		Instrument:   spec.Symbol,
		Direction:    cand.dir.Bias,
		EntryTime:    bars[fillIdx].Timestamp,
		ExitTime:     bars[exitIdx].Timestamp,
		EntryPrice:   entry,
		ExitPrice:    exitPrice,
		DurationBars: exitIdx - fillIdx,
		Session:      cand.session,
		Regime:       cand.regime,
		Quote:        cand.quote,
		Decision:     cand.decision,
		Confidence:   cand.dir.Confidence,
		Pips:         pips,
		MFEPips:      mfe,
		MAEPips:      mae,
		CaptureRatio: capture,
		Win:          pips > 0,
		ExitReason:   reason,
		StakeUSD:     stake,
		PnLUSD:       pnl,
	}, exitIdx
}

// tradeID derives a stable ledger ID from the run identity and the fill bar,
// so identical runs produce byte-identical trade records. The fill bar index
// is unique per instrument since open trades never overlap.
func (w *Walker) tradeID(instrument string, fillIdx int) string {
	return fmt.Sprintf("%016x", uint64(SeedFor(w.cfg.Seed, instrument, w.cfg.Variant, w.cfg.Agent, fillIdx)))
}

func bodiesAgree(a, b market.Candle) bool {
	return (a.Close-a.Open)*(b.Close-b.Open) > 0
}

func tail(candles []market.Candle, n int) []market.Candle {
	if len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}
