// Package governance scores a candidate entry against a composite
// multiplicative model and a small set of hard risk gates, returning an
// approve/throttle/reject decision. It never opens trades itself and never
// converts a throttled decision into an approved one; admission of throttled
// entries is the walker's call.
package governance

import (
	"tradereplay/services/friction"
	"tradereplay/services/market"
)

// Verdict is the three-way outcome of a governance evaluation.
type Verdict string

const (
	Approved  Verdict = "approved"
	Throttled Verdict = "throttled"
	Rejected  Verdict = "rejected"
)

// GateID identifies one hard gate. Gate IDs are reported in a fixed order so
// two runs over the same data produce byte-identical decision records.
type GateID string

const (
	GateThinEdge       GateID = "atr_friction_thin"  // expected move too small vs execution cost
	GateNoHTFSupport   GateID = "htf_unsupported"    // no higher-timeframe support and weak confirmation
	GateSpreadUnstable GateID = "spread_instability" // spread blown out far beyond baseline
	GateRollover       GateID = "rollover_session"   // entries during the NY rollover band
)

// gateOrder fixes the reporting order of triggered gates.
var gateOrder = []GateID{GateThinEdge, GateNoHTFSupport, GateSpreadUnstable, GateRollover}

// Config groups every gate cutoff and score multiplier in one table so they
// are auditable and testable in isolation from the walker.
type Config struct {
	// Hard gate cutoffs.
	MinATRFrictionRatio  float64 `yaml:"min_atr_friction_ratio"` // gate when ATR / spread cost falls below this
	WeakConfirmCutoff    float64 `yaml:"weak_confirm_cutoff"`    // confirmation efficiency below this is "weak"
	SpreadInstabilityMax float64 `yaml:"spread_instability_max"` // spread / baseline ratio above this gates

	// Verdict thresholds.
	ThrottleBelowScore float64 `yaml:"throttle_below_score"` // composite under this throttles even gate-free entries

	// Composite sub-multipliers.
	AlignedMult    float64 `yaml:"aligned_mult"`
	UnalignedMult  float64 `yaml:"unaligned_mult"`
	MajorClassMult float64 `yaml:"major_class_mult"`
	CrossClassMult float64 `yaml:"cross_class_mult"`

	RegimeFavorMult map[friction.Regime]float64  `yaml:"regime_favor_mult"`
	ExitEffMult     map[friction.Regime]float64  `yaml:"exit_eff_mult"`
	SessionLiqMult  map[friction.Session]float64 `yaml:"session_liq_mult"`

	// Spread stability sub-score bands over the spread/baseline ratio.
	SpreadStableMax  float64 `yaml:"spread_stable_max"`
	SpreadStableMult float64 `yaml:"spread_stable_mult"`
	SpreadLooseMult  float64 `yaml:"spread_loose_mult"`
	SpreadBlownMult  float64 `yaml:"spread_blown_mult"`

	// Bounded perturbation applied to each sub-multiplier.
	PerturbAmp float64 `yaml:"perturb_amp"`
}

// DefaultConfig returns the production governance thresholds.
func DefaultConfig() *Config {
	return &Config{
		MinATRFrictionRatio:  3.0,
		WeakConfirmCutoff:    0.35,
		SpreadInstabilityMax: 2.5,

		ThrottleBelowScore: 0.75,

		AlignedMult:    1.15,
		UnalignedMult:  0.85,
		MajorClassMult: 1.05,
		CrossClassMult: 0.92,

		RegimeFavorMult: map[friction.Regime]float64{
			friction.RegimeQuiet:    0.90,
			friction.RegimeNormal:   1.10,
			friction.RegimeVolatile: 0.80,
		},
		ExitEffMult: map[friction.Regime]float64{
			friction.RegimeQuiet:    0.95,
			friction.RegimeNormal:   1.08,
			friction.RegimeVolatile: 0.85,
		},
		SessionLiqMult: map[friction.Session]float64{
			friction.SessionRollover:  0.70,
			friction.SessionAsian:     0.95,
			friction.SessionLondon:    1.10,
			friction.SessionNYOverlap: 1.12,
			friction.SessionLateNY:    0.90,
		},

		SpreadStableMax:  1.5,
		SpreadStableMult: 1.05,
		SpreadLooseMult:  0.90,
		SpreadBlownMult:  0.70,

		PerturbAmp: 0.03,
	}
}

// Input is everything governance looks at for one candidate entry. All fields
// are derived from data at or before the decision bar's close.
type Input struct {
	Spec            market.InstrumentSpec
	ATR             float64
	AvgATR          float64
	SpreadPips      float64
	Session         friction.Session
	Regime          friction.Regime
	HTFAligned      bool    // higher timeframe agrees with the candidate direction
	ConfirmStrength float64 // confirmation-timeframe body efficiency, 0..1
}

// Decision is the governance output for one candidate entry.
type Decision struct {
	Score   float64
	Gates   []GateID
	Verdict Verdict
}

// Rand is the subset of a seeded stream the evaluator draws from. Callers
// supply a per-bar stream; governance never touches a global generator.
type Rand interface {
	Float64() float64
}

// Simulator evaluates candidate entries against one Config.
type Simulator struct {
	cfg *Config
}

func NewSimulator(cfg *Config) *Simulator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Simulator{cfg: cfg}
}

// Evaluate scores the candidate and applies the hard gates.
// Two or more gates reject outright. One gate, or a composite below the
// throttle threshold, throttles. Everything else is approved.
//
// The six sub-multipliers are each perturbed by a bounded draw from rng, so
// the evaluation consumes exactly six draws per call regardless of outcome.
// That fixed draw count keeps downstream stream positions reproducible.
func (s *Simulator) Evaluate(in Input, rng Rand) Decision {
	cfg := s.cfg

	score := 1.0
	for _, m := range []float64{
		s.alignmentMult(in),
		lookupMult(cfg.RegimeFavorMult, in.Regime),
		s.classMult(in),
		s.spreadStabilityMult(in),
		lookupMult(cfg.ExitEffMult, in.Regime),
		lookupMult(cfg.SessionLiqMult, in.Session),
	} {
		score *= m * s.perturb(rng)
	}

	gates := s.triggeredGates(in)

	verdict := Approved
	switch {
	case len(gates) >= 2:
		verdict = Rejected
	case len(gates) == 1 || score < cfg.ThrottleBelowScore:
		verdict = Throttled
	}

	return Decision{Score: score, Gates: gates, Verdict: verdict}
}

func (s *Simulator) alignmentMult(in Input) float64 {
	if in.HTFAligned {
		return s.cfg.AlignedMult
	}
	return s.cfg.UnalignedMult
}

func (s *Simulator) classMult(in Input) float64 {
	if in.Spec.Class == market.ClassMajor {
		return s.cfg.MajorClassMult
	}
	return s.cfg.CrossClassMult
}

func (s *Simulator) spreadStabilityMult(in Input) float64 {
	switch ratio := s.spreadRatio(in); {
	case ratio <= s.cfg.SpreadStableMax:
		return s.cfg.SpreadStableMult
	case ratio <= s.cfg.SpreadInstabilityMax:
		return s.cfg.SpreadLooseMult
	default:
		return s.cfg.SpreadBlownMult
	}
}

func (s *Simulator) perturb(rng Rand) float64 {
	return 1 + (rng.Float64()*2-1)*s.cfg.PerturbAmp
}

// spreadRatio is the observed spread relative to the instrument baseline.
func (s *Simulator) spreadRatio(in Input) float64 {
	if in.Spec.SpreadPips <= 0 {
		return 1.0
	}
	return in.SpreadPips / in.Spec.SpreadPips
}

// atrFrictionRatio compares the expected move against the execution cost,
// both in price units. A non-positive spread means cost is unmeasurable and
// the ratio is treated as ample.
func (s *Simulator) atrFrictionRatio(in Input) float64 {
	cost := in.SpreadPips * in.Spec.PipSize
	if cost <= 0 {
		return s.cfg.MinATRFrictionRatio
	}
	return in.ATR / cost
}

func (s *Simulator) triggeredGates(in Input) []GateID {
	fired := map[GateID]bool{
		GateThinEdge:       s.atrFrictionRatio(in) < s.cfg.MinATRFrictionRatio,
		GateNoHTFSupport:   !in.HTFAligned && in.ConfirmStrength < s.cfg.WeakConfirmCutoff,
		GateSpreadUnstable: s.spreadRatio(in) > s.cfg.SpreadInstabilityMax,
		GateRollover:       in.Session == friction.SessionRollover,
	}

	var gates []GateID
	for _, id := range gateOrder {
		if fired[id] {
			gates = append(gates, id)
		}
	}
	return gates
}

// lookupMult reads a multiplier table, defaulting to neutral for any label
// the table does not carry.
func lookupMult[K comparable](table map[K]float64, key K) float64 {
	if m, ok := table[key]; ok {
		return m
	}
	return 1.0
}
