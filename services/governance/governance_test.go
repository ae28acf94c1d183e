package governance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tradereplay/services/friction"
	"tradereplay/services/market"
)

// centeredRand always draws 0.5, which makes every perturbation exactly 1.0.
type centeredRand struct{}

func (centeredRand) Float64() float64 { return 0.5 }

// countingRand counts draws so tests can pin the per-call draw budget.
type countingRand struct{ n int }

func (c *countingRand) Float64() float64 {
	c.n++
	return 0.5
}

func cleanInput(t *testing.T) Input {
	t.Helper()
	spec, err := market.Spec("EURUSD")
	require.NoError(t, err)
	return Input{
		Spec:            spec,
		ATR:             spec.SpreadPips * spec.PipSize * 10, // ample edge vs cost
		AvgATR:          spec.SpreadPips * spec.PipSize * 10,
		SpreadPips:      spec.SpreadPips,
		Session:         friction.SessionLondon,
		Regime:          friction.RegimeNormal,
		HTFAligned:      true,
		ConfirmStrength: 0.6,
	}
}

func TestEvaluateApprovesCleanEntry(t *testing.T) {
	sim := NewSimulator(nil)
	dec := sim.Evaluate(cleanInput(t), centeredRand{})

	require.Equal(t, Approved, dec.Verdict)
	require.Empty(t, dec.Gates)
	// 1.15 x 1.10 x 1.05 x 1.05 x 1.08 x 1.10 with neutral perturbation.
	require.InDelta(t, 1.65685, dec.Score, 1e-4)
}

func TestEvaluateSingleGateThrottles(t *testing.T) {
	sim := NewSimulator(nil)

	in := cleanInput(t)
	in.Session = friction.SessionRollover

	dec := sim.Evaluate(in, centeredRand{})
	require.Equal(t, Throttled, dec.Verdict)
	require.Equal(t, []GateID{GateRollover}, dec.Gates)
}

func TestEvaluateTwoGatesReject(t *testing.T) {
	sim := NewSimulator(nil)

	in := cleanInput(t)
	in.Session = friction.SessionRollover
	in.ATR = in.Spec.SpreadPips * in.Spec.PipSize * 2 // under the 3x edge floor

	dec := sim.Evaluate(in, centeredRand{})
	require.Equal(t, Rejected, dec.Verdict)
	require.Equal(t, []GateID{GateThinEdge, GateRollover}, dec.Gates)
}

func TestEvaluateLowCompositeThrottlesWithoutGates(t *testing.T) {
	spec, err := market.Spec("EURGBP")
	require.NoError(t, err)

	in := Input{
		Spec:            spec,
		ATR:             spec.SpreadPips * spec.PipSize * 10,
		AvgATR:          spec.SpreadPips * spec.PipSize * 5,
		SpreadPips:      spec.SpreadPips,
		Session:         friction.SessionLateNY,
		Regime:          friction.RegimeVolatile,
		HTFAligned:      false,
		ConfirmStrength: 0.6, // strong enough to keep the HTF gate closed
	}

	dec := NewSimulator(nil).Evaluate(in, centeredRand{})
	require.Empty(t, dec.Gates)
	require.Equal(t, Throttled, dec.Verdict)
	require.Less(t, dec.Score, DefaultConfig().ThrottleBelowScore)
}

func TestEvaluateWeakUnsupportedEntryGates(t *testing.T) {
	sim := NewSimulator(nil)

	in := cleanInput(t)
	in.HTFAligned = false
	in.ConfirmStrength = 0.1

	dec := sim.Evaluate(in, centeredRand{})
	require.Contains(t, dec.Gates, GateNoHTFSupport)
}

func TestEvaluateSpreadBlowoutGates(t *testing.T) {
	sim := NewSimulator(nil)

	in := cleanInput(t)
	in.SpreadPips = in.Spec.SpreadPips * 3
	in.ATR = in.SpreadPips * in.Spec.PipSize * 10 // keep the edge gate closed

	dec := sim.Evaluate(in, centeredRand{})
	require.Contains(t, dec.Gates, GateSpreadUnstable)
}

func TestEvaluateConsumesFixedDrawCount(t *testing.T) {
	sim := NewSimulator(nil)

	approved := &countingRand{}
	sim.Evaluate(cleanInput(t), approved)

	rejected := &countingRand{}
	in := cleanInput(t)
	in.Session = friction.SessionRollover
	in.ATR = 0
	sim.Evaluate(in, rejected)

	require.Equal(t, 6, approved.n)
	require.Equal(t, approved.n, rejected.n)
}
