// Package friction models deterministic execution cost: session-dependent
// spread, volatility-driven slippage and the resulting fill price.
package friction

// Session labels the time-of-day liquidity context of a fill, by UTC hour.
type Session string

const (
	SessionRollover  Session = "rollover"   // 21-22 UTC, books thin out around the 5pm NY roll
	SessionAsian     Session = "asian"      // 23-06 UTC
	SessionLondon    Session = "london"     // 07-11 UTC
	SessionNYOverlap Session = "ny_overlap" // 12-16 UTC, London/NY overlap
	SessionLateNY    Session = "late_ny"    // 17-20 UTC
)

// ClassifySession maps a UTC hour to its session band. Pure lookup, no state.
func ClassifySession(hourUTC int) Session {
	h := ((hourUTC % 24) + 24) % 24
	switch {
	case h >= 21 && h <= 22:
		return SessionRollover
	case h >= 23 || h <= 6:
		return SessionAsian
	case h >= 7 && h <= 11:
		return SessionLondon
	case h >= 12 && h <= 16:
		return SessionNYOverlap
	default:
		return SessionLateNY
	}
}

// Spread multipliers and additive slippage penalties per session. Rollover
// carries the largest penalty on both axes.
var (
	sessionSpreadMult = map[Session]float64{
		SessionRollover:  2.2,
		SessionAsian:     1.4,
		SessionLondon:    1.0,
		SessionNYOverlap: 0.9,
		SessionLateNY:    1.2,
	}
	sessionSlipAddPips = map[Session]float64{
		SessionRollover:  0.40,
		SessionAsian:     0.10,
		SessionLondon:    0.02,
		SessionNYOverlap: 0.0,
		SessionLateNY:    0.15,
	}
)
