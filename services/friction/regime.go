package friction

// Regime labels the volatility character of the market at a point in time.
// It shares the ATR-ratio bands with the spread volatility multiplier so the
// two views of volatility can never disagree.
type Regime string

const (
	RegimeQuiet    Regime = "quiet"
	RegimeNormal   Regime = "normal"
	RegimeVolatile Regime = "volatile"
)

// ClassifyRegime buckets the atr/avgAtr ratio into a regime label. The
// elevated and high spread buckets both read as volatile.
func ClassifyRegime(atr, avgAtr float64) Regime {
	switch ratio := atrRatio(atr, avgAtr); {
	case ratio < volRatioLow:
		return RegimeQuiet
	case ratio < volRatioElevated:
		return RegimeNormal
	default:
		return RegimeVolatile
	}
}
