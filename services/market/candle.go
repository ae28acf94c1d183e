// Package market provides synthetic OHLCV series, timeframe aggregation and
// volatility measurement for the replay engine.
package market

import (
	"fmt"
	"sort"
	"time"
)

// Candle is a single OHLCV bar. Timestamps are UTC milliseconds at bar open.
// Candles are never mutated after generation.
type Candle struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Time returns the bar open time in UTC.
func (c Candle) Time() time.Time { return time.UnixMilli(c.Timestamp).UTC() }

// Timeframe identifies a bar cadence.
type Timeframe string

const (
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

var tfMinutes = map[Timeframe]int{
	TF15m: 15,
	TF1h:  60,
	TF4h:  240,
	TF1d:  1440,
}

// Minutes returns the bar width in minutes, or an error for unknown frames.
func (tf Timeframe) Minutes() (int, error) {
	m, ok := tfMinutes[tf]
	if !ok {
		return 0, fmt.Errorf("unknown timeframe %q", tf)
	}
	return m, nil
}

// BaseTimeframe is the cadence all other tiers are derived from.
const BaseTimeframe = TF15m

// AggregatedTimeframes lists the tiers derived from the base series, in order.
var AggregatedTimeframes = []Timeframe{TF1h, TF4h, TF1d}

// CandleBundle holds one ordered candle series per supported timeframe for a
// single instrument. All tiers are derived from the same base series, so
// aggregated bars are internally consistent with the base bars they cover.
type CandleBundle struct {
	Instrument string
	Series     map[Timeframe][]Candle
}

// Base returns the base-timeframe series.
func (b *CandleBundle) Base() []Candle { return b.Series[BaseTimeframe] }

// InstrumentClass separates majors from crosses for scoring purposes.
type InstrumentClass int

const (
	ClassMajor InstrumentClass = iota
	ClassCross
)

// InstrumentSpec carries the static per-instrument parameters the generator
// and friction model depend on.
type InstrumentSpec struct {
	Symbol     string
	BasePrice  float64
	PipSize    float64
	SpreadPips float64 // baseline spread during liquid hours
	VolScale   float64 // ATR-scale volatility as a fraction of price per base bar
	Class      InstrumentClass
}

var instrumentSpecs = map[string]InstrumentSpec{
	"EURUSD": {Symbol: "EURUSD", BasePrice: 1.0850, PipSize: 0.0001, SpreadPips: 0.9, VolScale: 0.00055, Class: ClassMajor},
	"GBPUSD": {Symbol: "GBPUSD", BasePrice: 1.2700, PipSize: 0.0001, SpreadPips: 1.2, VolScale: 0.00070, Class: ClassMajor},
	"USDJPY": {Symbol: "USDJPY", BasePrice: 149.50, PipSize: 0.01, SpreadPips: 1.0, VolScale: 0.00060, Class: ClassMajor},
	"AUDUSD": {Symbol: "AUDUSD", BasePrice: 0.6550, PipSize: 0.0001, SpreadPips: 1.1, VolScale: 0.00065, Class: ClassMajor},
	"USDCHF": {Symbol: "USDCHF", BasePrice: 0.8800, PipSize: 0.0001, SpreadPips: 1.3, VolScale: 0.00055, Class: ClassMajor},
	"EURGBP": {Symbol: "EURGBP", BasePrice: 0.8550, PipSize: 0.0001, SpreadPips: 1.6, VolScale: 0.00050, Class: ClassCross},
	"EURJPY": {Symbol: "EURJPY", BasePrice: 162.20, PipSize: 0.01, SpreadPips: 1.8, VolScale: 0.00075, Class: ClassCross},
	"GBPJPY": {Symbol: "GBPJPY", BasePrice: 189.80, PipSize: 0.01, SpreadPips: 2.4, VolScale: 0.00090, Class: ClassCross},
}

// Spec looks up the static parameters for an instrument symbol.
func Spec(symbol string) (InstrumentSpec, error) {
	spec, ok := instrumentSpecs[symbol]
	if !ok {
		return InstrumentSpec{}, fmt.Errorf("unknown instrument %q", symbol)
	}
	return spec, nil
}

// KnownInstruments returns the symbols the generator can produce.
func KnownInstruments() []string {
	out := make([]string, 0, len(instrumentSpecs))
	for sym := range instrumentSpecs {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
