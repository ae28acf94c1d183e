package market

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"
)

// Generate produces a synthetic OHLCV series for one instrument/timeframe.
// The output is a pure function of the arguments: identical inputs always
// yield an identical series, so backtests are reproducible without access to
// real market data. Weekend bars (Saturday/Sunday UTC) are skipped at
// generation time.
func Generate(instrument string, tf Timeframe, start, end time.Time, seed int64) ([]Candle, error) {
	spec, err := Spec(instrument)
	if err != nil {
		return nil, err
	}
	minutes, err := tf.Minutes()
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, fmt.Errorf("inverted range: start %s is not before end %s", start, end)
	}

	stepMs := int64(minutes) * 60_000
	startMs := alignDown(start.UTC().UnixMilli(), stepMs)
	endMs := end.UTC().UnixMilli()

	rng := rand.New(rand.NewSource(deriveSeed(instrument, string(tf), startMs, endMs, seed)))

	// Per-bar volatility scales with the square root of the bar width so the
	// aggregated tiers stay consistent with the base cadence.
	barVol := spec.VolScale * math.Sqrt(float64(minutes)/float64(15))

	price := spec.BasePrice
	candles := make([]Candle, 0, (endMs-startMs)/stepMs)
	for i, ts := 0, startMs; ts < endMs; i, ts = i+1, ts+stepMs {
		if isWeekend(ts) {
			continue
		}

		// Slow regime drift: alternating trend segments over ~400 bars.
		trend := 0.0
		switch (i / 400) % 3 {
		case 0:
			trend = barVol * 0.15
		case 1:
			trend = -barVol * 0.12
		}

		change := (rng.Float64()-0.5)*2*barVol + trend
		open := price
		span := barVol * price * (0.6 + rng.Float64()*1.2)
		high := open + span*rng.Float64()
		low := open - span*rng.Float64()
		close := open * (1 + change)

		if high < open {
			high = open
		}
		if high < close {
			high = close
		}
		if low > open {
			low = open
		}
		if low > close {
			low = close
		}

		volume := 900 + rng.Float64()*4200 + math.Abs(change)/barVol*600

		candles = append(candles, Candle{
			Timestamp: ts,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
		})
		price = close
	}

	return candles, nil
}

// BuildBundle generates the base series for an instrument and derives the
// aggregated tiers from it.
func BuildBundle(instrument string, start, end time.Time, seed int64) (*CandleBundle, error) {
	base, err := Generate(instrument, BaseTimeframe, start, end, seed)
	if err != nil {
		return nil, err
	}

	bundle := &CandleBundle{
		Instrument: instrument,
		Series:     map[Timeframe][]Candle{BaseTimeframe: base},
	}
	for _, tf := range AggregatedTimeframes {
		minutes, err := tf.Minutes()
		if err != nil {
			return nil, err
		}
		bundle.Series[tf] = Aggregate(base, minutes)
	}
	return bundle, nil
}

func deriveSeed(parts ...any) int64 {
	h := fnv.New64a()
	for _, p := range parts {
		fmt.Fprintf(h, "%v|", p)
	}
	return int64(h.Sum64())
}

func alignDown(ts, step int64) int64 { return ts - ts%step }

func isWeekend(ts int64) bool {
	wd := time.UnixMilli(ts).UTC().Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
