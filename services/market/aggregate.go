package market

// Aggregate buckets base candles into fixed windows of targetMinutes aligned
// to absolute time, not to the first candle. Within a bucket: open is the
// first base bar's open, high/low are the extrema, close is the last base
// bar's close and volume is the sum. A partial trailing bucket is flushed
// when the input is exhausted.
func Aggregate(base []Candle, targetMinutes int) []Candle {
	if len(base) == 0 || targetMinutes <= 0 {
		return nil
	}

	windowMs := int64(targetMinutes) * 60_000
	out := make([]Candle, 0, len(base)/targetMinutes+1)

	var cur Candle
	curStart := int64(-1)
	for _, c := range base {
		bucket := alignDown(c.Timestamp, windowMs)
		if bucket != curStart {
			if curStart >= 0 {
				out = append(out, cur)
			}
			curStart = bucket
			cur = Candle{
				Timestamp: bucket,
				Open:      c.Open,
				High:      c.High,
				Low:       c.Low,
				Close:     c.Close,
				Volume:    c.Volume,
			}
			continue
		}
		if c.High > cur.High {
			cur.High = c.High
		}
		if c.Low < cur.Low {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.Volume += c.Volume
	}
	if curStart >= 0 {
		out = append(out, cur)
	}
	return out
}

// LatestCompletedAt returns the most recent aggregated candle whose window
// closed at or before the given base-bar close time, so higher-timeframe
// context never leaks future data into a decision. ok is false when no
// window has completed yet.
func LatestCompletedAt(aggregated []Candle, targetMinutes int, baseCloseMs int64) (Candle, bool) {
	windowMs := int64(targetMinutes) * 60_000
	for i := len(aggregated) - 1; i >= 0; i-- {
		if aggregated[i].Timestamp+windowMs <= baseCloseMs {
			return aggregated[i], true
		}
	}
	return Candle{}, false
}

// DetectGaps reports bar-open timestamps that precede a hole larger than
// expectedStepMs in an ordered series. Weekend exclusion shows up here as a
// pair of long gaps per week.
func DetectGaps(candles []Candle, expectedStepMs int64) []int64 {
	var gaps []int64
	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp-candles[i-1].Timestamp > expectedStepMs {
			gaps = append(gaps, candles[i-1].Timestamp)
		}
	}
	return gaps
}
