// Resamples a candle CSV (as written by candlegen) into a coarser timeframe
// using the same absolute-time bucketing the simulator uses internally.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"tradereplay/services/market"
)

func main() {
	in := flag.String("in", "", "Input CSV (timestamp_ms,open,high,low,close,volume)")
	out := flag.String("out", "", "Output CSV path")
	dst := flag.Int("minutes", 60, "Target bar width in minutes")
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		os.Exit(1)
	}

	base, err := readCandles(*in)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *in, err)
	}

	resampled := market.Aggregate(base, *dst)
	fmt.Printf("Resampled %d bars into %d bars of %dm\n", len(base), len(resampled), *dst)

	if err := writeCandles(*out, resampled); err != nil {
		log.Fatalf("Failed to write %s: %v", *out, err)
	}
}

func readCandles(path string) ([]market.Candle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	var candles []market.Candle
	header := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header {
			header = false
			continue
		}
		if len(row) < 6 {
			return nil, fmt.Errorf("short row: %v", row)
		}

		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q: %w", row[0], err)
		}
		vals := make([]float64, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("bad value %q: %w", row[i+1], err)
			}
			vals[i] = v
		}
		candles = append(candles, market.Candle{
			Timestamp: ts,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}
	return candles, nil
}

func writeCandles(path string, candles []market.Candle) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"timestamp_ms", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, c := range candles {
		row := []string{
			strconv.FormatInt(c.Timestamp, 10),
			strconv.FormatFloat(c.Open, 'f', 5, 64),
			strconv.FormatFloat(c.High, 'f', 5, 64),
			strconv.FormatFloat(c.Low, 'f', 5, 64),
			strconv.FormatFloat(c.Close, 'f', 5, 64),
			strconv.FormatFloat(c.Volume, 'f', 2, 64),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}
