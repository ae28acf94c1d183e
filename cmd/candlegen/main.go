//! Candle Generator - writes deterministic OHLCV fixtures to CSV
//!
//! Produces the same candle series the simulator generates internally, for
//! inspecting fixtures in a spreadsheet or feeding other tooling.

package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"tradereplay/services/market"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: candlegen <instrument> <output_file.csv> [timeframe] [seed]")
		fmt.Println("Example: candlegen EURUSD eurusd_15m.csv 15m 42")
		os.Exit(1)
	}

	instrument := os.Args[1]
	outputFile := os.Args[2]

	tf := market.BaseTimeframe
	if len(os.Args) > 3 {
		tf = market.Timeframe(os.Args[3])
	}
	seed := int64(42)
	if len(os.Args) > 4 {
		parsed, err := strconv.ParseInt(os.Args[4], 10, 64)
		if err != nil {
			log.Fatalf("Invalid seed %q: %v", os.Args[4], err)
		}
		seed = parsed
	}

	start := time.Now().UTC().AddDate(0, -6, 0)
	end := time.Now().UTC()

	candles, err := market.Generate(instrument, tf, start, end, seed)
	if err != nil {
		log.Fatalf("Failed to generate candles: %v", err)
	}

	fmt.Printf("Writing %d %s bars for %s to %s\n", len(candles), tf, instrument, outputFile)

	file, err := os.Create(outputFile)
	if err != nil {
		log.Fatalf("Failed to create file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"timestamp_ms", "open", "high", "low", "close", "volume"}
	if err := writer.Write(header); err != nil {
		log.Fatalf("Failed to write header: %v", err)
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
			log.Fatalf("Failed to write row: %v", err)
		}
	}

	fmt.Println("Done")
}
