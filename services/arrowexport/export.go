// Package arrowexport serializes trade ledgers to Apache Arrow IPC for the
// dashboard and analytics consumers.
package arrowexport

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"tradereplay/services/engine"
)

// Exporter converts trade records to Arrow record batches.
type Exporter struct {
	pool memory.Allocator
}

func NewExporter() *Exporter {
	return &Exporter{pool: memory.NewGoAllocator()}
}

// Schema is the wire schema of an exported trade ledger.
func Schema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "trade_id", Type: arrow.BinaryTypes.String},
		{Name: "instrument", Type: arrow.BinaryTypes.String},
		{Name: "direction", Type: arrow.BinaryTypes.String},
		{Name: "entry_time", Type: arrow.PrimitiveTypes.Int64},
		{Name: "exit_time", Type: arrow.PrimitiveTypes.Int64},
		{Name: "entry_price", Type: arrow.PrimitiveTypes.Float64},
		{Name: "exit_price", Type: arrow.PrimitiveTypes.Float64},
		{Name: "session", Type: arrow.BinaryTypes.String},
		{Name: "regime", Type: arrow.BinaryTypes.String},
		{Name: "pips", Type: arrow.PrimitiveTypes.Float64},
		{Name: "mfe_pips", Type: arrow.PrimitiveTypes.Float64},
		{Name: "mae_pips", Type: arrow.PrimitiveTypes.Float64},
		{Name: "capture_ratio", Type: arrow.PrimitiveTypes.Float64},
		{Name: "gov_score", Type: arrow.PrimitiveTypes.Float64},
		{Name: "win", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "exit_reason", Type: arrow.BinaryTypes.String},
	}, nil)
}

// Export serializes the trades to one Arrow IPC stream.
func (e *Exporter) Export(trades []engine.TradeRecord) ([]byte, error) {
	if len(trades) == 0 {
		return nil, fmt.Errorf("no trades to export")
	}

	schema := Schema()
	builder := array.NewRecordBuilder(e.pool, schema)
	defer builder.Release()

	for _, tr := range trades {
		builder.Field(0).(*array.StringBuilder).Append(tr.ID)
		builder.Field(1).(*array.StringBuilder).Append(tr.Instrument)
		builder.Field(2).(*array.StringBuilder).Append(tr.Direction.String())
		builder.Field(3).(*array.Int64Builder).Append(tr.EntryTime)
		builder.Field(4).(*array.Int64Builder).Append(tr.ExitTime)
		builder.Field(5).(*array.Float64Builder).Append(tr.EntryPrice)
		builder.Field(6).(*array.Float64Builder).Append(tr.ExitPrice)
		builder.Field(7).(*array.StringBuilder).Append(string(tr.Session))
		builder.Field(8).(*array.StringBuilder).Append(string(tr.Regime))
		builder.Field(9).(*array.Float64Builder).Append(tr.Pips)
		builder.Field(10).(*array.Float64Builder).Append(tr.MFEPips)
		builder.Field(11).(*array.Float64Builder).Append(tr.MAEPips)
		builder.Field(12).(*array.Float64Builder).Append(tr.CaptureRatio)
		builder.Field(13).(*array.Float64Builder).Append(tr.Decision.Score)
		builder.Field(14).(*array.BooleanBuilder).Append(tr.Win)
		builder.Field(15).(*array.StringBuilder).Append(string(tr.ExitReason))
	}

	record := builder.NewRecord()
	defer record.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("write arrow record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close arrow writer: %w", err)
	}
	return buf.Bytes(), nil
}
