// Package proto carries the wire types of the replay service's gRPC surface.
package proto

import "context"

type ReplayRequest struct {
	Instruments []string `json:"instruments"`
	StartTime   int64    `json:"start_time"`
	EndTime     int64    `json:"end_time"`
	Variant     string   `json:"variant"`
	Agent       string   `json:"agent"`
	Seed        int64    `json:"seed"`
}

type TradeRow struct {
	TradeId      string
	Instrument   string
	Direction    string
	EntryTime    int64
	ExitTime     int64
	EntryPrice   string
	ExitPrice    string
	Session      string
	Regime       string
	Pips         string
	GovScore     string
	GovVerdict   string
	CaptureRatio string
	ExitReason   string
}

type SummaryRow struct {
	TotalTrades  int32
	WinRate      string
	Expectancy   string
	ProfitFactor string
	MaxDrawdown  string
	Sharpe       string
	LongestWins  int32
	LongestLoss  int32
}

type RunManifest struct {
	RunId      string
	Variant    string
	ConfigHash string
	CreatedAt  int64
}

type ReplayResponse struct {
	RunId      string
	DurationMs int64
	Trades     []*TradeRow
	Summary    *SummaryRow
	Manifest   *RunManifest
}

// gRPC server interface stub

type UnimplementedReplayServiceServer struct{}

func RegisterReplayServiceServer(_ any, _ ReplayServiceServer) {}

type ReplayServiceServer interface {
	ExecuteReplay(context.Context, *ReplayRequest) (*ReplayResponse, error)
}
