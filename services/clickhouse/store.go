// Package clickhouse persists closed trade ledgers to ClickHouse. The
// simulator itself never reads from here; the store exists for dashboards
// and post-run analysis.
package clickhouse

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradereplay/services/engine"
)

// insertChunkSize bounds one batch. Partial failures are reported per chunk
// rather than aborting the whole insert.
const insertChunkSize = 50

// Batch is the slice of the native batch API the store uses.
type Batch interface {
	Append(v ...any) error
	Send() error
}

// Conn is the slice of the native connection API the store uses. The real
// driver connection is adapted through nativeConn; tests supply fakes.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) error
	PrepareBatch(ctx context.Context, query string) (Batch, error)
}

// Config locates the ClickHouse endpoint. Fields default from the
// environment so operators can point a run at another cluster without a
// config file change.
type Config struct {
	Addr     string
	Database string
	Username string
	Password string
	Table    string
}

func ConfigFromEnv() Config {
	return Config{
		Addr:     envOr("CLICKHOUSE_ADDR", "localhost:9000"),
		Database: envOr("CLICKHOUSE_DB", "tradereplay"),
		Username: envOr("CLICKHOUSE_USER", "default"),
		Password: envOr("CLICKHOUSE_PASSWORD", ""),
		Table:    envOr("CLICKHOUSE_TRADES_TABLE", "trades"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// InsertReport summarizes one InsertTrades call.
type InsertReport struct {
	Inserted      int
	Errors        int
	ErrorMessages []string
}

// Store writes trade ledgers.
type Store struct {
	conn     Conn
	log      *zap.Logger
	database string
	table    string
}

// NewStore wraps an existing connection, real or fake.
func NewStore(conn Conn, database, table string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{conn: conn, log: logger, database: database, table: table}
}

// Open connects to ClickHouse, verifies the connection and ensures the
// trades table exists.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(60),
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	store := NewStore(nativeConn{conn: conn}, cfg.Database, cfg.Table, logger)
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s.%s (
    run_id        String,
    variant       String,
    trade_id      String,
    instrument    LowCardinality(String),
    direction     LowCardinality(String),
    entry_time    DateTime64(3, 'UTC'),
    exit_time     DateTime64(3, 'UTC'),
    entry_price   Decimal(18, 8),
    exit_price    Decimal(18, 8),
    duration_bars Int32,
    session       LowCardinality(String),
    regime        LowCardinality(String),
    spread_pips   Float64,
    slippage_pips Float64,
    gov_score     Float64,
    gov_verdict   LowCardinality(String),
    pips          Float64,
    mfe_pips      Float64,
    mae_pips      Float64,
    capture_ratio Float64,
    win           UInt8,
    exit_reason   LowCardinality(String),
    pnl_usd       Decimal(18, 4)
) ENGINE = MergeTree()
ORDER BY (variant, instrument, entry_time)`, s.database, s.table)

	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertTrades writes the trades in chunks. A failed chunk is recorded and
// skipped; later chunks still go through.
func (s *Store) InsertTrades(ctx context.Context, runID, variant string, trades []engine.TradeRecord) InsertReport {
	var report InsertReport

	for start := 0; start < len(trades); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(trades) {
			end = len(trades)
		}

		if err := s.insertChunk(ctx, runID, variant, trades[start:end]); err != nil {
			report.Errors += end - start
			report.ErrorMessages = append(report.ErrorMessages, err.Error())
			s.log.Error("trade chunk insert failed",
				zap.String("run_id", runID),
				zap.Int("offset", start),
				zap.Error(err))
			continue
		}
		report.Inserted += end - start
	}

	s.log.Info("trade ledger persisted",
		zap.String("run_id", runID),
		zap.String("variant", variant),
		zap.Int("inserted", report.Inserted),
		zap.Int("errors", report.Errors))
	return report
}

func (s *Store) insertChunk(ctx context.Context, runID, variant string, trades []engine.TradeRecord) error {
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.%s", s.database, s.table))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, tr := range trades {
		win := uint8(0)
		if tr.Win {
			win = 1
		}
		err := batch.Append(
			runID,
			variant,
			tr.ID,
			tr.Instrument,
			tr.Direction.String(),
			time.UnixMilli(tr.EntryTime).UTC(),
			time.UnixMilli(tr.ExitTime).UTC(),
			decimal.NewFromFloat(tr.EntryPrice),
			decimal.NewFromFloat(tr.ExitPrice),
			int32(tr.DurationBars),
			string(tr.Session),
			string(tr.Regime),
			tr.Quote.SpreadPips,
			tr.Quote.SlippagePips,
			tr.Decision.Score,
			string(tr.Decision.Verdict),
			tr.Pips,
			tr.MFEPips,
			tr.MAEPips,
			tr.CaptureRatio,
			win,
			string(tr.ExitReason),
			tr.PnLUSD,
		)
		if err != nil {
			return fmt.Errorf("append trade %s: %w", tr.ID, err)
		}
	}
	return batch.Send()
}

// ClearVariant removes every trade stored under one variant, for re-running
// a variant after a rule change.
func (s *Store) ClearVariant(ctx context.Context, variant string) error {
	query := fmt.Sprintf("ALTER TABLE %s.%s DELETE WHERE variant = ?", s.database, s.table)
	if err := s.conn.Exec(ctx, query, variant); err != nil {
		return fmt.Errorf("clear variant %s: %w", variant, err)
	}
	return nil
}

// nativeConn adapts the clickhouse-go driver connection to the narrow Conn
// interface.
type nativeConn struct {
	conn clickhouse.Conn
}

func (n nativeConn) Exec(ctx context.Context, query string, args ...any) error {
	return n.conn.Exec(ctx, query, args...)
}

func (n nativeConn) PrepareBatch(ctx context.Context, query string) (Batch, error) {
	return n.conn.PrepareBatch(ctx, query)
}
