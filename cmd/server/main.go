// Package main runs the trade-replay service: a gRPC + HTTP front end over
// the deterministic simulation engine.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	pb "tradereplay/proto"
	"tradereplay/services/arrowexport"
	"tradereplay/services/clickhouse"
	"tradereplay/services/config"
	"tradereplay/services/engine"
	"tradereplay/services/monitoring"
	"tradereplay/services/stats"
)

// ReplayService wires the engine to its collaborators.
type ReplayService struct {
	pb.UnimplementedReplayServiceServer
	cfg      config.BacktestConfig
	store    *clickhouse.Store
	exporter *arrowexport.Exporter
	metrics  *monitoring.Registry
	logger   *zap.Logger
}

func NewReplayService(cfg config.BacktestConfig, logger *zap.Logger) (*ReplayService, error) {
	svc := &ReplayService{
		cfg:      cfg,
		exporter: arrowexport.NewExporter(),
		metrics:  monitoring.NewRegistry(),
		logger:   logger,
	}

	if os.Getenv("CLICKHOUSE_ENABLED") == "true" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		store, err := clickhouse.Open(ctx, clickhouse.ConfigFromEnv(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		svc.store = store
	}
	return svc, nil
}

// ExecuteReplay implements the gRPC surface.
func (s *ReplayService) ExecuteReplay(ctx context.Context, req *pb.ReplayRequest) (*pb.ReplayResponse, error) {
	cfg := s.cfg
	if len(req.Instruments) > 0 {
		cfg.Instruments = req.Instruments
	}
	if req.StartTime > 0 {
		cfg.Start = time.UnixMilli(req.StartTime).UTC()
	}
	if req.EndTime > 0 {
		cfg.End = time.UnixMilli(req.EndTime).UTC()
	}
	if req.Variant != "" {
		cfg.Variant = req.Variant
	}
	if req.Agent != "" {
		cfg.Agent = req.Agent
	}
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	result, summary, err := s.runReplay(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resp := &pb.ReplayResponse{
		RunId:      result.RunID,
		DurationMs: result.DurationMs,
		Summary:    summaryRow(summary),
		Manifest: &pb.RunManifest{
			RunId:      result.RunID,
			Variant:    cfg.Variant,
			ConfigHash: result.Snapshot.Hash,
			CreatedAt:  int64(result.Snapshot.Timestamp),
		},
	}
	for _, tr := range result.Trades {
		resp.Trades = append(resp.Trades, tradeRow(tr))
	}
	return resp, nil
}

func (s *ReplayService) runReplay(ctx context.Context, cfg config.BacktestConfig) (*engine.RunResult, stats.Summary, error) {
	s.metrics.ActiveRuns.Inc()
	defer s.metrics.ActiveRuns.Dec()

	result, err := engine.NewRunner(cfg, nil, s.logger).Run(ctx)
	if err != nil {
		return nil, stats.Summary{}, fmt.Errorf("run replay: %w", err)
	}
	s.metrics.ObserveRun(result)

	if s.store != nil && len(result.Trades) > 0 {
		report := s.store.InsertTrades(ctx, result.RunID, cfg.Variant, result.Trades)
		if report.Errors > 0 {
			s.metrics.InsertFailures.Add(float64(report.Errors))
		}
	}
	return result, stats.Summarize(result.Trades), nil
}

func (s *ReplayService) setupHTTPRoutes(r *gin.Engine) {
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api/v1")
	api.POST("/replay", s.handleReplay)
	api.POST("/replay/export", s.handleReplayExport)
}

func (s *ReplayService) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (s *ReplayService) handleReplay(c *gin.Context) {
	var req pb.ReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.ExecuteReplay(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleReplayExport runs a replay and streams the ledger as Arrow IPC.
func (s *ReplayService) handleReplayExport(c *gin.Context) {
	var req pb.ReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := s.cfg
	if len(req.Instruments) > 0 {
		cfg.Instruments = req.Instruments
	}
	result, _, err := s.runReplay(c.Request.Context(), cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data, err := s.exporter.Export(result.Trades)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/vnd.apache.arrow.stream", data)
}

func tradeRow(tr engine.TradeRecord) *pb.TradeRow {
	return &pb.TradeRow{
		TradeId:      tr.ID,
		Instrument:   tr.Instrument,
		Direction:    tr.Direction.String(),
		EntryTime:    tr.EntryTime,
		ExitTime:     tr.ExitTime,
		EntryPrice:   decimal.NewFromFloat(tr.EntryPrice).String(),
		ExitPrice:    decimal.NewFromFloat(tr.ExitPrice).String(),
		Session:      string(tr.Session),
		Regime:       string(tr.Regime),
		Pips:         decimal.NewFromFloat(tr.Pips).Round(2).String(),
		GovScore:     decimal.NewFromFloat(tr.Decision.Score).Round(4).String(),
		GovVerdict:   string(tr.Decision.Verdict),
		CaptureRatio: decimal.NewFromFloat(tr.CaptureRatio).Round(4).String(),
		ExitReason:   string(tr.ExitReason),
	}
}

func summaryRow(s stats.Summary) *pb.SummaryRow {
	return &pb.SummaryRow{
		TotalTrades:  int32(s.TotalTrades),
		WinRate:      decimal.NewFromFloat(s.WinRate).Round(4).String(),
		Expectancy:   decimal.NewFromFloat(s.Expectancy).Round(4).String(),
		ProfitFactor: decimal.NewFromFloat(s.ProfitFactor).Round(4).String(),
		MaxDrawdown:  decimal.NewFromFloat(s.MaxDrawdown).Round(2).String(),
		Sharpe:       decimal.NewFromFloat(s.Sharpe).Round(4).String(),
		LongestWins:  int32(s.LongestWins),
		LongestLoss:  int32(s.LongestLoss),
	}
}

func main() {
	cfg := config.Default()
	if path := os.Getenv("BACKTEST_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}
	if err := cfg.FromEnv(); err != nil {
		log.Fatalf("Failed to apply environment overrides: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting trade-replay service",
		zap.String("variant", cfg.Variant),
		zap.Strings("instruments", cfg.Instruments))

	service, err := NewReplayService(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create replay service", zap.Error(err))
	}

	grpcServer := grpc.NewServer()
	pb.RegisterReplayServiceServer(grpcServer, service)
	reflection.Register(grpcServer)

	gin.SetMode(gin.ReleaseMode)
	httpRouter := gin.New()
	httpRouter.Use(gin.Recovery())
	service.setupHTTPRoutes(httpRouter)

	grpcPort := envOr("GRPC_PORT", "50051")
	httpPort := envOr("HTTP_PORT", "8080")

	go func() {
		lis, err := net.Listen("tcp", ":"+grpcPort)
		if err != nil {
			logger.Fatal("Failed to listen on gRPC port", zap.Error(err))
		}
		logger.Info("Starting gRPC server", zap.String("port", grpcPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal("Failed to serve gRPC", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", httpPort))
		if err := httpRouter.Run(":" + httpPort); err != nil {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down servers")
	grpcServer.GracefulStop()
	logger.Info("Servers stopped")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
