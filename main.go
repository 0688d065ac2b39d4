package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sqlpilot/sqlpilot/internal/config"
	"github.com/sqlpilot/sqlpilot/internal/costing"
	"github.com/sqlpilot/sqlpilot/internal/health"
	"github.com/sqlpilot/sqlpilot/internal/httpapi"
	"github.com/sqlpilot/sqlpilot/internal/nlu"
	"github.com/sqlpilot/sqlpilot/internal/pipeline"
	"github.com/sqlpilot/sqlpilot/internal/session"
	"github.com/sqlpilot/sqlpilot/internal/store"
	"github.com/sqlpilot/sqlpilot/internal/warehouse"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	hm := health.NewRegistry(logger)

	st, closeStore, err := buildStore(ctx, cfg, hm, logger)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer closeStore()

	var sessions *session.Manager
	if cfg.Session.RedisAddr != "" {
		sessions, err = session.NewManager(cfg.Session.RedisAddr, cfg.Session.TTL, logger)
		if err != nil {
			// Warehouse sessions are optional; the core pipeline still runs
			// without schema context.
			logger.Warn("Session manager disabled", zap.Error(err))
			sessions = nil
		}
	}

	costModel := costing.LoadModel()
	capability, err := nlu.NewClient(nlu.Config{
		BaseURL: cfg.NLU.BaseURL,
		Timeout: cfg.NLU.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize NLU client", zap.Error(err))
	}
	orch := pipeline.New(capability, costModel, logger)

	connector := func(ctx context.Context, creds warehouse.Credentials) (warehouse.Warehouse, error) {
		return warehouse.Connect(ctx, creds, logger)
	}
	api := httpapi.NewServer(st, orch, costModel, sessions, connector, logger)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	mux.Handle("/healthz", hm.Handler())

	limiter := httpapi.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      limiter.Middleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		logger.Info("Metrics server listening", zap.String("address", addr))
		if err := http.ListenAndServe(addr, metricsMux); err != nil {
			logger.Error("Failed to start metrics server", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("API server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func buildStore(ctx context.Context, cfg *config.Config, hm *health.Registry, logger *zap.Logger) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		pg, err := store.NewPostgres(ctx, cfg.Store.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		hm.Register("store", true, func(ctx context.Context) error {
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return pg.Ping(pctx)
		})
		return pg, func() { pg.Close() }, nil
	default:
		logger.Info("Using in-memory store")
		return store.NewMemory(), func() {}, nil
	}
}
