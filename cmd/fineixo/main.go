package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClebyFrancisco/fineixo/internal/config"
	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/handler"
	"github.com/ClebyFrancisco/fineixo/internal/infra/auth"
	"github.com/ClebyFrancisco/fineixo/internal/infra/cache"
	"github.com/ClebyFrancisco/fineixo/internal/infra/events"
	"github.com/ClebyFrancisco/fineixo/internal/infra/memstore"
	"github.com/ClebyFrancisco/fineixo/internal/infra/observability"
	"github.com/ClebyFrancisco/fineixo/internal/infra/resilience"
	"github.com/ClebyFrancisco/fineixo/internal/infra/sqlstore"
	"github.com/ClebyFrancisco/fineixo/internal/port"
	"github.com/ClebyFrancisco/fineixo/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store", cfg.Store),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("conflict_retries", cfg.ConflictRetries),
		zap.Bool("reject_over_limit", cfg.RejectOverLimit),
		zap.Bool("dev_auth", cfg.DevAuth),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "fineixo")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	summaryCache := cache.New[*domain.DebtSummary](cfg.CacheTTL)
	defer summaryCache.Close()

	// --- Store ---
	var store port.LedgerStore
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		store = memstore.New()
	default:
		sqlStore, err := sqlstore.Open(context.Background(), cfg.DatabasePath, logger)
		if err != nil {
			logger.Fatal("failed to open database", zap.String("path", cfg.DatabasePath), zap.Error(err))
		}
		defer sqlStore.Close()
		logger.Info("using sqlite store", zap.String("path", cfg.DatabasePath))
		store = sqlStore
	}

	// --- Events ---
	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	// --- Resilience ---
	cb := resilience.NewCircuitBreaker("ledger-store", func(err error) bool {
		return err == nil || service.IsDomainError(err)
	})
	guard := resilience.NewGuard(cb, resilience.NewBulkhead(cfg.MaxConcurrency))

	// --- Services ---
	ledgerSvc := service.NewLedgerService(store, publisher, summaryCache, metrics, logger, service.LedgerOptions{
		RejectOverLimit: cfg.RejectOverLimit,
		Guard:           guard,
	})

	// --- Router ---
	router := handler.NewRouter(ledgerSvc, auth.NewVerifier(cfg.JWTSecret), metrics, logger, handler.Options{
		DevAuth:         cfg.DevAuth,
		ConflictRetries: cfg.ConflictRetries,
		RetryBackoff:    cfg.InitialBackoff,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// newPublisher dials the broker when AMQP_URL is set, retrying with backoff,
// and falls back to logging events.
func newPublisher(cfg *config.Config, logger *zap.Logger) port.EventPublisher {
	if cfg.AMQPURL == "" {
		logger.Info("events: AMQP not configured, logging ledger events")
		return events.NewLogPublisher(logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var publisher *events.AMQPPublisher
	err := resilience.RetryWithBackoff(ctx, resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}, func() error {
		var err error
		publisher, err = events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		return err
	})
	if err != nil {
		logger.Error("events: AMQP unavailable, logging ledger events", zap.Error(err))
		return events.NewLogPublisher(logger)
	}
	logger.Info("events: publishing to AMQP", zap.String("exchange", cfg.AMQPExchange))
	return publisher
}
