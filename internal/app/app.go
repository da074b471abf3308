package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/wallet-reserve/internal/api"
	"github.com/ayo6706/wallet-reserve/internal/config"
	"github.com/ayo6706/wallet-reserve/internal/db"
	"github.com/ayo6706/wallet-reserve/internal/idempotency"
	"github.com/ayo6706/wallet-reserve/internal/notification"
	"github.com/ayo6706/wallet-reserve/internal/observability"
	"github.com/ayo6706/wallet-reserve/internal/repository"
	"github.com/ayo6706/wallet-reserve/internal/service"
	"github.com/ayo6706/wallet-reserve/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server and reconciliation worker, blocking until
// shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		store       repository.Store
		pool        *pgxpool.Pool
		redisClient *redis.Client
		idemStore   *idempotency.Store
	)
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		store = repository.NewPostgresStore(pool)

		var redisCmd redis.Cmdable
		if cfg.RedisURL != "" {
			redisClient, err = newRedisClient(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer redisClient.Close()
			redisCmd = redisClient
		}
		idemStore = idempotency.NewStore(redisCmd, pool, cfg.IdempotencyTTL)
	case config.BackendMemory:
		logger.Warn("using in-memory store backend, state will not survive restarts")
		store = repository.NewMemoryStore()
	}

	policy := service.RatioPolicy{Min: cfg.MinReserveRatio, Warn: cfg.WarnReserveRatio}
	alerts := notification.NewService()
	wallets := service.NewWalletLedger(store)
	transactions := service.NewTransactionEngine(store, wallets)
	audit := service.NewAuditService()
	reserves := service.NewReserveLedger(store, policy, audit)
	reconciliation := service.NewReconciliationEngine(store, reserves, audit, alerts)

	reconWorker := worker.NewReconciliationWorker(reconciliation).
		WithInterval(cfg.ReconciliationInterval)
	stopWorker := reconWorker.Run(ctx)
	logger.Info("reconciliation worker started", zap.Duration("interval", cfg.ReconciliationInterval))

	var redisCmd redis.Cmdable
	if redisClient != nil {
		redisCmd = redisClient
	}
	router := api.NewRouter(cfg, logger, pool, redisCmd, idemStore,
		wallets, transactions, reserves, reconciliation, alerts)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping reconciliation worker")
	stopWorker()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
