package api

import (
	"net/http"

	"github.com/ayo6706/wallet-reserve/internal/api/handler"
	"github.com/ayo6706/wallet-reserve/internal/api/middleware"
	"github.com/ayo6706/wallet-reserve/internal/api/spec"
	"github.com/ayo6706/wallet-reserve/internal/config"
	"github.com/ayo6706/wallet-reserve/internal/idempotency"
	"github.com/ayo6706/wallet-reserve/internal/notification"
	"github.com/ayo6706/wallet-reserve/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Router wires the HTTP surface. Pool, redis client and idempotency store are
// nil when the in-memory backend is active.
type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	pool           *pgxpool.Pool
	redis          redis.Cmdable
	idemStore      *idempotency.Store
	wallets        *service.WalletLedger
	transactions   *service.TransactionEngine
	reserves       *service.ReserveLedger
	reconciliation *service.ReconciliationEngine
	alerts         *notification.Service
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	pool *pgxpool.Pool,
	redisClient redis.Cmdable,
	idemStore *idempotency.Store,
	wallets *service.WalletLedger,
	transactions *service.TransactionEngine,
	reserves *service.ReserveLedger,
	reconciliation *service.ReconciliationEngine,
	alerts *notification.Service,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		idemStore:      idemStore,
		wallets:        wallets,
		transactions:   transactions,
		reserves:       reserves,
		reconciliation: reconciliation,
		alerts:         alerts,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))

	walletHandler := handler.NewWalletHandler(api.wallets)
	transactionHandler := handler.NewTransactionHandler(api.transactions)
	reserveHandler := handler.NewReserveHandler(api.reserves)
	reconciliationHandler := handler.NewReconciliationHandler(api.reconciliation, api.alerts)
	healthHandler := handler.NewHealthHandler(api.pool, api.redis)

	idem := middleware.IdempotencyMiddleware(api.idemStore, api.logger)

	r.Post("/v1/wallets", walletHandler.CreateWallet)
	r.Get("/v1/wallets/{id}", walletHandler.GetWallet)
	r.Get("/v1/wallets/{id}/balance", walletHandler.GetBalance)
	r.Post("/v1/wallets/{id}/freeze", walletHandler.Freeze)

	r.With(idem).Post("/v1/transactions", transactionHandler.CreateTransaction)
	r.Get("/v1/transactions/{id}", transactionHandler.GetTransaction)
	r.With(idem).Post("/v1/transactions/{id}/reverse", transactionHandler.ReverseTransaction)

	r.Post("/v1/reserve/accounts", reserveHandler.CreateAccount)
	r.Get("/v1/reserve/accounts/{id}", reserveHandler.GetAccount)
	r.With(idem).Post("/v1/reserve/accounts/{id}/operations", reserveHandler.RecordOperation)
	r.Get("/v1/reserve/ratio", reserveHandler.GetRatio)

	r.Post("/v1/reconciliation/run", reconciliationHandler.Run)
	r.Get("/v1/alerts", reconciliationHandler.Alerts)

	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/openapi.yaml"),
	))

	return r
}
