package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	transactionCounter    *prometheus.CounterVec
	idempotencyCounter    *prometheus.CounterVec
	reserveRatioGauge     prometheus.Gauge
	reconciliationCounter *prometheus.CounterVec
	discrepancyCounter    prometheus.Counter
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		transactionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Ledger transactions by type and terminal status",
		}, []string{"type", "status"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		reserveRatioGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reserve_coverage_ratio",
			Help: "Latest observed reserve-to-wallet coverage ratio",
		})

		reconciliationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciliation_runs_total",
			Help: "Reconciliation run outcomes",
		}, []string{"outcome"})

		discrepancyCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reconciliation_discrepancies_total",
			Help: "Number of reconciliation runs that found a discrepancy",
		})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			transactionCounter,
			idempotencyCounter,
			reserveRatioGauge,
			reconciliationCounter,
			discrepancyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementTransaction(txType, status string) {
	if transactionCounter == nil {
		return
	}
	transactionCounter.WithLabelValues(txType, status).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func SetReserveRatio(ratio float64) {
	if reserveRatioGauge == nil {
		return
	}
	reserveRatioGauge.Set(ratio)
}

func IncrementReconciliationRun(outcome string) {
	if reconciliationCounter == nil {
		return
	}
	reconciliationCounter.WithLabelValues(outcome).Inc()
}

func IncrementDiscrepancy() {
	if discrepancyCounter == nil {
		return
	}
	discrepancyCounter.Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
