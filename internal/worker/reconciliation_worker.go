package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/ayo6706/wallet-reserve/internal/models"
	"github.com/ayo6706/wallet-reserve/internal/observability"
	"go.uber.org/zap"
)

// Reconciler is the subset of the reconciliation engine the worker drives.
type Reconciler interface {
	Run(ctx context.Context) (*models.ReconciliationReport, error)
}

// ReconciliationWorker runs periodic reconciliation passes.
type ReconciliationWorker struct {
	engine   Reconciler
	interval time.Duration
	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewReconciliationWorker constructs a worker with a default daily interval.
func NewReconciliationWorker(engine Reconciler) *ReconciliationWorker {
	return &ReconciliationWorker{
		engine:   engine,
		interval: 24 * time.Hour,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the run interval.
func (w *ReconciliationWorker) WithInterval(interval time.Duration) *ReconciliationWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and runs reconciliation at the configured interval.
func (w *ReconciliationWorker) Start(ctx context.Context) {
	zap.L().Info("reconciliation worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately at startup.
	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("reconciliation worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("reconciliation worker stop signal received")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *ReconciliationWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *ReconciliationWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// RunOnce executes a single pass. Overlapping passes are skipped rather than
// queued: a manual trigger arriving while the scheduled pass is still running
// must not race it.
func (w *ReconciliationWorker) RunOnce(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		observability.IncrementWorkerRun("reconciliation", "skipped")
		zap.L().Debug("reconciliation pass already in flight, skipping")
		return
	}
	defer w.running.Store(false)

	_, err := w.engine.Run(ctx)
	switch {
	case err == nil:
		observability.IncrementWorkerRun("reconciliation", "success")
	case errors.Is(err, domain.ErrReserveRatioBelowThreshold):
		// The pass itself completed; the engine already alerted on the breach.
		observability.IncrementWorkerRun("reconciliation", "success")
	default:
		observability.IncrementWorkerRun("reconciliation", "failed")
		zap.L().Error("reconciliation run failed", zap.Error(err))
	}
}
