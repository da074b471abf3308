package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ayo6706/wallet-reserve/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReconciler struct {
	runs    atomic.Int32
	block   chan struct{}
	started chan struct{}
}

func (s *stubReconciler) Run(ctx context.Context) (*models.ReconciliationReport, error) {
	s.runs.Add(1)
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	return &models.ReconciliationReport{}, nil
}

func TestWorkerRunsImmediatelyOnStart(t *testing.T) {
	stub := &stubReconciler{}
	w := NewReconciliationWorker(stub).WithInterval(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := w.Run(ctx)
	defer stop()

	require.Eventually(t, func() bool {
		return stub.runs.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWorkerSkipsOverlappingPass(t *testing.T) {
	stub := &stubReconciler{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	w := NewReconciliationWorker(stub)

	go w.RunOnce(context.Background())
	<-stub.started

	// A second trigger while the first pass is in flight must be a no-op.
	w.RunOnce(context.Background())
	assert.Equal(t, int32(1), stub.runs.Load())

	close(stub.block)
	require.Eventually(t, func() bool {
		return !w.running.Load()
	}, time.Second, 10*time.Millisecond)

	w.RunOnce(context.Background())
	assert.Equal(t, int32(2), stub.runs.Load())
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	w := NewReconciliationWorker(&stubReconciler{}).WithInterval(time.Hour)
	stop := w.Run(context.Background())

	stop()
	stop()
	w.Stop()
}

func TestWorkerTicks(t *testing.T) {
	stub := &stubReconciler{}
	w := NewReconciliationWorker(stub).WithInterval(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := w.Run(ctx)
	defer stop()

	require.Eventually(t, func() bool {
		return stub.runs.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond)
}
