package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/ayo6706/wallet-reserve/internal/models"
	"github.com/ayo6706/wallet-reserve/internal/notification"
	"github.com/ayo6706/wallet-reserve/internal/observability"
	"github.com/ayo6706/wallet-reserve/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconciliationEngine compares total issued wallet liabilities against total
// reserve assets, posts a corrective reserve entry when they diverge and
// persists a report of every run.
type ReconciliationEngine struct {
	store    repository.Store
	reserves *ReserveLedger
	audit    *AuditService
	notifier notification.Notifier

	// mu serializes passes. Two concurrent passes would read the same
	// snapshot totals and post the corrective entry twice.
	mu sync.Mutex
}

func NewReconciliationEngine(store repository.Store, reserves *ReserveLedger, audit *AuditService, notifier notification.Notifier) *ReconciliationEngine {
	return &ReconciliationEngine{
		store:    store,
		reserves: reserves,
		audit:    audit,
		notifier: notifier,
	}
}

// Run executes one reconciliation pass. Totals, ratio classification, the
// corrective entry and the persisted report all share one snapshot unit, so
// the report always describes the state the correction was computed from.
// The returned report is non-nil whenever the pass itself completed, even if
// the ratio breached the floor; the error signals the breach.
func (e *ReconciliationEngine) Run(ctx context.Context) (*models.ReconciliationReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var report *models.ReconciliationReport
	err := retryConflicts(ctx, defaultMaxRetries, defaultRetryBackoff, func() error {
		return e.store.RunInSnapshot(ctx, func(tx repository.TxStore) error {
			walletTotal, reserveTotal, err := tx.ActiveTotals(ctx)
			if err != nil {
				return err
			}

			policy := e.reserves.Policy()
			ratio := policy.Ratio(walletTotal, reserveTotal)
			r := &models.ReconciliationReport{
				Timestamp:    time.Now().UTC(),
				WalletTotal:  walletTotal,
				ReserveTotal: reserveTotal,
				Ratio:        ratio,
				Outcome:      policy.Classify(ratio),
			}

			if !reserveTotal.Equal(walletTotal) {
				discrepancy := reserveTotal.Sub(walletTotal)
				r.Discrepancy = &discrepancy
				if err := e.applyCorrection(ctx, tx, r); err != nil {
					return err
				}
			}

			if err := e.persistReport(ctx, tx, r); err != nil {
				return err
			}
			report = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, report)
	return report, e.breachError(report)
}

// applyCorrection posts a reconciliation entry on the earliest created active
// reserve account, moving the reserve total back to parity with the wallet
// total. The report keeps the pre-correction figures.
func (e *ReconciliationEngine) applyCorrection(ctx context.Context, tx repository.TxStore, r *models.ReconciliationReport) error {
	account, err := tx.EarliestActiveReserveAccountForUpdate(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		zap.L().Error("discrepancy found but no active reserve account to correct",
			zap.String("discrepancy", r.Discrepancy.String()))
		return nil
	}
	if err != nil {
		return err
	}

	metadata, err := json.Marshal(map[string]string{
		"wallet_total":  r.WalletTotal.String(),
		"reserve_total": r.ReserveTotal.String(),
		"discrepancy":   r.Discrepancy.String(),
	})
	if err != nil {
		return fmt.Errorf("encode correction metadata: %w", err)
	}

	_, err = e.reserves.recordOperationInTx(ctx, tx, account, ReserveOperationRequest{
		ReserveAccountID: account.ID,
		Amount:           r.Discrepancy.Neg(),
		OperationType:    domain.ReserveOpReconciliation,
		ReferenceID:      "reconciliation_" + r.Timestamp.Format("2006-01-02"),
		Metadata:         metadata,
	})
	return err
}

func (e *ReconciliationEngine) persistReport(ctx context.Context, tx repository.TxStore, r *models.ReconciliationReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reconciliation report: %w", err)
	}
	return e.audit.Write(ctx, tx, "reconciliation", uuid.New(), "reconciliation_run", "", string(r.Outcome), payload)
}

// publish emits logs, metrics and alerts after the report has committed.
// Alerting is best-effort and never affects the run result.
func (e *ReconciliationEngine) publish(ctx context.Context, r *models.ReconciliationReport) {
	ratio, _ := r.Ratio.Float64()
	observability.SetReserveRatio(ratio)
	observability.IncrementReconciliationRun(string(r.Outcome))

	fields := []zap.Field{
		zap.String("wallet_total", r.WalletTotal.String()),
		zap.String("reserve_total", r.ReserveTotal.String()),
		zap.String("ratio", r.Ratio.String()),
		zap.String("outcome", string(r.Outcome)),
	}
	if r.Discrepancy != nil {
		fields = append(fields, zap.String("discrepancy", r.Discrepancy.String()))
		observability.IncrementDiscrepancy()
	}

	switch r.Outcome {
	case domain.ReconciliationError:
		zap.L().Error("reconciliation completed", fields...)
		e.notifier.SendAlert(ctx, "reserve ratio below minimum",
			fmt.Sprintf("reserve ratio %s dropped below minimum %s (wallets %s, reserves %s)",
				r.Ratio, e.reserves.Policy().Min, r.WalletTotal, r.ReserveTotal))
	case domain.ReconciliationWarning:
		zap.L().Warn("reconciliation completed", fields...)
		e.notifier.SendAlert(ctx, "reserve ratio warning",
			fmt.Sprintf("reserve ratio %s is below target %s", r.Ratio, e.reserves.Policy().Warn))
	default:
		zap.L().Info("reconciliation completed", fields...)
	}
}

func (e *ReconciliationEngine) breachError(r *models.ReconciliationReport) error {
	if r.Outcome != domain.ReconciliationError {
		return nil
	}
	return fmt.Errorf("reserve ratio %s below minimum %s: %w",
		r.Ratio, e.reserves.Policy().Min, domain.ErrReserveRatioBelowThreshold)
}
