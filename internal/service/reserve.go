package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/ayo6706/wallet-reserve/internal/models"
	"github.com/ayo6706/wallet-reserve/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RatioPolicy is the single source of truth for reserve coverage thresholds.
// Min is the hard floor under which the system is considered insolvent-at-risk;
// Warn is the early-warning band above it.
type RatioPolicy struct {
	Min  decimal.Decimal
	Warn decimal.Decimal
}

func DefaultRatioPolicy() RatioPolicy {
	return RatioPolicy{
		Min:  decimal.RequireFromString("0.95"),
		Warn: decimal.RequireFromString("1.0"),
	}
}

// Ratio returns reserveTotal / walletTotal. A system with no issued liabilities
// is fully covered by definition, so a zero wallet total yields exactly 1.
func (p RatioPolicy) Ratio(walletTotal, reserveTotal decimal.Decimal) decimal.Decimal {
	if walletTotal.IsZero() {
		return decimal.NewFromInt(1)
	}
	return reserveTotal.DivRound(walletTotal, 8)
}

// Classify maps a ratio to a reconciliation outcome.
func (p RatioPolicy) Classify(ratio decimal.Decimal) domain.ReconciliationOutcome {
	switch {
	case ratio.LessThan(p.Min):
		return domain.ReconciliationError
	case ratio.LessThan(p.Warn):
		return domain.ReconciliationWarning
	default:
		return domain.ReconciliationSuccess
	}
}

// ReserveLedger owns reserve account balances. Every balance change is paired
// with exactly one reserve transaction row in the same atomic unit, and every
// operator-recorded movement leaves an audit entry in that unit too.
type ReserveLedger struct {
	store  repository.Store
	policy RatioPolicy
	audit  *AuditService
}

func NewReserveLedger(store repository.Store, policy RatioPolicy, audit *AuditService) *ReserveLedger {
	return &ReserveLedger{store: store, policy: policy, audit: audit}
}

// Policy exposes the configured thresholds to callers that report on them.
func (l *ReserveLedger) Policy() RatioPolicy {
	return l.policy
}

// ReserveOperationRequest describes one externally observed reserve movement,
// such as a bank deposit hitting the custodial account.
type ReserveOperationRequest struct {
	ReserveAccountID uuid.UUID
	Amount           decimal.Decimal
	OperationType    domain.ReserveOperationType
	TransactionID    *uuid.UUID
	ReferenceID      string
	Metadata         json.RawMessage
}

func (r ReserveOperationRequest) validate() error {
	if !r.OperationType.Valid() {
		return &domain.InvalidTransactionError{Reason: fmt.Sprintf("unknown reserve operation type %q", r.OperationType)}
	}
	if r.Amount.IsZero() {
		return &domain.InvalidAmountError{Reason: "amount must be non-zero"}
	}
	return nil
}

// CreateAccount registers a custodial bank account with a zero starting
// balance.
func (l *ReserveLedger) CreateAccount(ctx context.Context, bankName, accountNumber, currency string) (*models.ReserveAccount, error) {
	if bankName == "" || accountNumber == "" {
		return nil, &domain.InvalidTransactionError{Reason: "bank name and account number are required"}
	}
	if currency == "" {
		return nil, &domain.InvalidTransactionError{Reason: "currency is required"}
	}
	a := &models.ReserveAccount{
		ID:            uuid.New(),
		BankName:      bankName,
		AccountNumber: accountNumber,
		Currency:      currency,
		Balance:       decimal.Zero,
		Status:        domain.ReserveActive,
	}
	err := l.store.RunInTx(ctx, func(tx repository.TxStore) error {
		return tx.InsertReserveAccount(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAccount returns the reserve account without locking it.
func (l *ReserveLedger) GetAccount(ctx context.Context, id uuid.UUID) (*models.ReserveAccount, error) {
	return l.store.GetReserveAccount(ctx, id)
}

// RecordOperation applies one signed reserve movement in its own atomic unit.
// The amount sign carries direction: positive grows the reserve, negative
// shrinks it. The balance change, the reserve transaction row and the audit
// entry commit or abort together.
func (l *ReserveLedger) RecordOperation(ctx context.Context, req ReserveOperationRequest) (*models.ReserveTransaction, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	var recorded *models.ReserveTransaction
	err := retryConflicts(ctx, defaultMaxRetries, defaultRetryBackoff, func() error {
		return l.store.RunInTx(ctx, func(tx repository.TxStore) error {
			a, err := tx.GetReserveAccountForUpdate(ctx, req.ReserveAccountID)
			if err != nil {
				return err
			}
			prevBalance := a.Balance
			rt, err := l.recordOperationInTx(ctx, tx, a, req)
			if err != nil {
				return err
			}
			if err := l.auditOperation(ctx, tx, prevBalance, rt); err != nil {
				return err
			}
			recorded = rt
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return recorded, nil
}

// auditOperation records an operator-driven reserve edit. Corrective entries
// posted by the reconciliation engine are audited through the report row
// instead, so this is only called on the RecordOperation path.
func (l *ReserveLedger) auditOperation(ctx context.Context, tx repository.TxStore, prevBalance decimal.Decimal, rt *models.ReserveTransaction) error {
	metadata, err := json.Marshal(map[string]string{
		"reserve_transaction_id": rt.ID.String(),
		"operation_type":         string(rt.OperationType),
		"amount":                 rt.Amount.String(),
		"reference_id":           rt.ReferenceID,
	})
	if err != nil {
		return fmt.Errorf("encode reserve audit metadata: %w", err)
	}
	return l.audit.Write(ctx, tx, "reserve_account", rt.ReserveAccountID, "reserve_operation",
		prevBalance.String(), prevBalance.Add(rt.Amount).String(), metadata)
}

// recordOperationInTx mutates an already-locked reserve account and writes the
// paired reserve transaction row. Shared with the reconciliation engine so a
// corrective entry uses the exact same pairing discipline as a bank operation.
func (l *ReserveLedger) recordOperationInTx(ctx context.Context, tx repository.TxStore, a *models.ReserveAccount, req ReserveOperationRequest) (*models.ReserveTransaction, error) {
	if a.Status != domain.ReserveActive {
		return nil, fmt.Errorf("reserve account %s: %w", a.ID, domain.ErrInactiveReserve)
	}

	newBalance := a.Balance.Add(req.Amount)
	if newBalance.IsNegative() {
		return nil, &domain.InsufficientReserveError{
			Required:  req.Amount.Abs(),
			Available: a.Balance,
		}
	}
	if err := tx.UpdateReserveBalance(ctx, a.ID, newBalance); err != nil {
		return nil, err
	}
	a.Balance = newBalance

	rt := &models.ReserveTransaction{
		ID:               uuid.New(),
		ReserveAccountID: a.ID,
		TransactionID:    req.TransactionID,
		Amount:           req.Amount,
		OperationType:    req.OperationType,
		Status:           domain.ReserveTxCompleted,
		ReferenceID:      req.ReferenceID,
		Metadata:         req.Metadata,
	}
	if err := tx.InsertReserveTransaction(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

// RatioStatus is the outcome of a point-in-time coverage check.
type RatioStatus struct {
	WalletTotal  decimal.Decimal              `json:"wallet_total"`
	ReserveTotal decimal.Decimal              `json:"reserve_total"`
	Ratio        decimal.Decimal              `json:"ratio"`
	Outcome      domain.ReconciliationOutcome `json:"outcome"`
}

// CheckRatio reads both totals from one consistent snapshot and classifies the
// coverage ratio. A ratio under the hard floor also returns
// ErrReserveRatioBelowThreshold so callers can alert without inspecting the
// status. The error deliberately fires at the configured floor rather than at
// full coverage; ratios between the floor and 1 surface only through the
// warning outcome in the payload.
func (l *ReserveLedger) CheckRatio(ctx context.Context) (RatioStatus, error) {
	var status RatioStatus
	err := l.store.RunInSnapshot(ctx, func(tx repository.TxStore) error {
		walletTotal, reserveTotal, err := tx.ActiveTotals(ctx)
		if err != nil {
			return err
		}
		ratio := l.policy.Ratio(walletTotal, reserveTotal)
		status = RatioStatus{
			WalletTotal:  walletTotal,
			ReserveTotal: reserveTotal,
			Ratio:        ratio,
			Outcome:      l.policy.Classify(ratio),
		}
		return nil
	})
	if err != nil {
		return RatioStatus{}, err
	}
	if status.Outcome == domain.ReconciliationError {
		return status, fmt.Errorf("reserve ratio %s below minimum %s: %w",
			status.Ratio, l.policy.Min, domain.ErrReserveRatioBelowThreshold)
	}
	return status, nil
}
