package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/ayo6706/wallet-reserve/internal/models"
	"github.com/ayo6706/wallet-reserve/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionEngine creates and reverses double-entry transactions. It is the
// only caller of WalletLedger.ApplyDelta: every balance movement it applies is
// paired with a durable transaction record inside one atomic unit.
type TransactionEngine struct {
	store      repository.Store
	wallets    *WalletLedger
	maxRetries int
	backoff    time.Duration
}

func NewTransactionEngine(store repository.Store, wallets *WalletLedger) *TransactionEngine {
	return &TransactionEngine{
		store:      store,
		wallets:    wallets,
		maxRetries: defaultMaxRetries,
		backoff:    defaultRetryBackoff,
	}
}

// WithRetry tunes the bounded retry applied to concurrency conflicts.
func (e *TransactionEngine) WithRetry(maxRetries int, backoff time.Duration) *TransactionEngine {
	if maxRetries >= 0 {
		e.maxRetries = maxRetries
	}
	if backoff > 0 {
		e.backoff = backoff
	}
	return e
}

// CreateTransactionRequest carries everything needed to post a transaction.
type CreateTransactionRequest struct {
	Type           domain.TransactionType
	Amount         decimal.Decimal
	Currency       string
	DebitWalletID  *uuid.UUID
	CreditWalletID *uuid.UUID
	ReferenceID    string
	Metadata       json.RawMessage
}

func (r CreateTransactionRequest) validate() error {
	if !r.Type.Valid() {
		return &domain.InvalidTransactionError{Reason: fmt.Sprintf("unknown transaction type %q", r.Type)}
	}
	if !r.Amount.IsPositive() {
		return &domain.InvalidAmountError{Reason: "amount must be positive"}
	}
	if r.Currency == "" {
		return &domain.InvalidTransactionError{Reason: "currency is required"}
	}
	if r.DebitWalletID == nil && r.CreditWalletID == nil {
		return &domain.InvalidTransactionError{Reason: "either debit or credit wallet must be specified"}
	}
	if r.DebitWalletID != nil && r.CreditWalletID != nil && *r.DebitWalletID == *r.CreditWalletID {
		return &domain.InvalidTransactionError{Reason: "debit and credit wallets cannot be the same"}
	}
	return nil
}

// Create validates the request, then runs one atomic unit that inserts the
// transaction row, applies the debit and credit deltas under row locks and
// marks the row completed. Any failure rolls the whole unit back; no partial
// application or dangling pending row survives.
func (e *TransactionEngine) Create(ctx context.Context, req CreateTransactionRequest) (*models.Transaction, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	// Advisory pre-checks outside the unit. The locked checks inside the
	// unit are authoritative.
	if req.DebitWalletID != nil {
		w, err := e.store.GetWallet(ctx, *req.DebitWalletID)
		if err != nil {
			return nil, walletLookupError("debit", err)
		}
		if err := e.wallets.CanDebit(w, req.Amount); err != nil {
			return nil, err
		}
	}
	if req.CreditWalletID != nil {
		w, err := e.store.GetWallet(ctx, *req.CreditWalletID)
		if err != nil {
			return nil, walletLookupError("credit", err)
		}
		if err := e.wallets.CanCredit(w, req.Amount); err != nil {
			return nil, err
		}
	}

	var created *models.Transaction
	err := e.runWithRetry(ctx, func(tx repository.TxStore) error {
		t, err := e.createInTx(ctx, tx, req)
		if err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// createInTx posts a transaction inside an already-open unit of work. Shared
// by Create and Reverse so a reversal is a fully validated create in the same
// atomic unit that retires the original.
func (e *TransactionEngine) createInTx(ctx context.Context, tx repository.TxStore, req CreateTransactionRequest) (*models.Transaction, error) {
	t := &models.Transaction{
		ID:             uuid.New(),
		DebitWalletID:  req.DebitWalletID,
		CreditWalletID: req.CreditWalletID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Type:           req.Type,
		Status:         domain.TxStatusPending,
		ReferenceID:    req.ReferenceID,
		Metadata:       req.Metadata,
	}
	if err := tx.InsertTransaction(ctx, t); err != nil {
		return nil, err
	}
	if err := transitionStatus(ctx, tx, t, domain.TxStatusProcessing); err != nil {
		return nil, err
	}

	// Acquire exclusive locks on every wallet the unit will mutate before
	// mutating any of them, in ascending id order so two transfers touching
	// the same pair can never deadlock.
	locked, err := lockWallets(ctx, tx, req.DebitWalletID, req.CreditWalletID)
	if err != nil {
		return nil, err
	}

	if req.DebitWalletID != nil {
		if err := e.wallets.CanDebit(locked[*req.DebitWalletID], req.Amount); err != nil {
			return nil, err
		}
		if _, err := e.wallets.ApplyDelta(ctx, tx, *req.DebitWalletID, req.Amount.Neg()); err != nil {
			return nil, err
		}
	}
	if req.CreditWalletID != nil {
		if err := e.wallets.CanCredit(locked[*req.CreditWalletID], req.Amount); err != nil {
			return nil, err
		}
		if _, err := e.wallets.ApplyDelta(ctx, tx, *req.CreditWalletID, req.Amount); err != nil {
			return nil, err
		}
	}

	if err := transitionStatus(ctx, tx, t, domain.TxStatusCompleted); err != nil {
		return nil, err
	}
	return t, nil
}

// Reverse retires a completed transaction by posting a new refund transaction
// with the wallets swapped, then transitioning the original to reversed. Both
// steps share one atomic unit, so a half-reversed state is never observable.
func (e *TransactionEngine) Reverse(ctx context.Context, transactionID uuid.UUID, reason string) (*models.Transaction, error) {
	var reversal *models.Transaction
	err := e.runWithRetry(ctx, func(tx repository.TxStore) error {
		orig, err := tx.GetTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if orig.Status != domain.TxStatusCompleted {
			return fmt.Errorf("transaction %s is %s, only completed transactions can be reversed: %w",
				orig.ID, orig.Status, domain.ErrInvalidState)
		}

		metadata, err := reversalMetadata(orig.Metadata, reason)
		if err != nil {
			return err
		}

		req := CreateTransactionRequest{
			Type:           domain.TxTypeRefund,
			Amount:         orig.Amount,
			Currency:       orig.Currency,
			DebitWalletID:  orig.CreditWalletID,
			CreditWalletID: orig.DebitWalletID,
			ReferenceID:    "reversal_" + orig.ID.String(),
			Metadata:       metadata,
		}
		if err := req.validate(); err != nil {
			return err
		}
		rev, err := e.createInTx(ctx, tx, req)
		if err != nil {
			return err
		}
		if err := transitionStatus(ctx, tx, orig, domain.TxStatusReversed); err != nil {
			return err
		}
		reversal = rev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reversal, nil
}

// Get returns a transaction record without locking it.
func (e *TransactionEngine) Get(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error) {
	return e.store.GetTransaction(ctx, transactionID)
}

func (e *TransactionEngine) runWithRetry(ctx context.Context, fn func(tx repository.TxStore) error) error {
	return retryConflicts(ctx, e.maxRetries, e.backoff, func() error {
		return e.store.RunInTx(ctx, fn)
	})
}

func lockWallets(ctx context.Context, tx repository.TxStore, ids ...*uuid.UUID) (map[uuid.UUID]*models.Wallet, error) {
	order := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != nil {
			order = append(order, *id)
		}
	}
	sort.Slice(order, func(i, j int) bool {
		return order[i].String() < order[j].String()
	})

	locked := make(map[uuid.UUID]*models.Wallet, len(order))
	for _, id := range order {
		w, err := tx.GetWalletForUpdate(ctx, id)
		if err != nil {
			return nil, walletLookupError("referenced", err)
		}
		locked[id] = w
	}
	return locked, nil
}

func walletLookupError(side string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.InvalidTransactionError{Reason: side + " wallet not found"}
	}
	return err
}

func transitionStatus(ctx context.Context, tx repository.TxStore, t *models.Transaction, next domain.TransactionStatus) error {
	if !t.Status.CanTransition(next) {
		return fmt.Errorf("transaction %s: %s -> %s: %w", t.ID, t.Status, next, domain.ErrInvalidState)
	}
	if err := tx.UpdateTransactionStatus(ctx, t.ID, next); err != nil {
		return err
	}
	t.Status = next
	return nil
}

func reversalMetadata(original json.RawMessage, reason string) (json.RawMessage, error) {
	merged := map[string]any{}
	if len(original) > 0 {
		if err := json.Unmarshal(original, &merged); err != nil {
			merged = map[string]any{}
		}
	}
	if reason != "" {
		merged["reverse_reason"] = reason
	}
	if len(merged) == 0 {
		return nil, nil
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode reversal metadata: %w", err)
	}
	return out, nil
}
