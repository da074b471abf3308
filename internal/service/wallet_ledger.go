package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/ayo6706/wallet-reserve/internal/models"
	"github.com/ayo6706/wallet-reserve/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletLedger owns wallet balance and status transitions. It is a primitive:
// ApplyDelta runs inside the caller's atomic unit and never commits on its
// own, and it creates no transaction record. The transaction engine is the
// only caller allowed to move balances.
type WalletLedger struct {
	store repository.Store
}

func NewWalletLedger(store repository.Store) *WalletLedger {
	return &WalletLedger{store: store}
}

// ApplyDelta loads the wallet under an exclusive row lock, re-validates the
// invariants and persists the new balance. The unlocked CanDebit/CanCredit
// checks are advisory only; this is the check that counts.
func (l *WalletLedger) ApplyDelta(ctx context.Context, tx repository.TxStore, walletID uuid.UUID, delta decimal.Decimal) (*models.Wallet, error) {
	w, err := tx.GetWalletForUpdate(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w.Status != domain.WalletActive {
		return nil, fmt.Errorf("wallet %s: %w", walletID, domain.ErrInactiveWallet)
	}

	newBalance := w.Balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, &domain.InsufficientFundsError{
			Required:  delta.Abs(),
			Available: w.Balance,
		}
	}

	if err := tx.UpdateWalletBalance(ctx, walletID, newBalance); err != nil {
		return nil, err
	}
	w.Balance = newBalance
	return w, nil
}

// CanDebit is a pure pre-validation check used before entering the atomic
// unit. It does not replace the locked check inside ApplyDelta.
func (l *WalletLedger) CanDebit(w *models.Wallet, amount decimal.Decimal) error {
	if w.Status != domain.WalletActive {
		return fmt.Errorf("wallet %s: %w", w.ID, domain.ErrInactiveWallet)
	}
	if !amount.IsPositive() {
		return &domain.InvalidAmountError{Reason: "amount must be positive"}
	}
	if w.Balance.LessThan(amount) {
		return &domain.InsufficientFundsError{Required: amount, Available: w.Balance}
	}
	return nil
}

// CanCredit is the credit-side pre-validation check.
func (l *WalletLedger) CanCredit(w *models.Wallet, amount decimal.Decimal) error {
	if w.Status != domain.WalletActive {
		return fmt.Errorf("wallet %s: %w", w.ID, domain.ErrInactiveWallet)
	}
	if !amount.IsPositive() {
		return &domain.InvalidAmountError{Reason: "amount must be positive"}
	}
	return nil
}

// Freeze transitions an active wallet to frozen.
func (l *WalletLedger) Freeze(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	var frozen *models.Wallet
	err := l.store.RunInTx(ctx, func(tx repository.TxStore) error {
		w, err := tx.GetWalletForUpdate(ctx, walletID)
		if err != nil {
			return err
		}
		if w.Status != domain.WalletActive {
			return fmt.Errorf("wallet %s: %w", walletID, domain.ErrInactiveWallet)
		}
		if err := tx.UpdateWalletStatus(ctx, walletID, domain.WalletFrozen); err != nil {
			return err
		}
		w.Status = domain.WalletFrozen
		frozen = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return frozen, nil
}

// CreateWallet opens a zero-balance active wallet for a user. Wallets are
// never deleted afterwards; status transitions take their place.
func (l *WalletLedger) CreateWallet(ctx context.Context, userID uuid.UUID, currency string) (*models.Wallet, error) {
	if currency == "" {
		return nil, &domain.InvalidTransactionError{Reason: "currency is required"}
	}
	w := &models.Wallet{
		ID:       uuid.New(),
		UserID:   userID,
		Currency: currency,
		Balance:  decimal.Zero,
		Status:   domain.WalletActive,
	}
	err := l.store.RunInTx(ctx, func(tx repository.TxStore) error {
		return tx.InsertWallet(ctx, w)
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// GetWallet returns the wallet without locking it.
func (l *WalletLedger) GetWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	return l.store.GetWallet(ctx, walletID)
}

// GetBalance returns the current balance without locking the wallet.
func (l *WalletLedger) GetBalance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	w, err := l.store.GetWallet(ctx, walletID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}
