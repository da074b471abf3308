package service

import (
	"context"
	"testing"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/ayo6706/wallet-reserve/internal/models"
	"github.com/ayo6706/wallet-reserve/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store   *repository.MemoryStore
	wallets *WalletLedger
	engine  *TransactionEngine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	wallets := NewWalletLedger(store)
	return &testEnv{
		store:   store,
		wallets: wallets,
		engine:  NewTransactionEngine(store, wallets),
	}
}

func (e *testEnv) createWallet(t *testing.T) *models.Wallet {
	t.Helper()
	w, err := e.wallets.CreateWallet(context.Background(), uuid.New(), "USD")
	require.NoError(t, err)
	return w
}

func (e *testEnv) fundWallet(t *testing.T, walletID uuid.UUID, amount string) {
	t.Helper()
	_, err := e.engine.Create(context.Background(), CreateTransactionRequest{
		Type:           domain.TxTypeDeposit,
		Amount:         decimal.RequireFromString(amount),
		Currency:       "USD",
		CreditWalletID: &walletID,
	})
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T, walletID uuid.UUID) decimal.Decimal {
	t.Helper()
	b, err := e.wallets.GetBalance(context.Background(), walletID)
	require.NoError(t, err)
	return b
}

func requireDecimalEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got),
		"expected %s, got %s", want, got)
}
