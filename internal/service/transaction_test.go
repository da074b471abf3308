package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/ayo6706/wallet-reserve/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositCreditsWallet(t *testing.T) {
	env := newTestEnv(t)
	w := env.createWallet(t)

	tx, err := env.engine.Create(context.Background(), CreateTransactionRequest{
		Type:           domain.TxTypeDeposit,
		Amount:         decimal.RequireFromString("100"),
		Currency:       "USD",
		CreditWalletID: &w.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, tx.Status)
	requireDecimalEqual(t, "100", env.balance(t, w.ID))
}

func TestWithdrawalInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	w := env.createWallet(t)
	env.fundWallet(t, w.ID, "100")

	_, err := env.engine.Create(context.Background(), CreateTransactionRequest{
		Type:          domain.TxTypeWithdrawal,
		Amount:        decimal.RequireFromString("150"),
		Currency:      "USD",
		DebitWalletID: &w.ID,
	})
	var fundsErr *domain.InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	requireDecimalEqual(t, "150", fundsErr.Required)
	requireDecimalEqual(t, "100", fundsErr.Available)

	// The failed attempt leaves no trace: balance and the ledger are untouched.
	requireDecimalEqual(t, "100", env.balance(t, w.ID))
	require.Len(t, env.store.Transactions(), 1)
}

func TestTransferMovesFunds(t *testing.T) {
	env := newTestEnv(t)
	a := env.createWallet(t)
	b := env.createWallet(t)
	env.fundWallet(t, a.ID, "100")
	env.fundWallet(t, b.ID, "10")

	tx, err := env.engine.Create(context.Background(), CreateTransactionRequest{
		Type:           domain.TxTypeTransfer,
		Amount:         decimal.RequireFromString("40"),
		Currency:       "USD",
		DebitWalletID:  &a.ID,
		CreditWalletID: &b.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, tx.Status)

	requireDecimalEqual(t, "60", env.balance(t, a.ID))
	requireDecimalEqual(t, "50", env.balance(t, b.ID))
}

func TestTransferConservesTotal(t *testing.T) {
	env := newTestEnv(t)
	a := env.createWallet(t)
	b := env.createWallet(t)
	c := env.createWallet(t)
	env.fundWallet(t, a.ID, "300")

	transfers := []struct {
		from, to uuid.UUID
		amount   string
	}{
		{a.ID, b.ID, "120"},
		{b.ID, c.ID, "50"},
		{c.ID, a.ID, "25"},
		{a.ID, c.ID, "5"},
	}
	for _, tr := range transfers {
		from, to := tr.from, tr.to
		_, err := env.engine.Create(context.Background(), CreateTransactionRequest{
			Type:           domain.TxTypeTransfer,
			Amount:         decimal.RequireFromString(tr.amount),
			Currency:       "USD",
			DebitWalletID:  &from,
			CreditWalletID: &to,
		})
		require.NoError(t, err)
	}

	total := env.balance(t, a.ID).Add(env.balance(t, b.ID)).Add(env.balance(t, c.ID))
	requireDecimalEqual(t, "300", total)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	w := env.createWallet(t)

	cases := []struct {
		name string
		req  CreateTransactionRequest
		want any
	}{
		{
			name: "zero amount",
			req: CreateTransactionRequest{
				Type: domain.TxTypeDeposit, Amount: decimal.Zero,
				Currency: "USD", CreditWalletID: &w.ID,
			},
			want: new(*domain.InvalidAmountError),
		},
		{
			name: "negative amount",
			req: CreateTransactionRequest{
				Type: domain.TxTypeDeposit, Amount: decimal.RequireFromString("-5"),
				Currency: "USD", CreditWalletID: &w.ID,
			},
			want: new(*domain.InvalidAmountError),
		},
		{
			name: "no wallets",
			req: CreateTransactionRequest{
				Type: domain.TxTypeDeposit, Amount: decimal.RequireFromString("5"),
				Currency: "USD",
			},
			want: new(*domain.InvalidTransactionError),
		},
		{
			name: "same wallet both sides",
			req: CreateTransactionRequest{
				Type: domain.TxTypeTransfer, Amount: decimal.RequireFromString("5"),
				Currency: "USD", DebitWalletID: &w.ID, CreditWalletID: &w.ID,
			},
			want: new(*domain.InvalidTransactionError),
		},
		{
			name: "unknown type",
			req: CreateTransactionRequest{
				Type: "chargeback", Amount: decimal.RequireFromString("5"),
				Currency: "USD", CreditWalletID: &w.ID,
			},
			want: new(*domain.InvalidTransactionError),
		},
		{
			name: "missing currency",
			req: CreateTransactionRequest{
				Type: domain.TxTypeDeposit, Amount: decimal.RequireFromString("5"),
				CreditWalletID: &w.ID,
			},
			want: new(*domain.InvalidTransactionError),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.engine.Create(context.Background(), tc.req)
			require.Error(t, err)
			require.ErrorAs(t, err, tc.want)
		})
	}
}

func TestCreateUnknownWallet(t *testing.T) {
	env := newTestEnv(t)
	missing := uuid.New()

	_, err := env.engine.Create(context.Background(), CreateTransactionRequest{
		Type:           domain.TxTypeDeposit,
		Amount:         decimal.RequireFromString("5"),
		Currency:       "USD",
		CreditWalletID: &missing,
	})
	var txErr *domain.InvalidTransactionError
	require.ErrorAs(t, err, &txErr)
}

func TestReversalRestoresBalances(t *testing.T) {
	env := newTestEnv(t)
	a := env.createWallet(t)
	b := env.createWallet(t)
	env.fundWallet(t, a.ID, "100")

	orig, err := env.engine.Create(context.Background(), CreateTransactionRequest{
		Type:           domain.TxTypeTransfer,
		Amount:         decimal.RequireFromString("40"),
		Currency:       "USD",
		DebitWalletID:  &a.ID,
		CreditWalletID: &b.ID,
	})
	require.NoError(t, err)

	reversal, err := env.engine.Reverse(context.Background(), orig.ID, "customer dispute")
	require.NoError(t, err)

	assert.Equal(t, domain.TxTypeRefund, reversal.Type)
	assert.Equal(t, domain.TxStatusCompleted, reversal.Status)
	assert.Equal(t, "reversal_"+orig.ID.String(), reversal.ReferenceID)
	require.NotNil(t, reversal.DebitWalletID)
	require.NotNil(t, reversal.CreditWalletID)
	assert.Equal(t, b.ID, *reversal.DebitWalletID)
	assert.Equal(t, a.ID, *reversal.CreditWalletID)

	var md map[string]any
	require.NoError(t, json.Unmarshal(reversal.Metadata, &md))
	assert.Equal(t, "customer dispute", md["reverse_reason"])

	updated, err := env.engine.Get(context.Background(), orig.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusReversed, updated.Status)

	requireDecimalEqual(t, "100", env.balance(t, a.ID))
	requireDecimalEqual(t, "0", env.balance(t, b.ID))

	// Funding deposit, transfer, reversal. Nothing else.
	require.Len(t, env.store.Transactions(), 3)
}

func TestReverseRequiresCompleted(t *testing.T) {
	env := newTestEnv(t)
	a := env.createWallet(t)
	b := env.createWallet(t)
	env.fundWallet(t, a.ID, "100")

	orig, err := env.engine.Create(context.Background(), CreateTransactionRequest{
		Type:           domain.TxTypeTransfer,
		Amount:         decimal.RequireFromString("40"),
		Currency:       "USD",
		DebitWalletID:  &a.ID,
		CreditWalletID: &b.ID,
	})
	require.NoError(t, err)

	_, err = env.engine.Reverse(context.Background(), orig.ID, "first")
	require.NoError(t, err)

	// A reversed transaction is terminal.
	_, err = env.engine.Reverse(context.Background(), orig.ID, "second")
	require.ErrorIs(t, err, domain.ErrInvalidState)
	requireDecimalEqual(t, "100", env.balance(t, a.ID))
}

func TestReverseUnknownTransaction(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Reverse(context.Background(), uuid.New(), "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// creditFailStore fails the balance write on one specific wallet, simulating a
// mid-unit store fault on the credit side.
type creditFailStore struct {
	*repository.MemoryStore
	failWalletID uuid.UUID
}

func (s *creditFailStore) RunInTx(ctx context.Context, fn func(tx repository.TxStore) error) error {
	return s.MemoryStore.RunInTx(ctx, func(tx repository.TxStore) error {
		return fn(&creditFailTx{TxStore: tx, failWalletID: s.failWalletID})
	})
}

type creditFailTx struct {
	repository.TxStore
	failWalletID uuid.UUID
}

func (t *creditFailTx) UpdateWalletBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	if id == t.failWalletID {
		return errors.New("disk full")
	}
	return t.TxStore.UpdateWalletBalance(ctx, id, balance)
}

func TestTransferRollsBackWhenCreditFails(t *testing.T) {
	mem := repository.NewMemoryStore()
	wallets := NewWalletLedger(mem)
	ctx := context.Background()

	a, err := wallets.CreateWallet(ctx, uuid.New(), "USD")
	require.NoError(t, err)
	b, err := wallets.CreateWallet(ctx, uuid.New(), "USD")
	require.NoError(t, err)

	_, err = NewTransactionEngine(mem, wallets).Create(ctx, CreateTransactionRequest{
		Type:           domain.TxTypeDeposit,
		Amount:         decimal.RequireFromString("100"),
		Currency:       "USD",
		CreditWalletID: &a.ID,
	})
	require.NoError(t, err)

	faulty := &creditFailStore{MemoryStore: mem, failWalletID: b.ID}
	engine := NewTransactionEngine(faulty, NewWalletLedger(faulty))

	_, err = engine.Create(ctx, CreateTransactionRequest{
		Type:           domain.TxTypeTransfer,
		Amount:         decimal.RequireFromString("40"),
		Currency:       "USD",
		DebitWalletID:  &a.ID,
		CreditWalletID: &b.ID,
	})
	require.Error(t, err)

	// The debit that already happened inside the unit must be rolled back,
	// and no transaction row may survive.
	walletA, err := mem.GetWallet(ctx, a.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "100", walletA.Balance)
	walletB, err := mem.GetWallet(ctx, b.ID)
	require.NoError(t, err)
	requireDecimalEqual(t, "0", walletB.Balance)
	require.Len(t, mem.Transactions(), 1)
}

// conflictStore fails the first n units with a concurrency conflict.
type conflictStore struct {
	*repository.MemoryStore
	failures int
	attempts int
}

func (s *conflictStore) RunInTx(ctx context.Context, fn func(tx repository.TxStore) error) error {
	s.attempts++
	if s.attempts <= s.failures {
		return domain.ErrConcurrencyConflict
	}
	return s.MemoryStore.RunInTx(ctx, fn)
}

func (s *conflictStore) RunInSnapshot(ctx context.Context, fn func(tx repository.TxStore) error) error {
	return s.RunInTx(ctx, fn)
}

func TestCreateRetriesOnConcurrencyConflict(t *testing.T) {
	mem := repository.NewMemoryStore()
	wallets := NewWalletLedger(mem)
	ctx := context.Background()

	w, err := wallets.CreateWallet(ctx, uuid.New(), "USD")
	require.NoError(t, err)

	store := &conflictStore{MemoryStore: mem, failures: 2}
	engine := NewTransactionEngine(store, NewWalletLedger(store)).
		WithRetry(3, time.Millisecond)

	tx, err := engine.Create(ctx, CreateTransactionRequest{
		Type:           domain.TxTypeDeposit,
		Amount:         decimal.RequireFromString("10"),
		Currency:       "USD",
		CreditWalletID: &w.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, tx.Status)
	assert.Equal(t, 3, store.attempts)
}

func TestCreateGivesUpAfterRetryBudget(t *testing.T) {
	mem := repository.NewMemoryStore()
	wallets := NewWalletLedger(mem)
	ctx := context.Background()

	w, err := wallets.CreateWallet(ctx, uuid.New(), "USD")
	require.NoError(t, err)

	store := &conflictStore{MemoryStore: mem, failures: 10}
	engine := NewTransactionEngine(store, NewWalletLedger(store)).
		WithRetry(2, time.Millisecond)

	_, err = engine.Create(ctx, CreateTransactionRequest{
		Type:           domain.TxTypeDeposit,
		Amount:         decimal.RequireFromString("10"),
		Currency:       "USD",
		CreditWalletID: &w.ID,
	})
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, 3, store.attempts)
}
