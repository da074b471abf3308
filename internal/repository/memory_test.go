package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/ayo6706/wallet-reserve/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWallet(balance string) *models.Wallet {
	return &models.Wallet{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Currency: "USD",
		Balance:  decimal.RequireFromString(balance),
		Status:   domain.WalletActive,
	}
}

func TestMemoryStoreCommitsOnSuccess(t *testing.T) {
	store := NewMemoryStore()
	w := newWallet("10")

	err := store.RunInTx(context.Background(), func(tx TxStore) error {
		return tx.InsertWallet(context.Background(), w)
	})
	require.NoError(t, err)

	got, err := store.GetWallet(context.Background(), w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(w.Balance))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestMemoryStoreRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	w := newWallet("10")
	boom := errors.New("boom")

	err := store.RunInTx(context.Background(), func(tx TxStore) error {
		if err := tx.InsertWallet(context.Background(), w); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetWallet(context.Background(), w.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStorePartialUpdateRollsBack(t *testing.T) {
	store := NewMemoryStore()
	w := newWallet("100")
	require.NoError(t, store.RunInTx(context.Background(), func(tx TxStore) error {
		return tx.InsertWallet(context.Background(), w)
	}))

	boom := errors.New("boom")
	err := store.RunInTx(context.Background(), func(tx TxStore) error {
		if err := tx.UpdateWalletBalance(context.Background(), w.ID, decimal.Zero); err != nil {
			return err
		}
		// The write above must not leak out of the failed unit.
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetWallet(context.Background(), w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("100")))
}

func TestMemoryStoreDuplicateInsertFails(t *testing.T) {
	store := NewMemoryStore()
	w := newWallet("0")

	require.NoError(t, store.RunInTx(context.Background(), func(tx TxStore) error {
		return tx.InsertWallet(context.Background(), w)
	}))
	err := store.RunInTx(context.Background(), func(tx TxStore) error {
		return tx.InsertWallet(context.Background(), w)
	})
	require.ErrorIs(t, err, domain.ErrStore)
}

func TestActiveTotalsSkipInactiveBalances(t *testing.T) {
	store := NewMemoryStore()
	active := newWallet("100")
	frozen := newWallet("40")

	require.NoError(t, store.RunInTx(context.Background(), func(tx TxStore) error {
		if err := tx.InsertWallet(context.Background(), active); err != nil {
			return err
		}
		if err := tx.InsertWallet(context.Background(), frozen); err != nil {
			return err
		}
		if err := tx.UpdateWalletStatus(context.Background(), frozen.ID, domain.WalletFrozen); err != nil {
			return err
		}
		if err := tx.InsertReserveAccount(context.Background(), &models.ReserveAccount{
			ID: uuid.New(), BankName: "b", AccountNumber: "1", Currency: "USD",
			Balance: decimal.RequireFromString("70"), Status: domain.ReserveActive,
		}); err != nil {
			return err
		}
		return tx.InsertReserveAccount(context.Background(), &models.ReserveAccount{
			ID: uuid.New(), BankName: "b", AccountNumber: "2", Currency: "USD",
			Balance: decimal.RequireFromString("30"), Status: domain.ReserveClosed,
		})
	}))

	walletTotal, reserveTotal, err := store.ActiveTotals(context.Background())
	require.NoError(t, err)
	assert.True(t, walletTotal.Equal(decimal.RequireFromString("100")), "got %s", walletTotal)
	assert.True(t, reserveTotal.Equal(decimal.RequireFromString("70")), "got %s", reserveTotal)
}

func TestEarliestActiveReserveAccountFollowsInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	first := uuid.New()
	second := uuid.New()

	require.NoError(t, store.RunInTx(context.Background(), func(tx TxStore) error {
		if err := tx.InsertReserveAccount(context.Background(), &models.ReserveAccount{
			ID: first, BankName: "b", AccountNumber: "1", Currency: "USD",
			Balance: decimal.Zero, Status: domain.ReserveActive,
		}); err != nil {
			return err
		}
		return tx.InsertReserveAccount(context.Background(), &models.ReserveAccount{
			ID: second, BankName: "b", AccountNumber: "2", Currency: "USD",
			Balance: decimal.Zero, Status: domain.ReserveActive,
		})
	}))

	err := store.RunInTx(context.Background(), func(tx TxStore) error {
		got, err := tx.EarliestActiveReserveAccountForUpdate(context.Background())
		if err != nil {
			return err
		}
		assert.Equal(t, first, got.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestEarliestActiveReserveAccountNoneActive(t *testing.T) {
	store := NewMemoryStore()

	err := store.RunInTx(context.Background(), func(tx TxStore) error {
		_, err := tx.EarliestActiveReserveAccountForUpdate(context.Background())
		return err
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransactionsReturnedInInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	ids := make([]uuid.UUID, 0, 3)

	require.NoError(t, store.RunInTx(context.Background(), func(tx TxStore) error {
		for i := 0; i < 3; i++ {
			tr := &models.Transaction{
				ID:       uuid.New(),
				Amount:   decimal.RequireFromString("1"),
				Currency: "USD",
				Type:     domain.TxTypeDeposit,
				Status:   domain.TxStatusPending,
			}
			if err := tx.InsertTransaction(context.Background(), tr); err != nil {
				return err
			}
			ids = append(ids, tr.ID)
		}
		return nil
	}))

	got := store.Transactions()
	require.Len(t, got, 3)
	for i, tr := range got {
		assert.Equal(t, ids[i], tr.ID)
	}
}
