package repository

import (
	"context"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/ayo6706/wallet-reserve/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reader is the non-locking read surface shared by the pool-level store and
// an open transaction.
type Reader interface {
	GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	GetReserveAccount(ctx context.Context, id uuid.UUID) (*models.ReserveAccount, error)

	// ActiveTotals returns the sum of active wallet balances and the sum of
	// active reserve balances. Inside a snapshot transaction both sums come
	// from the same consistent read.
	ActiveTotals(ctx context.Context) (walletTotal, reserveTotal decimal.Decimal, err error)
}

// TxStore is the mutation surface available inside one atomic unit of work.
// ForUpdate reads take a row-level exclusive lock held until commit or abort.
type TxStore interface {
	Reader

	InsertWallet(ctx context.Context, w *models.Wallet) error
	GetWalletForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	UpdateWalletBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	UpdateWalletStatus(ctx context.Context, id uuid.UUID, status domain.WalletStatus) error

	InsertTransaction(ctx context.Context, t *models.Transaction) error
	GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error

	InsertReserveAccount(ctx context.Context, a *models.ReserveAccount) error
	GetReserveAccountForUpdate(ctx context.Context, id uuid.UUID) (*models.ReserveAccount, error)
	EarliestActiveReserveAccountForUpdate(ctx context.Context) (*models.ReserveAccount, error)
	UpdateReserveBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	InsertReserveTransaction(ctx context.Context, t *models.ReserveTransaction) error

	InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error
}

// Store scopes atomic units of work over the durable store. Every mutation
// of wallet or reserve state goes through RunInTx; RunInSnapshot additionally
// guarantees that all reads observe one consistent snapshot.
type Store interface {
	Reader

	RunInTx(ctx context.Context, fn func(tx TxStore) error) error
	RunInSnapshot(ctx context.Context, fn func(tx TxStore) error) error
}
