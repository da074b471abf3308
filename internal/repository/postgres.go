package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/ayo6706/wallet-reserve/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore implements Store on a pgx connection pool. Row locks are
// taken with SELECT ... FOR UPDATE and snapshot reads run under REPEATABLE
// READ so wallet and reserve totals come from a single consistent view.
type PostgresStore struct {
	pool *pgxpool.Pool
	pgReader
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, pgReader: pgReader{q: pool}}
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx TxStore) error) error {
	return s.runInTx(ctx, pgx.TxOptions{}, fn)
}

func (s *PostgresStore) RunInSnapshot(ctx context.Context, fn func(tx TxStore) error) error {
	return s.runInTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, fn)
}

func (s *PostgresStore) runInTx(ctx context.Context, opts pgx.TxOptions, fn func(tx TxStore) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return mapPgError(err, "begin transaction")
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{pgReader: pgReader{q: tx}, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err, "commit transaction")
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pgReader struct {
	q querier
}

const walletColumns = `id, user_id, currency, balance::text, status, created_at, updated_at`

func (r pgReader) GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	row := r.q.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	return scanWallet(row, "get wallet")
}

const transactionColumns = `id, debit_wallet_id, credit_wallet_id, amount::text, currency, type, status,
	COALESCE(reference_id, ''), metadata, created_at, updated_at`

func (r pgReader) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := r.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row, "get transaction")
}

const reserveAccountColumns = `id, bank_name, account_number, currency, balance::text, status, created_at, updated_at`

func (r pgReader) GetReserveAccount(ctx context.Context, id uuid.UUID) (*models.ReserveAccount, error) {
	row := r.q.QueryRow(ctx, `SELECT `+reserveAccountColumns+` FROM reserve_accounts WHERE id = $1`, id)
	return scanReserveAccount(row, "get reserve account")
}

func (r pgReader) ActiveTotals(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	const query = `
		WITH wallet_total AS (
			SELECT COALESCE(SUM(balance), 0) AS total FROM wallets WHERE status = 'active'
		),
		reserve_total AS (
			SELECT COALESCE(SUM(balance), 0) AS total FROM reserve_accounts WHERE status = 'active'
		)
		SELECT w.total::text, r.total::text
		FROM wallet_total w CROSS JOIN reserve_total r`

	var walletStr, reserveStr string
	if err := r.q.QueryRow(ctx, query).Scan(&walletStr, &reserveStr); err != nil {
		return decimal.Zero, decimal.Zero, mapPgError(err, "sum active totals")
	}
	walletTotal, err := decimal.NewFromString(walletStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse wallet total: %v: %w", err, domain.ErrStore)
	}
	reserveTotal, err := decimal.NewFromString(reserveStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse reserve total: %v: %w", err, domain.ErrStore)
	}
	return walletTotal, reserveTotal, nil
}

type pgTx struct {
	pgReader
	tx pgx.Tx
}

func (t *pgTx) InsertWallet(ctx context.Context, w *models.Wallet) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO wallets (id, user_id, currency, balance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at`,
		w.ID, w.UserID, w.Currency, w.Balance.String(), string(w.Status),
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return mapPgError(err, "insert wallet")
	}
	return nil
}

func (t *pgTx) GetWalletForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id)
	return scanWallet(row, "lock wallet")
}

func (t *pgTx) UpdateWalletBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`,
		balance.String(), id)
	if err != nil {
		return mapPgError(err, "update wallet balance")
	}
	return requireOneRow(tag.RowsAffected(), "update wallet balance")
}

func (t *pgTx) UpdateWalletStatus(ctx context.Context, id uuid.UUID, status domain.WalletStatus) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE wallets SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return mapPgError(err, "update wallet status")
	}
	return requireOneRow(tag.RowsAffected(), "update wallet status")
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr *models.Transaction) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO transactions (id, debit_wallet_id, credit_wallet_id, amount, currency, type, status,
			reference_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, NOW(), NOW())
		RETURNING created_at, updated_at`,
		tr.ID, tr.DebitWalletID, tr.CreditWalletID, tr.Amount.String(), tr.Currency,
		string(tr.Type), string(tr.Status), tr.ReferenceID, []byte(tr.Metadata),
	).Scan(&tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return mapPgError(err, "insert transaction")
	}
	return nil
}

func (t *pgTx) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
	return scanTransaction(row, "lock transaction")
}

func (t *pgTx) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return mapPgError(err, "update transaction status")
	}
	return requireOneRow(tag.RowsAffected(), "update transaction status")
}

func (t *pgTx) InsertReserveAccount(ctx context.Context, a *models.ReserveAccount) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO reserve_accounts (id, bank_name, account_number, currency, balance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`,
		a.ID, a.BankName, a.AccountNumber, a.Currency, a.Balance.String(), string(a.Status),
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return mapPgError(err, "insert reserve account")
	}
	return nil
}

func (t *pgTx) GetReserveAccountForUpdate(ctx context.Context, id uuid.UUID) (*models.ReserveAccount, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+reserveAccountColumns+` FROM reserve_accounts WHERE id = $1 FOR UPDATE`, id)
	return scanReserveAccount(row, "lock reserve account")
}

func (t *pgTx) EarliestActiveReserveAccountForUpdate(ctx context.Context) (*models.ReserveAccount, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+reserveAccountColumns+` FROM reserve_accounts
		WHERE status = 'active'
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE`)
	return scanReserveAccount(row, "lock earliest reserve account")
}

func (t *pgTx) UpdateReserveBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE reserve_accounts SET balance = $1, updated_at = NOW() WHERE id = $2`,
		balance.String(), id)
	if err != nil {
		return mapPgError(err, "update reserve balance")
	}
	return requireOneRow(tag.RowsAffected(), "update reserve balance")
}

func (t *pgTx) InsertReserveTransaction(ctx context.Context, tr *models.ReserveTransaction) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO reserve_transactions (id, reserve_account_id, transaction_id, amount, operation_type,
			status, reference_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NOW(), NOW())
		RETURNING created_at, updated_at`,
		tr.ID, tr.ReserveAccountID, tr.TransactionID, tr.Amount.String(), string(tr.OperationType),
		string(tr.Status), tr.ReferenceID, []byte(tr.Metadata),
	).Scan(&tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return mapPgError(err, "insert reserve transaction")
	}
	return nil
}

func (t *pgTx) InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO audit_logs (entity_type, entity_id, action, prev_state, next_state, metadata, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NOW())`,
		e.EntityType, e.EntityID, e.Action, e.PrevState, e.NextState, []byte(e.Metadata))
	if err != nil {
		return mapPgError(err, "insert audit entry")
	}
	return nil
}

func scanWallet(row pgx.Row, what string) (*models.Wallet, error) {
	var (
		w          models.Wallet
		balanceStr string
		status     string
	)
	if err := row.Scan(&w.ID, &w.UserID, &w.Currency, &balanceStr, &status, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, mapPgError(err, what)
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("%s: parse balance: %v: %w", what, err, domain.ErrStore)
	}
	w.Balance = balance
	w.Status = domain.WalletStatus(status)
	return &w, nil
}

func scanTransaction(row pgx.Row, what string) (*models.Transaction, error) {
	var (
		tr        models.Transaction
		debit     uuid.NullUUID
		credit    uuid.NullUUID
		amountStr string
		txType    string
		status    string
		metadata  []byte
	)
	if err := row.Scan(&tr.ID, &debit, &credit, &amountStr, &tr.Currency, &txType, &status,
		&tr.ReferenceID, &metadata, &tr.CreatedAt, &tr.UpdatedAt); err != nil {
		return nil, mapPgError(err, what)
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("%s: parse amount: %v: %w", what, err, domain.ErrStore)
	}
	tr.Amount = amount
	tr.Type = domain.TransactionType(txType)
	tr.Status = domain.TransactionStatus(status)
	tr.Metadata = metadata
	if debit.Valid {
		id := debit.UUID
		tr.DebitWalletID = &id
	}
	if credit.Valid {
		id := credit.UUID
		tr.CreditWalletID = &id
	}
	return &tr, nil
}

func scanReserveAccount(row pgx.Row, what string) (*models.ReserveAccount, error) {
	var (
		a          models.ReserveAccount
		balanceStr string
		status     string
	)
	if err := row.Scan(&a.ID, &a.BankName, &a.AccountNumber, &a.Currency, &balanceStr, &status,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, mapPgError(err, what)
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("%s: parse balance: %v: %w", what, err, domain.ErrStore)
	}
	a.Balance = balance
	a.Status = domain.ReserveStatus(status)
	return &a, nil
}

func requireOneRow(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%s affected %d rows: %w", operation, rows, domain.ErrStore)
	}
	return nil
}

// mapPgError translates driver errors into the domain taxonomy. Serialization
// failures, deadlocks and lock timeouts become ErrConcurrencyConflict so the
// engine can retry them with backoff.
func mapPgError(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%s: %s: %w", what, pgErr.Code, domain.ErrConcurrencyConflict)
		}
	}
	return fmt.Errorf("%s: %v: %w", what, err, domain.ErrStore)
}
