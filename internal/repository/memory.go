package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/ayo6706/wallet-reserve/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process Store backend used by unit tests and local
// development. Atomic units run against a clone of the state and are swapped
// in only on commit, so rollback semantics match the Postgres backend. A
// single mutex serializes units of work, which trivially satisfies the
// locking discipline.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memoryState
}

type memoryState struct {
	wallets             map[uuid.UUID]models.Wallet
	transactions        map[uuid.UUID]models.Transaction
	txOrder             []uuid.UUID
	reserveAccounts     map[uuid.UUID]models.ReserveAccount
	reserveOrder        []uuid.UUID
	reserveTransactions []models.ReserveTransaction
	auditLog            []models.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		wallets:         make(map[uuid.UUID]models.Wallet),
		transactions:    make(map[uuid.UUID]models.Transaction),
		reserveAccounts: make(map[uuid.UUID]models.ReserveAccount),
	}}
}

func (st *memoryState) clone() *memoryState {
	next := &memoryState{
		wallets:             make(map[uuid.UUID]models.Wallet, len(st.wallets)),
		transactions:        make(map[uuid.UUID]models.Transaction, len(st.transactions)),
		txOrder:             append([]uuid.UUID(nil), st.txOrder...),
		reserveAccounts:     make(map[uuid.UUID]models.ReserveAccount, len(st.reserveAccounts)),
		reserveOrder:        append([]uuid.UUID(nil), st.reserveOrder...),
		reserveTransactions: append([]models.ReserveTransaction(nil), st.reserveTransactions...),
		auditLog:            append([]models.AuditEntry(nil), st.auditLog...),
	}
	for id, w := range st.wallets {
		next.wallets[id] = w
	}
	for id, t := range st.transactions {
		next.transactions[id] = t
	}
	for id, a := range st.reserveAccounts {
		next.reserveAccounts[id] = a
	}
	return next
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("unit of work canceled: %v: %w", err, domain.ErrStore)
	}

	next := s.state.clone()
	if err := fn(&memTx{state: next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

// RunInSnapshot is identical to RunInTx here: the store mutex already gives
// every unit a fully consistent view.
func (s *MemoryStore) RunInSnapshot(ctx context.Context, fn func(tx TxStore) error) error {
	return s.RunInTx(ctx, fn)
}

func (s *MemoryStore) GetWallet(_ context.Context, id uuid.UUID) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.state.wallets[id]
	if !ok {
		return nil, fmt.Errorf("get wallet: %w", domain.ErrNotFound)
	}
	return &w, nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.transactions[id]
	if !ok {
		return nil, fmt.Errorf("get transaction: %w", domain.ErrNotFound)
	}
	return &t, nil
}

func (s *MemoryStore) GetReserveAccount(_ context.Context, id uuid.UUID) (*models.ReserveAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.reserveAccounts[id]
	if !ok {
		return nil, fmt.Errorf("get reserve account: %w", domain.ErrNotFound)
	}
	return &a, nil
}

func (s *MemoryStore) ActiveTotals(_ context.Context) (decimal.Decimal, decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.activeTotals()
}

// Transactions returns all transaction records in insertion order.
func (s *MemoryStore) Transactions() []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Transaction, 0, len(s.state.txOrder))
	for _, id := range s.state.txOrder {
		out = append(out, s.state.transactions[id])
	}
	return out
}

// ReserveTransactions returns all reserve ledger rows in insertion order.
func (s *MemoryStore) ReserveTransactions() []models.ReserveTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ReserveTransaction(nil), s.state.reserveTransactions...)
}

// AuditEntries returns the audit trail in insertion order.
func (s *MemoryStore) AuditEntries() []models.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditEntry(nil), s.state.auditLog...)
}

func (st *memoryState) activeTotals() (decimal.Decimal, decimal.Decimal, error) {
	walletTotal := decimal.Zero
	for _, w := range st.wallets {
		if w.Status == domain.WalletActive {
			walletTotal = walletTotal.Add(w.Balance)
		}
	}
	reserveTotal := decimal.Zero
	for _, a := range st.reserveAccounts {
		if a.Status == domain.ReserveActive {
			reserveTotal = reserveTotal.Add(a.Balance)
		}
	}
	return walletTotal, reserveTotal, nil
}

type memTx struct {
	state *memoryState
}

func (t *memTx) GetWallet(_ context.Context, id uuid.UUID) (*models.Wallet, error) {
	w, ok := t.state.wallets[id]
	if !ok {
		return nil, fmt.Errorf("get wallet: %w", domain.ErrNotFound)
	}
	return &w, nil
}

func (t *memTx) GetTransaction(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	tr, ok := t.state.transactions[id]
	if !ok {
		return nil, fmt.Errorf("get transaction: %w", domain.ErrNotFound)
	}
	return &tr, nil
}

func (t *memTx) GetReserveAccount(_ context.Context, id uuid.UUID) (*models.ReserveAccount, error) {
	a, ok := t.state.reserveAccounts[id]
	if !ok {
		return nil, fmt.Errorf("get reserve account: %w", domain.ErrNotFound)
	}
	return &a, nil
}

func (t *memTx) ActiveTotals(_ context.Context) (decimal.Decimal, decimal.Decimal, error) {
	return t.state.activeTotals()
}

func (t *memTx) InsertWallet(_ context.Context, w *models.Wallet) error {
	if _, exists := t.state.wallets[w.ID]; exists {
		return fmt.Errorf("insert wallet: duplicate id: %w", domain.ErrStore)
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now
	t.state.wallets[w.ID] = *w
	return nil
}

func (t *memTx) GetWalletForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	return t.GetWallet(ctx, id)
}

func (t *memTx) UpdateWalletBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) error {
	w, ok := t.state.wallets[id]
	if !ok {
		return fmt.Errorf("update wallet balance: %w", domain.ErrNotFound)
	}
	w.Balance = balance
	w.UpdatedAt = time.Now().UTC()
	t.state.wallets[id] = w
	return nil
}

func (t *memTx) UpdateWalletStatus(_ context.Context, id uuid.UUID, status domain.WalletStatus) error {
	w, ok := t.state.wallets[id]
	if !ok {
		return fmt.Errorf("update wallet status: %w", domain.ErrNotFound)
	}
	w.Status = status
	w.UpdatedAt = time.Now().UTC()
	t.state.wallets[id] = w
	return nil
}

func (t *memTx) InsertTransaction(_ context.Context, tr *models.Transaction) error {
	if _, exists := t.state.transactions[tr.ID]; exists {
		return fmt.Errorf("insert transaction: duplicate id: %w", domain.ErrStore)
	}
	now := time.Now().UTC()
	tr.CreatedAt = now
	tr.UpdatedAt = now
	t.state.transactions[tr.ID] = *tr
	t.state.txOrder = append(t.state.txOrder, tr.ID)
	return nil
}

func (t *memTx) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return t.GetTransaction(ctx, id)
}

func (t *memTx) UpdateTransactionStatus(_ context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	tr, ok := t.state.transactions[id]
	if !ok {
		return fmt.Errorf("update transaction status: %w", domain.ErrNotFound)
	}
	tr.Status = status
	tr.UpdatedAt = time.Now().UTC()
	t.state.transactions[id] = tr
	return nil
}

func (t *memTx) InsertReserveAccount(_ context.Context, a *models.ReserveAccount) error {
	if _, exists := t.state.reserveAccounts[a.ID]; exists {
		return fmt.Errorf("insert reserve account: duplicate id: %w", domain.ErrStore)
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	t.state.reserveAccounts[a.ID] = *a
	t.state.reserveOrder = append(t.state.reserveOrder, a.ID)
	return nil
}

func (t *memTx) GetReserveAccountForUpdate(ctx context.Context, id uuid.UUID) (*models.ReserveAccount, error) {
	return t.GetReserveAccount(ctx, id)
}

// EarliestActiveReserveAccountForUpdate walks insertion order, which tracks
// created_at for this backend.
func (t *memTx) EarliestActiveReserveAccountForUpdate(_ context.Context) (*models.ReserveAccount, error) {
	for _, id := range t.state.reserveOrder {
		a := t.state.reserveAccounts[id]
		if a.Status == domain.ReserveActive {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("no active reserve account: %w", domain.ErrNotFound)
}

func (t *memTx) UpdateReserveBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) error {
	a, ok := t.state.reserveAccounts[id]
	if !ok {
		return fmt.Errorf("update reserve balance: %w", domain.ErrNotFound)
	}
	a.Balance = balance
	a.UpdatedAt = time.Now().UTC()
	t.state.reserveAccounts[id] = a
	return nil
}

func (t *memTx) InsertReserveTransaction(_ context.Context, tr *models.ReserveTransaction) error {
	now := time.Now().UTC()
	tr.CreatedAt = now
	tr.UpdatedAt = now
	t.state.reserveTransactions = append(t.state.reserveTransactions, *tr)
	return nil
}

func (t *memTx) InsertAuditEntry(_ context.Context, e *models.AuditEntry) error {
	e.CreatedAt = time.Now().UTC()
	t.state.auditLog = append(t.state.auditLog, *e)
	return nil
}
