package models

import (
	"encoding/json"
	"time"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds an issued liability balance for one user in one currency.
// Balance and status change only through the wallet ledger; wallets are never
// deleted, their status transitions instead.
type Wallet struct {
	ID        uuid.UUID           `json:"id"`
	UserID    uuid.UUID           `json:"user_id"`
	Currency  string              `json:"currency"`
	Balance   decimal.Decimal     `json:"balance"`
	Status    domain.WalletStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Transaction is one double-entry money movement between up to two wallets.
// At least one of DebitWalletID/CreditWalletID is set; when both are set they
// differ. Immutable once completed except for the transition to reversed.
type Transaction struct {
	ID             uuid.UUID                `json:"id"`
	DebitWalletID  *uuid.UUID               `json:"debit_wallet_id,omitempty"`
	CreditWalletID *uuid.UUID               `json:"credit_wallet_id,omitempty"`
	Amount         decimal.Decimal          `json:"amount"`
	Currency       string                   `json:"currency"`
	Type           domain.TransactionType   `json:"type"`
	Status         domain.TransactionStatus `json:"status"`
	ReferenceID    string                   `json:"reference_id,omitempty"`
	Metadata       json.RawMessage          `json:"metadata,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// ReserveAccount mirrors an off-system custodial account backing issued
// wallet balances in its currency.
type ReserveAccount struct {
	ID            uuid.UUID            `json:"id"`
	BankName      string               `json:"bank_name"`
	AccountNumber string               `json:"account_number"`
	Currency      string               `json:"currency"`
	Balance       decimal.Decimal      `json:"balance"`
	Status        domain.ReserveStatus `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// ReserveTransaction is the reserve's own ledger row. Every reserve balance
// change is paired with exactly one of these.
type ReserveTransaction struct {
	ID               uuid.UUID                       `json:"id"`
	ReserveAccountID uuid.UUID                       `json:"reserve_account_id"`
	TransactionID    *uuid.UUID                      `json:"transaction_id,omitempty"`
	Amount           decimal.Decimal                 `json:"amount"`
	OperationType    domain.ReserveOperationType     `json:"operation_type"`
	Status           domain.ReserveTransactionStatus `json:"status"`
	ReferenceID      string                          `json:"reference_id,omitempty"`
	Metadata         json.RawMessage                 `json:"metadata,omitempty"`
	CreatedAt        time.Time                       `json:"created_at"`
	UpdatedAt        time.Time                       `json:"updated_at"`
}

// ReconciliationReport is a point-in-time comparison of wallet liabilities
// against reserve assets. Persisted as an append-only audit entry.
type ReconciliationReport struct {
	Timestamp    time.Time                    `json:"timestamp"`
	WalletTotal  decimal.Decimal              `json:"wallet_total"`
	ReserveTotal decimal.Decimal              `json:"reserve_total"`
	Ratio        decimal.Decimal              `json:"ratio"`
	Discrepancy  *decimal.Decimal             `json:"discrepancy,omitempty"`
	Outcome      domain.ReconciliationOutcome `json:"outcome"`
}

// AuditEntry is one immutable row of the audit trail.
type AuditEntry struct {
	EntityType string          `json:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id"`
	Action     string          `json:"action"`
	PrevState  string          `json:"prev_state,omitempty"`
	NextState  string          `json:"next_state,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
