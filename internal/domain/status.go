package domain

// Status enumerations are closed sets in memory and stored as lowercase
// strings at the database boundary.

type WalletStatus string

const (
	WalletActive WalletStatus = "active"
	WalletFrozen WalletStatus = "frozen"
	WalletClosed WalletStatus = "closed"
)

func (s WalletStatus) Valid() bool {
	switch s {
	case WalletActive, WalletFrozen, WalletClosed:
		return true
	}
	return false
}

type TransactionType string

const (
	TxTypeDeposit    TransactionType = "deposit"
	TxTypeWithdrawal TransactionType = "withdrawal"
	TxTypeTransfer   TransactionType = "transfer"
	TxTypeFee        TransactionType = "fee"
	TxTypeRefund     TransactionType = "refund"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxTypeDeposit, TxTypeWithdrawal, TxTypeTransfer, TxTypeFee, TxTypeRefund:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TxStatusPending    TransactionStatus = "pending"
	TxStatusProcessing TransactionStatus = "processing"
	TxStatusCompleted  TransactionStatus = "completed"
	TxStatusFailed     TransactionStatus = "failed"
	TxStatusReversed   TransactionStatus = "reversed"
)

// transactionTransitions is the full lifecycle. Pending and processing only
// exist inside an open atomic unit; failed and reversed are terminal.
var transactionTransitions = map[TransactionStatus]map[TransactionStatus]struct{}{
	TxStatusPending: {
		TxStatusProcessing: {},
		TxStatusFailed:     {},
	},
	TxStatusProcessing: {
		TxStatusCompleted: {},
		TxStatusFailed:    {},
	},
	TxStatusCompleted: {
		TxStatusReversed: {},
	},
	TxStatusFailed:   {},
	TxStatusReversed: {},
}

// CanTransition reports whether the status machine permits current -> next.
func (s TransactionStatus) CanTransition(next TransactionStatus) bool {
	nextStates, ok := transactionTransitions[s]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

type ReserveStatus string

const (
	ReserveActive    ReserveStatus = "active"
	ReserveSuspended ReserveStatus = "suspended"
	ReserveClosed    ReserveStatus = "closed"
)

func (s ReserveStatus) Valid() bool {
	switch s {
	case ReserveActive, ReserveSuspended, ReserveClosed:
		return true
	}
	return false
}

type ReserveOperationType string

const (
	ReserveOpBankDeposit    ReserveOperationType = "bank_deposit"
	ReserveOpBankWithdrawal ReserveOperationType = "bank_withdrawal"
	ReserveOpFeeCollection  ReserveOperationType = "fee_collection"
	ReserveOpReconciliation ReserveOperationType = "reconciliation"
)

func (t ReserveOperationType) Valid() bool {
	switch t {
	case ReserveOpBankDeposit, ReserveOpBankWithdrawal, ReserveOpFeeCollection, ReserveOpReconciliation:
		return true
	}
	return false
}

type ReserveTransactionStatus string

const (
	ReserveTxPending   ReserveTransactionStatus = "pending"
	ReserveTxCompleted ReserveTransactionStatus = "completed"
	ReserveTxFailed    ReserveTransactionStatus = "failed"
)

type ReconciliationOutcome string

const (
	ReconciliationSuccess ReconciliationOutcome = "success"
	ReconciliationWarning ReconciliationOutcome = "warning"
	ReconciliationError   ReconciliationOutcome = "error"
)
