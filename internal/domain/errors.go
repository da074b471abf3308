package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates an unknown wallet, transaction or reserve account id.
	ErrNotFound = errors.New("not found")

	// ErrInactiveWallet indicates the wallet status is not active at mutation time.
	ErrInactiveWallet = errors.New("wallet is not active")

	// ErrInactiveReserve indicates the reserve account status is not active at mutation time.
	ErrInactiveReserve = errors.New("reserve account is not active")

	// ErrInvalidState indicates a transaction status transition the machine forbids.
	ErrInvalidState = errors.New("invalid transaction state")

	// ErrReserveRatioBelowThreshold indicates reserve assets no longer cover
	// wallet liabilities at the configured minimum ratio.
	ErrReserveRatioBelowThreshold = errors.New("reserve ratio below threshold")

	// ErrConcurrencyConflict wraps lock timeouts and serialization failures
	// reported by the store. Safe to retry a bounded number of times.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")

	// ErrStore wraps any other failure of the underlying durable store.
	ErrStore = errors.New("store failure")
)

// InsufficientFundsError rejects a debit that would drive a wallet negative.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s", e.Required, e.Available)
}

// InsufficientReserveError rejects a withdrawal that would drive a reserve
// account negative.
type InsufficientReserveError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientReserveError) Error() string {
	return fmt.Sprintf("insufficient reserve: required %s, available %s", e.Required, e.Available)
}

// InvalidAmountError rejects a non-positive or malformed amount.
type InvalidAmountError struct {
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return "invalid amount: " + e.Reason
}

// InvalidTransactionError rejects a structurally invalid transaction request
// before any write happens.
type InvalidTransactionError struct {
	Reason string
}

func (e *InvalidTransactionError) Error() string {
	return "invalid transaction: " + e.Reason
}

// IsRetryable reports whether the error is a transient concurrency conflict
// that a caller may retry with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
