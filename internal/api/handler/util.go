package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayo6706/wallet-reserve/internal/api/problem"
	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an RFC 7807 error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// RespondDomainError maps ledger errors to HTTP problem responses.
func RespondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		amountErr  *domain.InvalidAmountError
		txErr      *domain.InvalidTransactionError
		fundsErr   *domain.InsufficientFundsError
		reserveErr *domain.InsufficientReserveError
	)
	switch {
	case errors.As(err, &amountErr):
		RespondError(w, r, http.StatusBadRequest, "ledger/invalid-amount", amountErr.Error())
	case errors.As(err, &txErr):
		RespondError(w, r, http.StatusBadRequest, "ledger/invalid-transaction", txErr.Error())
	case errors.Is(err, domain.ErrNotFound):
		RespondError(w, r, http.StatusNotFound, "ledger/not-found", "resource not found")
	case errors.As(err, &fundsErr):
		RespondError(w, r, http.StatusUnprocessableEntity, "ledger/insufficient-funds", fundsErr.Error())
	case errors.As(err, &reserveErr):
		RespondError(w, r, http.StatusUnprocessableEntity, "ledger/insufficient-reserve", reserveErr.Error())
	case errors.Is(err, domain.ErrInactiveWallet):
		RespondError(w, r, http.StatusConflict, "ledger/inactive-wallet", "wallet is not active")
	case errors.Is(err, domain.ErrInactiveReserve):
		RespondError(w, r, http.StatusConflict, "ledger/inactive-reserve", "reserve account is not active")
	case errors.Is(err, domain.ErrInvalidState):
		RespondError(w, r, http.StatusConflict, "ledger/invalid-state", err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		RespondError(w, r, http.StatusConflict, "ledger/concurrent-update", "concurrent update conflict, retry the request")
	default:
		zap.L().Error("request failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "internal-server-error", "unexpected server error")
	}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}
