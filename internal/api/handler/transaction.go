package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/ayo6706/wallet-reserve/internal/observability"
	"github.com/ayo6706/wallet-reserve/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionHandler struct {
	engine *service.TransactionEngine
}

func NewTransactionHandler(engine *service.TransactionEngine) *TransactionHandler {
	return &TransactionHandler{engine: engine}
}

type createTransactionRequest struct {
	Type           string          `json:"type"`
	Amount         string          `json:"amount"`
	Currency       string          `json:"currency"`
	DebitWalletID  *string         `json:"debit_wallet_id,omitempty"`
	CreditWalletID *string         `json:"credit_wallet_id,omitempty"`
	ReferenceID    string          `json:"reference_id,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "ledger/invalid-amount", "amount must be a decimal string")
		return
	}

	svcReq := service.CreateTransactionRequest{
		Type:        domain.TransactionType(req.Type),
		Amount:      amount,
		Currency:    req.Currency,
		ReferenceID: req.ReferenceID,
		Metadata:    req.Metadata,
	}
	if req.DebitWalletID != nil {
		id, err := uuid.Parse(*req.DebitWalletID)
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-field", "invalid debit_wallet_id")
			return
		}
		svcReq.DebitWalletID = &id
	}
	if req.CreditWalletID != nil {
		id, err := uuid.Parse(*req.CreditWalletID)
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-field", "invalid credit_wallet_id")
			return
		}
		svcReq.CreditWalletID = &id
	}

	tx, err := h.engine.Create(r.Context(), svcReq)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	observability.IncrementTransaction(string(tx.Type), string(tx.Status))
	RespondJSON(w, http.StatusCreated, tx)
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-field", "invalid transaction id")
		return
	}
	tx, err := h.engine.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, tx)
}

type reverseTransactionRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *TransactionHandler) ReverseTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-field", "invalid transaction id")
		return
	}
	var req reverseTransactionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
			return
		}
	}

	reversal, err := h.engine.Reverse(r.Context(), id, req.Reason)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	observability.IncrementTransaction(string(reversal.Type), string(reversal.Status))
	RespondJSON(w, http.StatusCreated, reversal)
}
