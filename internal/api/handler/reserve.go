package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/ayo6706/wallet-reserve/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReserveHandler struct {
	reserves *service.ReserveLedger
}

func NewReserveHandler(reserves *service.ReserveLedger) *ReserveHandler {
	return &ReserveHandler{reserves: reserves}
}

type createReserveAccountRequest struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	Currency      string `json:"currency"`
}

func (h *ReserveHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createReserveAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}
	account, err := h.reserves.CreateAccount(r.Context(), req.BankName, req.AccountNumber, req.Currency)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, account)
}

func (h *ReserveHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-field", "invalid reserve account id")
		return
	}
	account, err := h.reserves.GetAccount(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, account)
}

type reserveOperationRequest struct {
	Amount        string          `json:"amount"`
	OperationType string          `json:"operation_type"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

func (h *ReserveHandler) RecordOperation(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathUUID(r, "id")
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-field", "invalid reserve account id")
		return
	}
	var req reserveOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "ledger/invalid-amount", "amount must be a decimal string")
		return
	}

	svcReq := service.ReserveOperationRequest{
		ReserveAccountID: accountID,
		Amount:           amount,
		OperationType:    domain.ReserveOperationType(req.OperationType),
		ReferenceID:      req.ReferenceID,
		Metadata:         req.Metadata,
	}
	if req.TransactionID != nil {
		id, err := uuid.Parse(*req.TransactionID)
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-field", "invalid transaction_id")
			return
		}
		svcReq.TransactionID = &id
	}

	op, err := h.reserves.RecordOperation(r.Context(), svcReq)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, op)
}

// GetRatio reports current coverage. A ratio below the floor is still a
// successful read; the breach is carried in the payload, not the status code.
func (h *ReserveHandler) GetRatio(w http.ResponseWriter, r *http.Request) {
	status, err := h.reserves.CheckRatio(r.Context())
	if err != nil && !errors.Is(err, domain.ErrReserveRatioBelowThreshold) {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, status)
}
