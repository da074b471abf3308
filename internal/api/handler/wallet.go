package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ayo6706/wallet-reserve/internal/service"
	"github.com/google/uuid"
)

type WalletHandler struct {
	wallets *service.WalletLedger
}

func NewWalletHandler(wallets *service.WalletLedger) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

type createWalletRequest struct {
	UserID   string `json:"user_id"`
	Currency string `json:"currency"`
}

func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-field", "invalid user_id")
		return
	}

	wallet, err := h.wallets.CreateWallet(r.Context(), userID, req.Currency)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, wallet)
}

func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-field", "invalid wallet id")
		return
	}
	wallet, err := h.wallets.GetWallet(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, wallet)
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-field", "invalid wallet id")
		return
	}
	wallet, err := h.wallets.GetWallet(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"wallet_id": wallet.ID,
		"balance":   wallet.Balance,
		"currency":  wallet.Currency,
		"status":    wallet.Status,
	})
}

func (h *WalletHandler) Freeze(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-field", "invalid wallet id")
		return
	}
	wallet, err := h.wallets.Freeze(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, wallet)
}
