package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayo6706/wallet-reserve/internal/config"
	"github.com/ayo6706/wallet-reserve/internal/notification"
	"github.com/ayo6706/wallet-reserve/internal/repository"
	"github.com/ayo6706/wallet-reserve/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		HTTPPort:           "0",
		StoreBackend:       config.BackendMemory,
		PublicRateLimitRPS: 1000,
	}
	store := repository.NewMemoryStore()
	policy := service.RatioPolicy{
		Min:  decimal.RequireFromString("0.95"),
		Warn: decimal.RequireFromString("1.0"),
	}
	alerts := notification.NewService()
	audit := service.NewAuditService()
	wallets := service.NewWalletLedger(store)
	transactions := service.NewTransactionEngine(store, wallets)
	reserves := service.NewReserveLedger(store, policy, audit)
	reconciliation := service.NewReconciliationEngine(store, reserves, audit, alerts)

	router := NewRouter(cfg, zap.NewNop(), nil, nil, nil,
		wallets, transactions, reserves, reconciliation, alerts)

	srv := httptest.NewServer(router.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func createWallet(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, srv.URL+"/v1/wallets", map[string]string{
		"user_id":  uuid.NewString(),
		"currency": "USD",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var wallet struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &wallet)
	return wallet.ID
}

func deposit(t *testing.T, srv *httptest.Server, walletID, amount string) {
	t.Helper()
	resp := postJSON(t, srv.URL+"/v1/transactions", map[string]any{
		"type":             "deposit",
		"amount":           amount,
		"currency":         "USD",
		"credit_wallet_id": walletID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateWalletAndCheckBalance(t *testing.T) {
	srv := newTestServer(t)
	walletID := createWallet(t, srv)
	deposit(t, srv, walletID, "100")

	resp, err := http.Get(srv.URL + "/v1/wallets/" + walletID + "/balance")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balance struct {
		WalletID string `json:"wallet_id"`
		Balance  string `json:"balance"`
	}
	decodeJSON(t, resp, &balance)
	assert.Equal(t, walletID, balance.WalletID)
	assert.Equal(t, "100", balance.Balance)
}

func TestCreateWalletRejectsBadBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/wallets", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
}

func TestTransferEndpoint(t *testing.T) {
	srv := newTestServer(t)
	from := createWallet(t, srv)
	to := createWallet(t, srv)
	deposit(t, srv, from, "100")

	resp := postJSON(t, srv.URL+"/v1/transactions", map[string]any{
		"type":             "transfer",
		"amount":           "40",
		"currency":         "USD",
		"debit_wallet_id":  from,
		"credit_wallet_id": to,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var tx struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeJSON(t, resp, &tx)
	assert.Equal(t, "completed", tx.Status)

	got, err := http.Get(srv.URL + "/v1/transactions/" + tx.ID)
	require.NoError(t, err)
	got.Body.Close()
	assert.Equal(t, http.StatusOK, got.StatusCode)
}

func TestInsufficientFundsReturns422(t *testing.T) {
	srv := newTestServer(t)
	from := createWallet(t, srv)
	to := createWallet(t, srv)
	deposit(t, srv, from, "100")

	resp := postJSON(t, srv.URL+"/v1/transactions", map[string]any{
		"type":             "transfer",
		"amount":           "150",
		"currency":         "USD",
		"debit_wallet_id":  from,
		"credit_wallet_id": to,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestUnknownWalletReturns404(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/wallets/" + uuid.NewString())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReverseTransactionEndpoint(t *testing.T) {
	srv := newTestServer(t)
	from := createWallet(t, srv)
	to := createWallet(t, srv)
	deposit(t, srv, from, "100")

	resp := postJSON(t, srv.URL+"/v1/transactions", map[string]any{
		"type":             "transfer",
		"amount":           "40",
		"currency":         "USD",
		"debit_wallet_id":  from,
		"credit_wallet_id": to,
	})
	var tx struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &tx)

	rev := postJSON(t, srv.URL+"/v1/transactions/"+tx.ID+"/reverse", map[string]string{
		"reason": "customer dispute",
	})
	require.Equal(t, http.StatusCreated, rev.StatusCode)
	var reversal struct {
		Type        string `json:"type"`
		ReferenceID string `json:"reference_id"`
	}
	decodeJSON(t, rev, &reversal)
	assert.Equal(t, "refund", reversal.Type)
	assert.Equal(t, "reversal_"+tx.ID, reversal.ReferenceID)

	// Second reversal hits the terminal state and conflicts.
	again := postJSON(t, srv.URL+"/v1/transactions/"+tx.ID+"/reverse", map[string]string{})
	defer again.Body.Close()
	assert.Equal(t, http.StatusConflict, again.StatusCode)
}

func TestReserveAndReconciliationEndpoints(t *testing.T) {
	srv := newTestServer(t)
	walletID := createWallet(t, srv)
	deposit(t, srv, walletID, "1000")

	resp := postJSON(t, srv.URL+"/v1/reserve/accounts", map[string]string{
		"bank_name":      "First National",
		"account_number": "0012345678",
		"currency":       "USD",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var account struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &account)

	opResp := postJSON(t, fmt.Sprintf("%s/v1/reserve/accounts/%s/operations", srv.URL, account.ID), map[string]any{
		"amount":         "900",
		"operation_type": "bank_deposit",
	})
	require.Equal(t, http.StatusCreated, opResp.StatusCode)
	opResp.Body.Close()

	ratioResp, err := http.Get(srv.URL + "/v1/reserve/ratio")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, ratioResp.StatusCode)
	var ratio struct {
		Ratio   string `json:"ratio"`
		Outcome string `json:"outcome"`
	}
	decodeJSON(t, ratioResp, &ratio)
	assert.Equal(t, "0.9", ratio.Ratio)
	assert.Equal(t, "error", ratio.Outcome)

	runResp := postJSON(t, srv.URL+"/v1/reconciliation/run", map[string]string{})
	require.Equal(t, http.StatusOK, runResp.StatusCode)
	var report struct {
		Outcome     string  `json:"outcome"`
		Discrepancy *string `json:"discrepancy"`
	}
	decodeJSON(t, runResp, &report)
	assert.Equal(t, "error", report.Outcome)
	require.NotNil(t, report.Discrepancy)
	assert.Equal(t, "-100", *report.Discrepancy)

	alertsResp, err := http.Get(srv.URL + "/v1/alerts")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, alertsResp.StatusCode)
	var alerts struct {
		Count int `json:"count"`
	}
	decodeJSON(t, alertsResp, &alerts)
	assert.GreaterOrEqual(t, alerts.Count, 1)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	live, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	live.Body.Close()
	assert.Equal(t, http.StatusOK, live.StatusCode)

	ready, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	ready.Body.Close()
	assert.Equal(t, http.StatusOK, ready.StatusCode)
}
