package handler

import (
	"errors"
	"net/http"

	"github.com/ayo6706/wallet-reserve/internal/domain"
	"github.com/ayo6706/wallet-reserve/internal/notification"
	"github.com/ayo6706/wallet-reserve/internal/service"
)

type ReconciliationHandler struct {
	engine *service.ReconciliationEngine
	alerts *notification.Service
}

func NewReconciliationHandler(engine *service.ReconciliationEngine, alerts *notification.Service) *ReconciliationHandler {
	return &ReconciliationHandler{engine: engine, alerts: alerts}
}

// Run triggers a reconciliation pass on demand. A completed pass that found a
// ratio breach still returns the report; only a pass that could not complete
// is an error.
func (h *ReconciliationHandler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.Run(r.Context())
	if err != nil && !errors.Is(err, domain.ErrReserveRatioBelowThreshold) {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, report)
}

// Alerts returns the recent alert buffer.
func (h *ReconciliationHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.alerts.Recent()
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}
