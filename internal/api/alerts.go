package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

// AlertReader is the subset of *database.DB the alerts endpoint needs.
type AlertReader interface {
	UnreadAlerts(ctx context.Context, limit int) ([]*database.Alert, error)
}

// AlertsHandler serves /api/alerts/unread (§6).
type AlertsHandler struct {
	db AlertReader
}

func NewAlertsHandler(db AlertReader) *AlertsHandler {
	return &AlertsHandler{db: db}
}

func (h *AlertsHandler) Routes(r chi.Router) {
	r.Get("/alerts/unread", h.Unread)
}

func (h *AlertsHandler) Unread(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePagination(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	alerts, err := h.db.UnreadAlerts(r.Context(), p.Limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load alerts")
		return
	}
	WriteJSON(w, http.StatusOK, alerts)
}
