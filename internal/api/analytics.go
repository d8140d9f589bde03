package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

// AnalyticsReader is the subset of *database.DB the analytics endpoint
// needs.
type AnalyticsReader interface {
	MedicalDirectorInsightsSince(ctx context.Context, since time.Time) (*database.MedicalDirectorInsights, error)
}

// AnalyticsHandler serves /api/analytics/medical-director-insights (§6): a
// medical director's view of standing-orders-request activity surfaced by
// the Hospital Grouper's SOR detection (§4.H).
type AnalyticsHandler struct {
	db AnalyticsReader
}

func NewAnalyticsHandler(db AnalyticsReader) *AnalyticsHandler {
	return &AnalyticsHandler{db: db}
}

func (h *AnalyticsHandler) Routes(r chi.Router) {
	r.Get("/analytics/medical-director-insights", h.MedicalDirectorInsights)
}

func (h *AnalyticsHandler) MedicalDirectorInsights(w http.ResponseWriter, r *http.Request) {
	since := time.Now().Add(-30 * 24 * time.Hour)
	if t, ok := QueryTime(r, "since"); ok {
		since = t
	}
	insights, err := h.db.MedicalDirectorInsightsSince(r.Context(), since)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to compute insights")
		return
	}
	WriteJSON(w, http.StatusOK, insights)
}
