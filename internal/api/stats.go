package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

// StatsReader is the subset of *database.DB the /api/stats endpoint needs.
type StatsReader interface {
	Stats(ctx context.Context) (*database.CallStats, error)
}

// StatsHandler serves /api/stats (§6).
type StatsHandler struct {
	db StatsReader
}

func NewStatsHandler(db StatsReader) *StatsHandler {
	return &StatsHandler{db: db}
}

func (h *StatsHandler) Routes(r chi.Router) {
	r.Get("/stats", h.Get)
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.Stats(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
