package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

// CallReader is the subset of *database.DB the calls endpoints need.
type CallReader interface {
	ActiveCalls(ctx context.Context, limit int) ([]*database.Call, error)
	SearchCalls(ctx context.Context, query string, limit int) ([]*database.Call, error)
}

// CallsHandler serves /api/calls/active and /api/calls?search= (§6).
type CallsHandler struct {
	db CallReader
}

func NewCallsHandler(db CallReader) *CallsHandler {
	return &CallsHandler{db: db}
}

func (h *CallsHandler) Routes(r chi.Router) {
	r.Get("/calls/active", h.Active)
	r.Get("/calls", h.List)
}

func (h *CallsHandler) Active(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePagination(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	calls, err := h.db.ActiveCalls(r.Context(), p.Limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load active calls")
		return
	}
	WriteJSON(w, http.StatusOK, calls)
}

func (h *CallsHandler) List(w http.ResponseWriter, r *http.Request) {
	query, ok := QueryString(r, "search")
	if !ok {
		h.Active(w, r)
		return
	}
	p, err := ParsePagination(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	calls, err := h.db.SearchCalls(r.Context(), query, p.Limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "search failed")
		return
	}
	WriteJSON(w, http.StatusOK, calls)
}
