package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

// HospitalReader is the subset of *database.DB the hospital-calls endpoints
// need.
type HospitalReader interface {
	ListHospitalConversations(ctx context.Context, status string, limit int) ([]*database.HospitalConversation, error)
	HospitalSegmentsForConversation(ctx context.Context, conversationID string) ([]*database.HospitalSegment, error)
}

// HospitalHandler serves /api/hospital-calls and
// /api/hospital-calls/{id}/segments (§6).
type HospitalHandler struct {
	db HospitalReader
}

func NewHospitalHandler(db HospitalReader) *HospitalHandler {
	return &HospitalHandler{db: db}
}

func (h *HospitalHandler) Routes(r chi.Router) {
	r.Get("/hospital-calls", h.List)
	r.Get("/hospital-calls/{id}/segments", h.Segments)
}

func (h *HospitalHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePagination(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, _ := QueryString(r, "status")
	conversations, err := h.db.ListHospitalConversations(r.Context(), status, p.Limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load hospital calls")
		return
	}
	WriteJSON(w, http.StatusOK, conversations)
}

func (h *HospitalHandler) Segments(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if conversationID == "" {
		WriteError(w, http.StatusBadRequest, "missing conversation id")
		return
	}
	segments, err := h.db.HospitalSegmentsForConversation(r.Context(), conversationID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load segments")
		return
	}
	WriteJSON(w, http.StatusOK, segments)
}
