package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

type fakeHospitalReader struct {
	conversations []*database.HospitalConversation
	segments      []*database.HospitalSegment
	lastStatus    string
}

func (f *fakeHospitalReader) ListHospitalConversations(ctx context.Context, status string, limit int) ([]*database.HospitalConversation, error) {
	f.lastStatus = status
	return f.conversations, nil
}

func (f *fakeHospitalReader) HospitalSegmentsForConversation(ctx context.Context, conversationID string) ([]*database.HospitalSegment, error) {
	return f.segments, nil
}

func TestHospitalHandler_ListPassesStatusFilter(t *testing.T) {
	reader := &fakeHospitalReader{conversations: []*database.HospitalConversation{{ID: 1}}}
	r := chi.NewRouter()
	NewHospitalHandler(reader).Routes(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/hospital-calls?status=active", nil)
	r.ServeHTTP(rec, req)

	if reader.lastStatus != "active" {
		t.Errorf("status filter = %q, want %q", reader.lastStatus, "active")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHospitalHandler_Segments(t *testing.T) {
	reader := &fakeHospitalReader{segments: []*database.HospitalSegment{{SequenceNumber: 1}, {SequenceNumber: 2}}}
	r := chi.NewRouter()
	NewHospitalHandler(reader).Routes(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/hospital-calls/CONV-1/segments", nil)
	r.ServeHTTP(rec, req)

	var got []*database.HospitalSegment
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d segments, want 2", len(got))
	}
}
