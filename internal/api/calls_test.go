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

type fakeCallReader struct {
	active    []*database.Call
	search    []*database.Call
	lastQuery string
	searchErr error
}

func (f *fakeCallReader) ActiveCalls(ctx context.Context, limit int) ([]*database.Call, error) {
	return f.active, nil
}

func (f *fakeCallReader) SearchCalls(ctx context.Context, query string, limit int) ([]*database.Call, error) {
	f.lastQuery = query
	return f.search, f.searchErr
}

func TestCallsHandler_Active(t *testing.T) {
	reader := &fakeCallReader{active: []*database.Call{{ID: 1, CallType: "Overdose"}}}
	r := chi.NewRouter()
	NewCallsHandler(reader).Routes(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/calls/active", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []*database.Call
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("body = %+v, want one call with id 1", got)
	}
}

func TestCallsHandler_ListWithoutSearchFallsBackToActive(t *testing.T) {
	reader := &fakeCallReader{active: []*database.Call{{ID: 7}}}
	r := chi.NewRouter()
	NewCallsHandler(reader).Routes(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/calls", nil)
	r.ServeHTTP(rec, req)

	var got []*database.Call
	json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got) != 1 || got[0].ID != 7 {
		t.Errorf("expected active-calls fallback, got %+v", got)
	}
}

func TestCallsHandler_SearchErrorReturns500(t *testing.T) {
	reader := &fakeCallReader{searchErr: context.DeadlineExceeded}
	r := chi.NewRouter()
	NewCallsHandler(reader).Routes(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/calls?search=main+st", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCallsHandler_ListWithSearchQuery(t *testing.T) {
	reader := &fakeCallReader{search: []*database.Call{{ID: 9}}}
	r := chi.NewRouter()
	NewCallsHandler(reader).Routes(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/calls?search=main+st", nil)
	r.ServeHTTP(rec, req)

	if reader.lastQuery != "main st" {
		t.Errorf("search query = %q, want %q", reader.lastQuery, "main st")
	}
	var got []*database.Call
	json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got) != 1 || got[0].ID != 9 {
		t.Errorf("body = %+v, want one call with id 9", got)
	}
}
