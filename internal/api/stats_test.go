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

type fakeStatsReader struct {
	stats *database.CallStats
}

func (f *fakeStatsReader) Stats(ctx context.Context) (*database.CallStats, error) {
	return f.stats, nil
}

func TestStatsHandler_Get(t *testing.T) {
	reader := &fakeStatsReader{stats: &database.CallStats{ActiveCalls: 4, CallsByType: map[string]int{"Overdose": 2}}}
	r := chi.NewRouter()
	NewStatsHandler(reader).Routes(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/stats", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got database.CallStats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ActiveCalls != 4 || got.CallsByType["Overdose"] != 2 {
		t.Errorf("body = %+v, want ActiveCalls=4 CallsByType[Overdose]=2", got)
	}
}
