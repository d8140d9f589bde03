package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

type fakeAnalyticsReader struct {
	insights  *database.MedicalDirectorInsights
	lastSince time.Time
}

func (f *fakeAnalyticsReader) MedicalDirectorInsightsSince(ctx context.Context, since time.Time) (*database.MedicalDirectorInsights, error) {
	f.lastSince = since
	return f.insights, nil
}

func TestAnalyticsHandler_MedicalDirectorInsights(t *testing.T) {
	reader := &fakeAnalyticsReader{insights: &database.MedicalDirectorInsights{
		TotalConversations: 10,
		SORConversations:   3,
		SORRate:            0.3,
		ByPhysician:        map[string]int{"Dr. Smith": 2},
	}}
	r := chi.NewRouter()
	NewAnalyticsHandler(reader).Routes(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/analytics/medical-director-insights", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got database.MedicalDirectorInsights
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.SORConversations != 3 || got.ByPhysician["Dr. Smith"] != 2 {
		t.Errorf("body = %+v, want SORConversations=3 and a Dr. Smith entry", got)
	}
	if reader.lastSince.IsZero() {
		t.Error("expected a default since window to be passed through")
	}
}

func TestAnalyticsHandler_SinceOverride(t *testing.T) {
	reader := &fakeAnalyticsReader{insights: &database.MedicalDirectorInsights{ByPhysician: map[string]int{}}}
	r := chi.NewRouter()
	NewAnalyticsHandler(reader).Routes(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/analytics/medical-director-insights?since=2026-01-01T00:00:00Z", nil)
	r.ServeHTTP(rec, req)

	if reader.lastSince.Year() != 2026 {
		t.Errorf("lastSince = %v, want year 2026", reader.lastSince)
	}
}
