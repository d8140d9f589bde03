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

type fakeAlertReader struct {
	alerts []*database.Alert
}

func (f *fakeAlertReader) UnreadAlerts(ctx context.Context, limit int) ([]*database.Alert, error) {
	return f.alerts, nil
}

func TestAlertsHandler_Unread(t *testing.T) {
	reader := &fakeAlertReader{alerts: []*database.Alert{{ID: 1, Severity: database.SeverityHigh}}}
	r := chi.NewRouter()
	NewAlertsHandler(reader).Routes(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/alerts/unread", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []*database.Alert
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].Severity != database.SeverityHigh {
		t.Errorf("body = %+v, want one high-severity alert", got)
	}
}
