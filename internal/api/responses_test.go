package api

import (
	"net/http/httptest"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
		wantErr    bool
	}{
		{"defaults", "", 50, 0, false},
		{"valid_custom", "limit=25&offset=10", 25, 10, false},
		{"limit_over_500_errors", "limit=2000", 0, 0, true},
		{"limit_zero_errors", "limit=0", 0, 0, true},
		{"negative_offset_errors", "offset=-5", 0, 0, true},
		{"non_numeric_errors", "limit=abc", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/?"+tt.query, nil)
			p, err := ParsePagination(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePagination() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
				t.Errorf("ParsePagination() = %+v, want limit=%d offset=%d", p, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestQueryString(t *testing.T) {
	req := httptest.NewRequest("GET", "/?search=cardiac+arrest", nil)
	v, ok := QueryString(req, "search")
	if !ok || v != "cardiac arrest" {
		t.Errorf("QueryString() = (%q, %v), want (%q, true)", v, ok, "cardiac arrest")
	}

	if _, ok := QueryString(req, "missing"); ok {
		t.Error("QueryString() for a missing param should return ok=false")
	}
}

func TestQueryTime(t *testing.T) {
	req := httptest.NewRequest("GET", "/?since=2026-07-01T00:00:00Z", nil)
	v, ok := QueryTime(req, "since")
	if !ok || v.Year() != 2026 {
		t.Errorf("QueryTime() = (%v, %v), want a parsed 2026 timestamp", v, ok)
	}

	badReq := httptest.NewRequest("GET", "/?since=not-a-time", nil)
	if _, ok := QueryTime(badReq, "since"); ok {
		t.Error("QueryTime() should reject an unparseable timestamp")
	}
}
