package bridge

import "testing"

func TestParseCapturedAt(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"rfc3339", "2026-07-30T10:15:00Z", false},
		{"empty_defaults_to_now", "", false},
		{"unrecognized", "not-a-date", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCapturedAt(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseCapturedAt(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestToIntSet(t *testing.T) {
	set := toIntSet([]string{"100", "200", "bad"})
	if !set[100] || !set[200] {
		t.Errorf("expected 100 and 200 in set, got %+v", set)
	}
	if set[0] {
		t.Error("malformed entry should not populate the zero value")
	}
}

func TestToSet(t *testing.T) {
	set := toSet([]string{"metro-pd", "county-fire"})
	if !set["metro-pd"] || !set["county-fire"] {
		t.Errorf("got %+v", set)
	}
}
