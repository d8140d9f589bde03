package bridge

import (
	"encoding/json"
	"testing"
)

func TestParseEnvelope_UnknownTypeDoesNotError(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"scanner_config_update","data":{}}`))
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	if env.Type != MessageUnknown {
		t.Errorf("Type = %q, want %q", env.Type, MessageUnknown)
	}
}

func TestParseEnvelope_Call(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"call","data":{"system":"metro-pd","talkgroup":5201}}`))
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	if env.Type != MessageCall {
		t.Fatalf("Type = %q, want call", env.Type)
	}
	var d CallData
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatalf("unmarshal CallData: %v", err)
	}
	if d.System != "metro-pd" || d.Talkgroup != 5201 {
		t.Errorf("got %+v", d)
	}
}

func TestParseEnvelope_Malformed(t *testing.T) {
	if _, err := ParseEnvelope([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed frame")
	}
}

func TestParseAudioPayload_URL(t *testing.T) {
	p, err := ParseAudioPayload(json.RawMessage(`"https://bridge.local/segment.wav"`))
	if err != nil {
		t.Fatalf("ParseAudioPayload() error = %v", err)
	}
	if p.URL == "" {
		t.Error("expected URL payload")
	}
}

func TestParseAudioPayload_Base64(t *testing.T) {
	p, err := ParseAudioPayload(json.RawMessage(`"AQIDBA=="`))
	if err != nil {
		t.Fatalf("ParseAudioPayload() error = %v", err)
	}
	if p.Base64 == "" {
		t.Error("expected base64 payload")
	}
}

func TestDedupeKey(t *testing.T) {
	got := DedupeKey("metro-pd", 5201, "2026-07-30T10:00:00Z")
	want := "metro-pd|5201|2026-07-30T10:00:00Z"
	if got != want {
		t.Errorf("DedupeKey() = %q, want %q", got, want)
	}
}
