// Package bridge owns the Scanner Supervisor (§4.A) and Segment Source
// (§4.B): it manages the scanner-bridge subprocess, maintains whichever
// transport reaches it (persistent socket, MQTT, or directory watch), and
// turns inbound call messages into deduplicated AudioSegment + preliminary
// Call rows handed to the transcription queue.
package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/scanwatch/dispatch-engine/internal/audio"
)

// MessageType tags the scanner bridge's dynamic payload shape (spec.md §9:
// "Dynamic message payloads ... expose as a tagged union").
type MessageType string

const (
	MessageCall    MessageType = "call"
	MessageConfig  MessageType = "config"
	MessagePong    MessageType = "pong"
	MessageUnknown MessageType = "unknown"
)

// Envelope is the outer shape of every frame received from the bridge.
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// CallData is the payload of a "call" message (spec.md §6).
type CallData struct {
	System        string          `json:"system"`
	Talkgroup     int             `json:"talkgroup"`
	DateTime      string          `json:"dateTime"`
	Freq          int64           `json:"freq"`
	Duration      float64         `json:"duration"`
	Audio         json.RawMessage `json:"audio"` // string (base64/url) or []byte
	Source        string          `json:"source,omitempty"`
	TalkgroupLabel string         `json:"talkgroupLabel,omitempty"`
	SystemLabel   string          `json:"systemLabel,omitempty"`
	Unit          string          `json:"unit,omitempty"`
}

// ParseEnvelope decodes a raw frame into an Envelope, defaulting to
// MessageUnknown for anything it can't classify rather than erroring — the
// spec directs unknown variants to be logged and dropped, not to kill the
// connection.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return Envelope{}, fmt.Errorf("malformed bridge frame: %w", err)
	}
	switch e.Type {
	case MessageCall, MessageConfig, MessagePong:
	default:
		e.Type = MessageUnknown
	}
	return e, nil
}

// ParseAudioPayload interprets CallData.Audio, which may arrive as a base64
// string, a raw byte array, or a URL string (spec.md §4.B step 2).
func ParseAudioPayload(raw json.RawMessage) (audio.Payload, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if looksLikeURL(asString) {
			return audio.Payload{URL: asString}, nil
		}
		return audio.Payload{Base64: asString}, nil
	}

	var asBytes []byte
	if err := json.Unmarshal(raw, &asBytes); err == nil {
		return audio.Payload{Raw: asBytes}, nil
	}

	return audio.Payload{}, fmt.Errorf("unrecognized audio payload shape")
}

func looksLikeURL(s string) bool {
	return len(s) > 7 && (s[:7] == "http://" || (len(s) > 8 && s[:8] == "https://"))
}

// DedupeKey computes the `system|talkgroup|dateTime` key used to drop
// duplicate ingests of the same scanner message (spec.md §4.B step 1).
func DedupeKey(system string, talkgroup int, dateTime string) string {
	return fmt.Sprintf("%s|%d|%s", system, talkgroup, dateTime)
}
