package live

import "encoding/json"

// Server-to-client and client-to-server frame types (spec.md §4.K).
const (
	TypeInitialCalls  = "initial_calls"
	TypeNewCall       = "new_call"
	TypeCallUpdate    = "call_update"
	TypeStatsUpdate   = "stats_update"
	TypeSystemHealth  = "system_health"
	TypeHeartbeat     = "heartbeat"
	TypePong          = "pong"
	TypeSearchCalls   = "search_calls"
	TypeSearchResults = "search_results"
	TypeNewAlert      = "new_alert"
	TypeCriticalAlert = "critical_alert"
	TypeProtocolError = "protocol_error"
)

// Message is the wire envelope for every frame in both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func envelope(msgType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: msgType, Data: data})
}

// searchCallsRequest is the client→server `search_calls` frame body.
type searchCallsRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}
