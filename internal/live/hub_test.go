package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

type fakeCallSource struct {
	active []*database.Call
	search []*database.Call
}

func (f *fakeCallSource) ActiveCalls(ctx context.Context, limit int) ([]*database.Call, error) {
	return f.active, nil
}

func (f *fakeCallSource) SearchCalls(ctx context.Context, query string, limit int) ([]*database.Call, error) {
	return f.search, nil
}

func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	return conn, srv
}

func readFrame(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return msg
}

func TestHub_SendsInitialCallsOnConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := []*database.Call{{ID: 1, CallType: "Overdose"}}
	hub := New(&fakeCallSource{active: calls}, 8, zerolog.Nop())
	go hub.Run(ctx)

	conn, srv := dialHub(t, hub)
	defer srv.Close()
	defer conn.Close()

	msg := readFrame(t, conn)
	if msg.Type != TypeInitialCalls {
		t.Fatalf("first frame type = %q, want %q", msg.Type, TypeInitialCalls)
	}

	var got []*database.Call
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("unmarshal initial_calls payload: %v", err)
	}
	if len(got) != 1 || got[0].CallType != "Overdose" {
		t.Errorf("initial_calls payload = %+v, want one Overdose call", got)
	}
}

func TestHub_BroadcastsNewCallToAllSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := New(&fakeCallSource{}, 8, zerolog.Nop())
	go hub.Run(ctx)

	conn, srv := dialHub(t, hub)
	defer srv.Close()
	defer conn.Close()

	readFrame(t, conn) // initial_calls

	// give the session a moment to finish registering before broadcasting.
	time.Sleep(20 * time.Millisecond)
	hub.NewCall(&database.Call{ID: 42, CallType: "Cardiac Arrest"})

	msg := readFrame(t, conn)
	if msg.Type != TypeNewCall {
		t.Fatalf("frame type = %q, want %q", msg.Type, TypeNewCall)
	}
}

func TestHub_SearchCallsReturnsSearchResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := New(&fakeCallSource{search: []*database.Call{{ID: 9}}}, 8, zerolog.Nop())
	go hub.Run(ctx)

	conn, srv := dialHub(t, hub)
	defer srv.Close()
	defer conn.Close()

	readFrame(t, conn) // initial_calls

	req, _ := json.Marshal(Message{Type: TypeSearchCalls, Data: mustJSON(t, searchCallsRequest{Query: "main st", Limit: 10})})
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		t.Fatalf("write search_calls: %v", err)
	}

	msg := readFrame(t, conn)
	if msg.Type != TypeSearchResults {
		t.Fatalf("frame type = %q, want %q", msg.Type, TypeSearchResults)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
