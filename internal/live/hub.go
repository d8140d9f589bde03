// Package live implements the Live Hub: the websocket fan-out server from
// spec.md §4.K that streams call activity and alerts to connected UI
// clients.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/database"
	"github.com/scanwatch/dispatch-engine/internal/metrics"
)

// CallSource is the subset of *database.DB the Live Hub needs to answer a
// new connection's `initial_calls` snapshot and `search_calls` requests.
type CallSource interface {
	ActiveCalls(ctx context.Context, limit int) ([]*database.Call, error)
	SearchCalls(ctx context.Context, query string, limit int) ([]*database.Call, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub maintains the set of connected sessions and fans out events from a
// single internal source to every session's own bounded outbound queue
// (spec.md §4.K, §5).
type Hub struct {
	calls     CallSource
	queueSize int
	log       zerolog.Logger

	mu       sync.RWMutex
	sessions map[*Session]bool

	register   chan *Session
	unregister chan *Session
	nextID     atomic.Uint64
}

// New builds a Hub. queueSize is the default 256 per-session outbound
// queue depth.
func New(calls CallSource, queueSize int, log zerolog.Logger) *Hub {
	return &Hub{
		calls:      calls,
		queueSize:  queueSize,
		log:        log.With().Str("component", "live-hub").Logger(),
		sessions:   make(map[*Session]bool),
		register:   make(chan *Session),
		unregister: make(chan *Session),
	}
}

// Run processes registration/unregistration until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for s := range h.sessions {
				s.close()
			}
			h.sessions = make(map[*Session]bool)
			h.mu.Unlock()
			return

		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s] = true
			h.mu.Unlock()
			metrics.LiveHubSessionsActive.Set(float64(h.sessionCount()))

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				s.close()
			}
			h.mu.Unlock()
			metrics.LiveHubSessionsActive.Set(float64(h.sessionCount()))
			metrics.LiveHubSessionsClosedTotal.WithLabelValues("disconnect").Inc()
		}
	}
}

func (h *Hub) sessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// ServeWS upgrades an HTTP request to a websocket connection, registers a
// new Session, and sends its `initial_calls` snapshot (§4.K, §6 path /ws).
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := fmt.Sprintf("sess-%d", h.nextID.Add(1))
	session := newSession(id, conn, h, h.queueSize, h.log)

	h.register <- session
	go session.writePump()
	go session.readPump()

	h.sendInitialCalls(r.Context(), session)
}

func (h *Hub) sendInitialCalls(ctx context.Context, session *Session) {
	calls, err := h.calls.ActiveCalls(ctx, 100)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to load initial_calls snapshot")
		calls = nil
	}
	frame, err := envelope(TypeInitialCalls, calls)
	if err != nil {
		return
	}
	session.trySend(frame)
}

func (h *Hub) handleSearch(session *Session, data []byte) {
	var req searchCallsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	results, err := h.calls.SearchCalls(context.Background(), req.Query, limit)
	if err != nil {
		h.log.Warn().Err(err).Str("query", req.Query).Msg("search_calls failed")
		results = nil
	}
	frame, err := envelope(TypeSearchResults, results)
	if err != nil {
		return
	}
	session.trySend(frame)
}

// broadcast fans a pre-built frame out to every connected session.
func (h *Hub) broadcast(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions {
		s.trySend(frame)
	}
}

func (h *Hub) publish(msgType string, payload any) {
	frame, err := envelope(msgType, payload)
	if err != nil {
		h.log.Warn().Err(err).Str("type", msgType).Msg("failed to encode live hub frame")
		return
	}
	h.broadcast(frame)
}

// NewCall broadcasts a `new_call` frame after a segment's first successful
// transcription (§4.K).
func (h *Hub) NewCall(call *database.Call) { h.publish(TypeNewCall, call) }

// CallUpdate broadcasts a `call_update` frame with the fields that changed.
func (h *Hub) CallUpdate(fields map[string]any) { h.publish(TypeCallUpdate, fields) }

// StatsUpdate broadcasts the periodic `stats_update` frame.
func (h *Hub) StatsUpdate(stats any) { h.publish(TypeStatsUpdate, stats) }

// SystemHealth broadcasts the periodic `system_health` frame.
func (h *Hub) SystemHealth(health any) { h.publish(TypeSystemHealth, health) }

// NewAlert broadcasts a `new_alert` frame from the Alert Engine.
func (h *Hub) NewAlert(alert *database.Alert) { h.publish(TypeNewAlert, alert) }

// CriticalAlert broadcasts a `critical_alert` frame from the Alert Engine.
func (h *Hub) CriticalAlert(alert *database.Alert) { h.publish(TypeCriticalAlert, alert) }

// RunPeriodicStats emits StatsUpdate/SystemHealth every interval until ctx
// is cancelled.
func (h *Hub) RunPeriodicStats(ctx context.Context, interval time.Duration, stats func() any, health func() any) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if stats != nil {
				h.StatsUpdate(stats())
			}
			if health != nil {
				h.SystemHealth(health())
			}
		}
	}
}
