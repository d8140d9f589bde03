package live

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// writeWait is how long a single WriteMessage call may block.
	writeWait = 10 * time.Second

	// maxMessageSize bounds a single client→server frame (search_calls, pong).
	maxMessageSize = 16 * 1024

	// heartbeatInterval and pongTimeout implement §4.K / §5's "heartbeat
	// every 25s expecting a pong within 30s" rule.
	heartbeatInterval = 25 * time.Second
	pongTimeout       = 30 * time.Second
)

// Session is one connected Live Hub websocket client (spec.md §4.K).
type Session struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	log  zerolog.Logger

	send chan []byte

	closeOnce sync.Once
	closed    atomic.Bool
	lastPong  atomic.Int64
}

func newSession(id string, conn *websocket.Conn, hub *Hub, queueSize int, log zerolog.Logger) *Session {
	s := &Session{
		id:   id,
		conn: conn,
		hub:  hub,
		log:  log.With().Str("session", id).Logger(),
		send: make(chan []byte, queueSize),
	}
	s.lastPong.Store(time.Now().UnixNano())
	return s
}

// trySend enqueues a frame without blocking. An overflowing queue violates
// the "overflow closes the session" rule (§4.K), so the session is closed
// with a protocol error instead of dropping the oldest frame.
func (s *Session) trySend(data []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.send <- data:
	default:
		s.closeWithError("outbound queue overflow")
	}
}

func (s *Session) closeWithError(reason string) {
	if s.closed.Load() {
		return
	}
	if frame, err := envelope(TypeProtocolError, map[string]string{"reason": reason}); err == nil {
		select {
		case s.send <- frame:
		default:
		}
	}
	s.close()
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.send)
	})
}

// readPump handles client→server frames: `pong` (heartbeat ack) and
// `search_calls`. It runs until the connection errors or is closed.
func (s *Session) readPump() {
	defer func() {
		s.hub.unregister <- s
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(heartbeatInterval + pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.lastPong.Store(time.Now().UnixNano())
		_ = s.conn.SetReadDeadline(time.Now().Add(heartbeatInterval + pongTimeout))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Debug().Err(err).Msg("read error")
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(heartbeatInterval + pongTimeout))

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case TypePong:
			s.lastPong.Store(time.Now().UnixNano())
		case TypeSearchCalls:
			s.hub.handleSearch(s, msg.Data)
		}
	}
}

// writePump drains the outbound queue to the connection and emits the
// periodic `heartbeat` frame, closing the session if no pong arrives
// within pongTimeout of the last heartbeat (§4.K).
func (s *Session) writePump() {
	ticker := time.NewTicker(heartbeatInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			sincePong := time.Since(time.Unix(0, s.lastPong.Load()))
			if sincePong > heartbeatInterval+pongTimeout {
				s.closeWithError("heartbeat timeout")
				return
			}
			frame, err := envelope(TypeHeartbeat, map[string]string{"time": time.Now().UTC().Format(time.RFC3339)})
			if err != nil {
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}
}
