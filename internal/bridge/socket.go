package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// SocketSource is the primary Segment Source transport: a persistent
// bidirectional TCP connection to the scanner bridge, framed as one JSON
// Envelope per line (spec.md §4.B transport: "persistent socket").
type SocketSource struct {
	addr   string
	intake *Intake
	log    zerolog.Logger
	dialTO time.Duration
}

// NewSocketSource creates a socket transport targeting addr (host:port).
func NewSocketSource(addr string, intake *Intake, log zerolog.Logger) *SocketSource {
	return &SocketSource{
		addr:   addr,
		intake: intake,
		dialTO: 5 * time.Second,
		log:    log.With().Str("component", "socket-source").Str("addr", addr).Logger(),
	}
}

// Run dials addr and reads frames until ctx is cancelled, reconnecting with
// exponential backoff on any connection error.
func (s *SocketSource) Run(ctx context.Context) {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := net.DialTimeout("tcp", s.addr, s.dialTO)
		if err != nil {
			attempt++
			backoff := backoffFor(attempt)
			s.log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", backoff).Msg("socket connect failed")
			if !sleepOrDone(ctx, backoff) {
				return
			}
			continue
		}

		s.log.Info().Msg("connected to scanner bridge socket")
		attempt = 0
		s.readLoop(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		s.log.Warn().Msg("scanner bridge socket closed, reconnecting")
	}
}

func (s *SocketSource) readLoop(ctx context.Context, conn net.Conn) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		env, err := ParseEnvelope(line)
		if err != nil {
			s.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}
		s.handle(ctx, env)
	}
}

func (s *SocketSource) handle(ctx context.Context, env Envelope) {
	switch env.Type {
	case MessageCall:
		var d CallData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			s.log.Warn().Err(err).Msg("malformed call payload")
			return
		}
		if err := s.intake.Accept(ctx, d); err != nil {
			s.log.Error().Err(err).Str("system", d.System).Int("talkgroup", d.Talkgroup).Msg("failed to ingest segment")
		}
	case MessagePong:
		// liveness only, nothing to do
	default:
		s.log.Debug().Str("type", string(env.Type)).Msg("ignoring unrecognized bridge message")
	}
}

func backoffFor(attempt int) time.Duration {
	d := time.Duration(1<<min(attempt, 6)) * time.Second
	if d > 60*time.Second {
		return 60 * time.Second
	}
	return d
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
