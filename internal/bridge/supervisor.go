package bridge

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Supervisor states (spec.md §4.A state machine).
const (
	StateStopped       = "stopped"
	StateStarting      = "starting"
	StateRunning       = "running"
	StateDegraded      = "degraded"
	StateRestarting    = "restarting"
	StateExited        = "exited"
	StateRestartFailed = "restart-failed"
)

// maxRestartAttempts is the spec.md §4.A cap: after this many consecutive
// failed restarts, the supervisor gives up and surfaces restart-failed
// instead of retrying forever.
const maxRestartAttempts = 5

// Supervisor manages the scanner-bridge subprocess's lifecycle: start it,
// probe its health, and restart it with backoff on crash or failed probes
// (spec.md §4.A).
type Supervisor struct {
	binaryPath  string
	healthURL   string
	healthEvery time.Duration
	maxBackoff  time.Duration

	log zerolog.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	state    atomic.Value // string
	attempt  atomic.Int32
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewSupervisor creates a Supervisor for the given bridge binary. healthURL
// may be empty, in which case only process-exit is used to detect failure.
func NewSupervisor(binaryPath, healthURL string, log zerolog.Logger) *Supervisor {
	s := &Supervisor{
		binaryPath:  binaryPath,
		healthURL:   healthURL,
		healthEvery: 10 * time.Second,
		maxBackoff:  30 * time.Second,
		log:         log.With().Str("component", "scanner-supervisor").Logger(),
		stopCh:      make(chan struct{}),
	}
	s.state.Store(StateStopped)
	return s
}

// Status returns the current lifecycle state.
func (s *Supervisor) Status() string {
	v, _ := s.state.Load().(string)
	return v
}

// Run starts the subprocess and supervises it until ctx is cancelled or Stop
// is called. It blocks — callers run it in its own goroutine.
func (s *Supervisor) Run(ctx context.Context) {
	if s.binaryPath == "" {
		s.log.Info().Msg("no scanner binary configured, supervisor idle")
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		s.state.Store(StateStarting)
		if err := s.spawn(ctx); err != nil {
			s.log.Error().Err(err).Msg("failed to start scanner bridge")
		}

		exitErr := s.wait(ctx)
		if ctx.Err() != nil {
			s.state.Store(StateStopped)
			return
		}

		attempt := s.attempt.Add(1)
		if attempt > maxRestartAttempts {
			s.state.Store(StateRestartFailed)
			s.log.Error().Int32("attempts", attempt-1).Msg("scanner bridge restart-failed: exceeded max consecutive attempts")
			return
		}

		backoff := s.backoffFor(attempt)
		s.state.Store(StateRestarting)
		s.log.Warn().Err(exitErr).Int32("attempt", attempt).Dur("backoff", backoff).
			Msg("scanner bridge exited, restarting")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

func (s *Supervisor) spawn(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd := exec.CommandContext(ctx, s.binaryPath)
	if err := cmd.Start(); err != nil {
		s.state.Store(StateExited)
		return err
	}
	s.cmd = cmd
	s.state.Store(StateRunning)
	s.attempt.Store(0)
	go s.healthLoop(ctx)
	s.log.Info().Int("pid", cmd.Process.Pid).Msg("scanner bridge started")
	return nil
}

func (s *Supervisor) wait(ctx context.Context) error {
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()
	if cmd == nil {
		return fmt.Errorf("scanner bridge never started")
	}
	return cmd.Wait()
}

// healthLoop polls healthURL, demoting state to degraded on repeated
// failures without killing the process — the crash-restart path is driven
// by process exit, not a slow health probe (§4.A).
func (s *Supervisor) healthLoop(ctx context.Context) {
	if s.healthURL == "" {
		return
	}
	ticker := time.NewTicker(s.healthEvery)
	defer ticker.Stop()
	consecutiveFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if s.Status() != StateRunning && s.Status() != StateDegraded {
				return
			}
			if s.probe(ctx) {
				consecutiveFailures = 0
				s.state.Store(StateRunning)
			} else {
				consecutiveFailures++
				if consecutiveFailures >= 3 {
					s.state.Store(StateDegraded)
					s.log.Warn().Int("consecutive_failures", consecutiveFailures).Msg("scanner bridge health probe failing")
				}
			}
		}
	}
}

func (s *Supervisor) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.healthURL, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

func (s *Supervisor) backoffFor(attempt int32) time.Duration {
	backoff := time.Duration(1<<min(attempt, 7)) * time.Second
	if backoff > s.maxBackoff {
		return s.maxBackoff
	}
	return backoff
}

// ForceRestart kills the current subprocess, if any, triggering the normal
// exit-and-restart path in Run, and resets the backoff attempt counter —
// used when an external caller (e.g. the proxy) observes a connection
// failure and wants an immediate retry rather than waiting out the backoff.
func (s *Supervisor) ForceRestart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt.Store(0)
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}

// Stop halts supervision permanently and kills any running subprocess.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.ForceRestart()
	s.state.Store(StateStopped)
}
