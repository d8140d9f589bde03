package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSupervisor_BackoffCapsAtMax(t *testing.T) {
	s := NewSupervisor("", "", zerolog.Nop())
	got := s.backoffFor(20)
	if got != s.maxBackoff {
		t.Errorf("backoffFor(20) = %v, want capped at %v", got, s.maxBackoff)
	}
}

func TestSupervisor_BackoffGrows(t *testing.T) {
	s := NewSupervisor("", "", zerolog.Nop())
	a := s.backoffFor(1)
	b := s.backoffFor(2)
	if !(a < b) {
		t.Errorf("expected backoff to grow with attempt count: backoffFor(1)=%v backoffFor(2)=%v", a, b)
	}
}

func TestSupervisor_IdleWithNoBinary(t *testing.T) {
	s := NewSupervisor("", "", zerolog.Nop())
	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() with no binary path should return immediately")
	}
}
