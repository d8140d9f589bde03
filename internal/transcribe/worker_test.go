package transcribe

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/bridge"
)

type fakeStore struct {
	localPath string
	openData  string
}

func (f fakeStore) LocalPath(key string) string { return f.localPath }
func (f fakeStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.openData)), nil
}

func TestWorkerPool_StatsReflectsChannelBacklog(t *testing.T) {
	jobs := make(chan bridge.Job, 5)
	jobs <- bridge.Job{CallID: 1}
	jobs <- bridge.Job{CallID: 2}

	wp := NewWorkerPool(jobs, WorkerPoolOptions{Log: zerolog.Nop(), Workers: 0})
	stats := wp.Stats()
	if stats.Pending != 2 {
		t.Errorf("Pending = %d, want 2", stats.Pending)
	}
	if stats.Completed != 0 || stats.Failed != 0 {
		t.Errorf("expected zero completed/failed, got %+v", stats)
	}
}

func TestWorkerPool_StopReturnsPromptly(t *testing.T) {
	jobs := make(chan bridge.Job)
	wp := NewWorkerPool(jobs, WorkerPoolOptions{Log: zerolog.Nop(), Workers: 2})
	wp.Start()

	done := make(chan struct{})
	go func() {
		wp.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return within 5 seconds")
	}
}

func TestMaterialize_PrefersLocalPath(t *testing.T) {
	tmp, err := os.CreateTemp("", "segment-*.wav")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmp.Name())
	tmp.WriteString("riff-ish")
	tmp.Close()

	wp := NewWorkerPool(make(chan bridge.Job), WorkerPoolOptions{
		Log:   zerolog.Nop(),
		Store: fakeStore{localPath: tmp.Name()},
	})

	path, cleanup, err := wp.materialize(context.Background(), "seg-1")
	if err != nil {
		t.Fatalf("materialize() error = %v", err)
	}
	defer cleanup()
	if path != tmp.Name() {
		t.Errorf("path = %q, want local path %q (no copy needed)", path, tmp.Name())
	}
}

func TestMaterialize_FallsBackToOpen(t *testing.T) {
	wp := NewWorkerPool(make(chan bridge.Job), WorkerPoolOptions{
		Log:   zerolog.Nop(),
		Store: fakeStore{openData: "pcmdata"},
	})

	path, cleanup, err := wp.materialize(context.Background(), "seg-2")
	if err != nil {
		t.Fatalf("materialize() error = %v", err)
	}
	defer cleanup()

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "pcmdata" {
		t.Errorf("materialized content = %q, want %q", got, "pcmdata")
	}
}
