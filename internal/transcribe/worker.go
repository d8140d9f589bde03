package transcribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/bridge"
	"github.com/scanwatch/dispatch-engine/internal/database"
)

// BlobStore is the subset of storage.AudioStore the worker pool needs to
// pull a segment's bytes back off disk/S3 for transcription.
type BlobStore interface {
	LocalPath(key string) string
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Enricher receives a raw transcript for further pipeline stages
// (post-processing, classification, geocoding, linking — spec.md §4.D-§4.G).
// Decoupling the worker pool from those stages keeps this package a pure
// STT runner, the way the teacher keeps transcription separate from
// downstream SSE publishing.
type Enricher interface {
	Enrich(ctx context.Context, job bridge.Job, transcript string, confidence float64) error
}

// QueueStats reports the current state of the transcription queue.
type QueueStats struct {
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// WorkerPoolOptions configures the transcription worker pool.
type WorkerPoolOptions struct {
	DB       *database.DB
	Store    BlobStore
	Provider Provider
	Enricher Enricher
	Timeout  time.Duration
	Language string
	Prompt   string
	Workers  int
	Log      zerolog.Logger
}

// WorkerPool pulls bridge.Job values off the Intake queue and runs them
// through a Provider, then hands the transcript to an Enricher.
type WorkerPool struct {
	jobs     <-chan bridge.Job
	db       *database.DB
	store    BlobStore
	provider Provider
	enricher Enricher
	opts     WorkerPoolOptions
	log      zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	completed atomic.Int64
	failed    atomic.Int64
	inFlight  atomic.Int32
}

// NewWorkerPool creates a transcription worker pool reading from jobs.
func NewWorkerPool(jobs <-chan bridge.Job, opts WorkerPoolOptions) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobs:     jobs,
		db:       opts.DB,
		store:    opts.Store,
		provider: opts.Provider,
		enricher: opts.Enricher,
		opts:     opts,
		log:      opts.Log.With().Str("component", "transcribe-pool").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	workers := wp.opts.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.log.Info().Int("workers", workers).Msg("transcription worker pool started")
}

// drainDeadline is how long Stop lets workers keep pulling and finishing
// queued jobs before cancelling whatever is still in flight (spec.md §5).
const drainDeadline = 30 * time.Second

// Stop drains the queue for up to drainDeadline, polling for the backlog
// to empty so an already-idle pool shuts down immediately rather than
// waiting out the full deadline. Once the deadline passes (or the queue
// empties first), it cancels whatever is still in flight and waits for
// workers to exit. The caller is responsible for no longer writing to the
// jobs channel before calling Stop.
func (wp *WorkerPool) Stop() {
	deadline := time.Now().Add(drainDeadline)
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	for len(wp.jobs) > 0 || wp.inFlight.Load() > 0 {
		if time.Now().After(deadline) {
			break
		}
		<-ticker.C
	}
	wp.cancel()
	wp.wg.Wait()
	wp.log.Info().
		Int64("completed", wp.completed.Load()).
		Int64("failed", wp.failed.Load()).
		Msg("transcription worker pool stopped")
}

// Stats returns current queue statistics, used by /api/stats (spec.md §6).
func (wp *WorkerPool) Stats() QueueStats {
	return QueueStats{
		Pending:   len(wp.jobs),
		Completed: wp.completed.Load(),
		Failed:    wp.failed.Load(),
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.With().Int("worker", id).Logger()

	for {
		select {
		case <-wp.ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			wp.inFlight.Add(1)
			err := wp.processJob(log, job)
			wp.inFlight.Add(-1)
			if err != nil {
				wp.failed.Add(1)
				if wp.ctx.Err() != nil {
					wp.markInterrupted(job, log)
				} else {
					log.Warn().Err(err).Int64("call_id", job.CallID).Str("segment_id", job.SegmentID).
						Msg("transcription failed")
				}
			} else {
				wp.completed.Add(1)
			}
		}
	}
}

// markInterrupted records that a job was cut short by the shutdown drain
// deadline rather than a real transcription failure (spec.md §5), using a
// fresh context since wp.ctx is already cancelled by the time this runs.
func (wp *WorkerPool) markInterrupted(job bridge.Job, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wp.db.PatchCallMetadata(ctx, job.CallID, map[string]any{"shutdownInterrupted": true}); err != nil {
		log.Warn().Err(err).Int64("call_id", job.CallID).Msg("failed to mark call shutdown-interrupted")
		return
	}
	log.Info().Int64("call_id", job.CallID).Str("segment_id", job.SegmentID).
		Msg("call interrupted by shutdown drain deadline")
}

func (wp *WorkerPool) processJob(log zerolog.Logger, job bridge.Job) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(wp.ctx, wp.opts.Timeout+10*time.Second)
	defer cancel()

	audioPath, cleanup, err := wp.materialize(ctx, job.SegmentID)
	if err != nil {
		return fmt.Errorf("materialize segment audio: %w", err)
	}
	defer cleanup()

	resp, err := wp.provider.Transcribe(ctx, audioPath, Options{
		Language:    wp.opts.Language,
		Temperature: 0,
		Prompt:      wp.opts.Prompt,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", wp.provider.Name(), err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		log.Debug().Int64("call_id", job.CallID).Msg("provider returned empty text, skipping")
		return wp.db.MarkSegmentProcessed(ctx, job.SegmentID)
	}

	if err := wp.db.MarkSegmentProcessed(ctx, job.SegmentID); err != nil {
		return fmt.Errorf("mark segment processed: %w", err)
	}

	if wp.enricher != nil {
		if err := wp.enricher.Enrich(ctx, job, text, resp.Confidence); err != nil {
			return fmt.Errorf("enrich call: %w", err)
		}
	}

	log.Debug().
		Int64("call_id", job.CallID).
		Str("segment_id", job.SegmentID).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("transcription complete")

	return nil
}

// materialize writes the segment's blob to a local temp file, since the STT
// provider API takes a file path. Returns a cleanup func that removes it.
func (wp *WorkerPool) materialize(ctx context.Context, segmentID string) (string, func(), error) {
	if local := wp.store.LocalPath(segmentID); local != "" {
		if _, err := os.Stat(local); err == nil {
			return local, func() {}, nil
		}
	}

	r, err := wp.store.Open(ctx, segmentID)
	if err != nil {
		return "", nil, err
	}
	defer r.Close()

	tmp, err := os.CreateTemp("", "dispatch-segment-*.wav")
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, err
	}
	tmp.Close()

	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

func readAudioFile(path string) ([]byte, error) {
	return os.ReadFile(filepath.Clean(path))
}
