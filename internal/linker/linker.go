package linker

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/audio"
	"github.com/scanwatch/dispatch-engine/internal/classify"
	"github.com/scanwatch/dispatch-engine/internal/database"
	"github.com/scanwatch/dispatch-engine/internal/geocode"
	"github.com/scanwatch/dispatch-engine/internal/postprocess"
	"github.com/scanwatch/dispatch-engine/internal/transcribe"
)

// mergeThreshold and maxMergeNeighbors are the §4.G merge-eligibility rule:
// score > 0.6, absorbing at most two neighbors into one primary call.
const (
	mergeThreshold    = 0.6
	maxMergeNeighbors = 2
)

// AudioStore is the subset of storage.AudioStore the linker needs to read
// the segments being merged and persist the merged result.
type AudioStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Save(ctx context.Context, key string, data []byte, contentType string) error
}

// Geocoder is the subset of *geocode.Geocoder the linker needs, narrowed
// for substitutability in tests.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocode.Coordinates, error)
}

// Linker recovers dispatches split across multiple segments on the same
// talkgroup (spec.md §4.G).
type Linker struct {
	db       *database.DB
	store    AudioStore
	provider transcribe.Provider
	geocoder Geocoder
	opts     transcribe.Options
	log      zerolog.Logger
}

// New builds a Linker. geocoder may be nil, in which case merged calls skip
// re-geocoding and keep whatever location string the post-processor found.
func New(db *database.DB, store AudioStore, provider transcribe.Provider, geocoder Geocoder, opts transcribe.Options, log zerolog.Logger) *Linker {
	return &Linker{
		db:       db,
		store:    store,
		provider: provider,
		geocoder: geocoder,
		opts:     opts,
		log:      log.With().Str("component", "call-linker").Logger(),
	}
}

// candidate pairs a linking candidate with its compatibility score.
type candidate struct {
	call  *database.Call
	score float64
}

// EvaluateAndMerge runs candidate selection and scoring for call, then
// merges up to two qualifying neighbors into it in descending score order.
// It returns the ids of calls absorbed into call.
func (l *Linker) EvaluateAndMerge(ctx context.Context, call *database.Call) ([]int64, error) {
	rows, err := l.db.CandidatesForLinking(ctx, call.Talkgroup, call.Timestamp, mergeWindow, call.ID)
	if err != nil {
		return nil, fmt.Errorf("load linking candidates: %w", err)
	}

	var scored []candidate
	for _, c := range rows {
		if s := CompatibilityScore(call, c); s > mergeThreshold {
			scored = append(scored, candidate{call: c, score: s})
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > maxMergeNeighbors {
		scored = scored[:maxMergeNeighbors]
	}

	var absorbed []int64
	primary := call
	for _, cand := range scored {
		updated, err := l.mergeOne(ctx, primary, cand.call)
		if err != nil {
			l.log.Warn().Err(err).Int64("primary", primary.ID).Int64("candidate", cand.call.ID).
				Msg("call merge failed")
			continue
		}
		absorbed = append(absorbed, cand.call.ID)
		primary = updated
	}
	return absorbed, nil
}

// mergeOne implements the §4.G merge steps for one primary/absorbed pair
// and returns the primary call reloaded with its merged state.
func (l *Linker) mergeOne(ctx context.Context, primary, absorbed *database.Call) (*database.Call, error) {
	primarySeg, err := l.db.GetAudioSegment(ctx, primary.AudioSegmentID)
	if err != nil || primarySeg == nil {
		return nil, fmt.Errorf("load primary segment: %w", err)
	}
	absorbedSeg, err := l.db.GetAudioSegment(ctx, absorbed.AudioSegmentID)
	if err != nil || absorbedSeg == nil {
		return nil, fmt.Errorf("load absorbed segment: %w", err)
	}

	first, second := primarySeg, absorbedSeg
	if absorbedSeg.CapturedAt.Before(primarySeg.CapturedAt) {
		first, second = absorbedSeg, primarySeg
	}

	firstBytes, err := l.readBlob(ctx, first.ID)
	if err != nil {
		return nil, err
	}
	secondBytes, err := l.readBlob(ctx, second.ID)
	if err != nil {
		return nil, err
	}

	merged, err := audio.ConcatWAV([][]byte{firstBytes, secondBytes})
	if err != nil {
		return nil, fmt.Errorf("concat audio: %w", err)
	}

	newSegmentID := fmt.Sprintf("merged_%d_%d", time.Now().Unix(), rand.Intn(1_000_000))
	if err := l.store.Save(ctx, newSegmentID, merged, "audio/wav"); err != nil {
		return nil, fmt.Errorf("save merged segment: %w", err)
	}

	newSeg := &database.AudioSegment{
		ID:          newSegmentID,
		BlobPath:    newSegmentID,
		ContentType: "audio/wav",
		DurationMs:  primarySeg.DurationMs + absorbedSeg.DurationMs,
		SampleRate:  first.SampleRate,
		Channels:    first.Channels,
		Talkgroup:   primary.Talkgroup,
		System:      primary.System,
		CapturedAt:  first.CapturedAt,
		DedupeKey:   newSegmentID,
	}
	if err := l.db.InsertAudioSegment(ctx, newSeg); err != nil {
		return nil, fmt.Errorf("persist merged segment: %w", err)
	}

	transcript, confidence, err := l.retranscribe(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("retranscribe merged segment: %w", err)
	}

	pp := postprocess.Process(transcript, confidence)
	cls := classify.Classify(pp)

	update := database.CallUpdate{
		Transcript:     pp.Cleaned,
		Confidence:     pp.Confidence,
		CallType:       cls.CallType,
		Keywords:       cls.Keywords,
		AcuityLevel:    cls.AcuityLevel,
		UrgencyScore:   cls.UrgencyScore,
		AudioSegmentID: &newSeg.ID,
		DurationMs:     &newSeg.DurationMs,
	}
	if cls.Location != "" {
		loc := cls.Location
		update.Location = &loc
		if l.geocoder != nil {
			if coords, err := l.geocoder.Geocode(ctx, loc); err == nil && coords != nil {
				update.Latitude = &coords.Latitude
				update.Longitude = &coords.Longitude
			}
		}
	}

	originalSegment := primary.AudioSegmentID
	if v, ok := primary.Metadata["originalSegment"].(string); ok && v != "" {
		originalSegment = v
	}
	linkedCalls := existingLinkedCalls(primary.Metadata)
	linkedCalls = append(linkedCalls, absorbed.ID)
	update.MetadataPatch = map[string]any{
		"linkedCalls":     linkedCalls,
		"originalSegment": originalSegment,
	}

	if err := l.db.MergeCalls(ctx, primary.ID, absorbed.ID, update); err != nil {
		return nil, fmt.Errorf("merge calls: %w", err)
	}
	if err := l.db.MarkSegmentProcessed(ctx, newSegmentID); err != nil {
		l.log.Warn().Err(err).Msg("failed to mark merged segment processed")
	}

	refreshed, err := l.db.GetCall(ctx, primary.ID)
	if err != nil {
		return nil, fmt.Errorf("reload merged primary call: %w", err)
	}
	return refreshed, nil
}

func (l *Linker) readBlob(ctx context.Context, segmentID string) ([]byte, error) {
	rc, err := l.store.Open(ctx, segmentID)
	if err != nil {
		return nil, fmt.Errorf("open segment %s: %w", segmentID, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// retranscribe runs the Transcription Worker's provider directly against
// in-memory merged audio, writing it to a scratch temp file first since
// Provider implementations read from a local path (§4.G step 3).
func (l *Linker) retranscribe(ctx context.Context, wav []byte) (string, float64, error) {
	if l.provider == nil {
		return "", 0, fmt.Errorf("no transcription provider configured")
	}
	tmp, err := os.CreateTemp("", "merged-*.wav")
	if err != nil {
		return "", 0, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(wav); err != nil {
		tmp.Close()
		return "", 0, err
	}
	tmp.Close()

	resp, err := l.provider.Transcribe(ctx, tmp.Name(), l.opts)
	if err != nil {
		return "", 0, err
	}
	return resp.Text, resp.Confidence, nil
}

func existingLinkedCalls(metadata map[string]any) []int64 {
	raw, ok := metadata["linkedCalls"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(items))
	for _, v := range items {
		switch n := v.(type) {
		case float64:
			out = append(out, int64(n))
		case int64:
			out = append(out, n)
		}
	}
	return out
}
