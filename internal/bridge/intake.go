package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/audio"
	"github.com/scanwatch/dispatch-engine/internal/database"
)

// Job is a newly-ingested segment ready for transcription (§4.B step 4 hands
// off to §4.C).
type Job struct {
	SegmentID string
	CallID    int64
	Talkgroup int
	System    string
	CapturedAt time.Time
}

// Store is the subset of storage.AudioStore the Segment Source needs.
type Store interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
}

// Intake is the Segment Source (§4.B): it normalizes whatever a transport
// hands it, drops duplicates, persists the blob, and reserves a preliminary
// Call row before queueing the segment for transcription.
type Intake struct {
	db       *database.DB
	store    Store
	dedupe   *dedupeCache
	jobs     chan Job
	fetchTO  time.Duration
	rawIsPCM bool
	sampleRate int
	channels   int
	log      zerolog.Logger

	allowedSystems    map[string]bool
	allowedTalkgroups map[int]bool
}

// Options configures Intake construction.
type Options struct {
	DedupeCacheSize   int
	QueueSize         int
	AudioFetchTimeout time.Duration
	RawIsPCM          bool
	SampleRate        int
	Channels          int
	AllowedSystems    []string
	AllowedTalkgroups []string
}

// NewIntake builds an Intake. An empty allow-list means "accept everything"
// (spec.md §6 SCANNER_SYSTEMS/SCANNER_TALKGROUPS are optional filters).
func NewIntake(db *database.DB, store Store, opts Options, log zerolog.Logger) (*Intake, error) {
	dc, err := newDedupeCache(opts.DedupeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("dedupe cache: %w", err)
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}

	in := &Intake{
		db:         db,
		store:      store,
		dedupe:     dc,
		jobs:       make(chan Job, queueSize),
		fetchTO:    opts.AudioFetchTimeout,
		rawIsPCM:   opts.RawIsPCM,
		sampleRate: opts.SampleRate,
		channels:   opts.Channels,
		log:        log.With().Str("component", "intake").Logger(),
	}
	if len(opts.AllowedSystems) > 0 {
		in.allowedSystems = toSet(opts.AllowedSystems)
	}
	if len(opts.AllowedTalkgroups) > 0 {
		in.allowedTalkgroups = toIntSet(opts.AllowedTalkgroups)
	}
	return in, nil
}

// Jobs returns the channel the transcription worker pool reads from.
func (in *Intake) Jobs() <-chan Job { return in.jobs }

// Accept processes one scanner "call" message end to end. It never returns
// an error for a dropped duplicate — that's the expected happy path, logged
// at debug level, per §4.B step 1.
func (in *Intake) Accept(ctx context.Context, d CallData) error {
	if in.allowedSystems != nil && !in.allowedSystems[d.System] {
		return nil
	}
	if in.allowedTalkgroups != nil && !in.allowedTalkgroups[d.Talkgroup] {
		return nil
	}

	key := DedupeKey(d.System, d.Talkgroup, d.DateTime)
	if in.dedupe.Seen(key) {
		in.log.Debug().Str("dedupe_key", key).Msg("dropped duplicate segment (memory cache)")
		return nil
	}
	if exists, err := in.db.SegmentExistsByDedupeKey(ctx, key); err != nil {
		return fmt.Errorf("dedupe db lookup: %w", err)
	} else if exists {
		in.log.Debug().Str("dedupe_key", key).Msg("dropped duplicate segment (db fallback)")
		return nil
	}

	capturedAt, err := parseCapturedAt(d.DateTime)
	if err != nil {
		return fmt.Errorf("parse call dateTime: %w", err)
	}

	payload, err := ParseAudioPayload(d.Audio)
	if err != nil {
		return fmt.Errorf("parse audio payload: %w", err)
	}
	norm, err := audio.Resolve(ctx, payload, in.fetchTO, in.rawIsPCM, in.sampleRate, in.channels)
	if err != nil {
		return fmt.Errorf("resolve audio payload: %w", err)
	}

	segID := uuid.NewString()
	if !norm.IsEmpty {
		blobKey := segID
		if err := in.store.Save(ctx, blobKey, norm.Bytes, norm.ContentType); err != nil {
			return fmt.Errorf("save segment blob: %w", err)
		}
	}

	seg := &database.AudioSegment{
		ID:          segID,
		BlobPath:    segID,
		ContentType: norm.ContentType,
		DurationMs:  int(d.Duration * 1000),
		SampleRate:  in.sampleRate,
		Channels:    int16(in.channels),
		Talkgroup:   d.Talkgroup,
		System:      d.System,
		CapturedAt:  capturedAt,
		Processed:   false,
		DedupeKey:   key,
	}
	if err := in.db.InsertAudioSegment(ctx, seg); err != nil {
		if err == database.ErrDuplicateSegment {
			in.log.Debug().Str("dedupe_key", key).Msg("dropped duplicate segment (unique constraint race)")
			return nil
		}
		return fmt.Errorf("insert audio segment: %w", err)
	}

	callID, err := in.db.InsertPreliminaryCall(ctx, segID, capturedAt, d.Talkgroup, d.System)
	if err != nil {
		return fmt.Errorf("insert preliminary call: %w", err)
	}

	job := Job{SegmentID: segID, CallID: callID, Talkgroup: d.Talkgroup, System: d.System, CapturedAt: capturedAt}
	select {
	case in.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	default:
		in.log.Warn().Str("segment_id", segID).Msg("transcription queue full, blocking until space frees")
		select {
		case in.jobs <- job:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	in.log.Info().Str("segment_id", segID).Int64("call_id", callID).
		Int("talkgroup", d.Talkgroup).Str("system", d.System).Msg("segment ingested")
	return nil
}

func parseCapturedAt(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized dateTime format %q", s)
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[s] = true
	}
	return m
}

func toIntSet(items []string) map[int]bool {
	m := make(map[int]bool, len(items))
	for _, s := range items {
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
			m[n] = true
		}
	}
	return m
}
