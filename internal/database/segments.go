package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrDuplicateSegment is returned by InsertAudioSegment when the dedupe key
// already exists — the caller should treat this as a successful no-op drop,
// not a failure (spec.md §4.B dedupe, §8 idempotence).
var ErrDuplicateSegment = errors.New("audio segment dedupe key already exists")

// InsertAudioSegment persists a new segment row. Returns ErrDuplicateSegment
// if dedupe_key collides with an existing row.
func (db *DB) InsertAudioSegment(ctx context.Context, s *AudioSegment) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO audio_segments
			(id, blob_path, content_type, duration_ms, sample_rate, channels,
			 talkgroup, system, captured_at, processed, dedupe_key)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, s.ID, s.BlobPath, s.ContentType, s.DurationMs, s.SampleRate, s.Channels,
		s.Talkgroup, s.System, s.CapturedAt, s.Processed, s.DedupeKey)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateSegment
	}
	return err
}

// SegmentExistsByDedupeKey checks the durable store for a prior ingest of
// the same system|talkgroup|dateTime key, used as the fallback after an LRU
// miss (the in-memory cache is sized for recent traffic only).
func (db *DB) SegmentExistsByDedupeKey(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM audio_segments WHERE dedupe_key = $1)`, key,
	).Scan(&exists)
	return exists, err
}

// MarkSegmentProcessed flips the processed flag — the only mutation allowed
// on an AudioSegment after creation (§3 ownership rules).
func (db *DB) MarkSegmentProcessed(ctx context.Context, id string) error {
	_, err := db.Pool.Exec(ctx, `UPDATE audio_segments SET processed = TRUE WHERE id = $1`, id)
	return err
}

// GetAudioSegment loads a segment by id.
func (db *DB) GetAudioSegment(ctx context.Context, id string) (*AudioSegment, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, blob_path, content_type, duration_ms, sample_rate, channels,
		       talkgroup, system, captured_at, processed, dedupe_key
		FROM audio_segments WHERE id = $1
	`, id)
	var s AudioSegment
	err := row.Scan(&s.ID, &s.BlobPath, &s.ContentType, &s.DurationMs, &s.SampleRate,
		&s.Channels, &s.Talkgroup, &s.System, &s.CapturedAt, &s.Processed, &s.DedupeKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &s, err
}

func isUniqueViolation(err error) bool {
	return err != nil && pgErrCode(err) == "23505"
}
