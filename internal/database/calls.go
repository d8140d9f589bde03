package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrAlreadyMerged is an Invariant-class error (§7): a Call that is already
// merged cannot be merged again.
var ErrAlreadyMerged = errors.New("call is already merged")

// InsertPreliminaryCall reserves a Call id for a freshly-seen segment,
// before transcription has run (§4.B step 4).
func (db *DB) InsertPreliminaryCall(ctx context.Context, segmentID string, ts time.Time, talkgroup int, system string) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO calls (audio_segment_id, timestamp, talkgroup, system, call_type, transcript, confidence)
		VALUES ($1,$2,$3,$4,'Scanner Audio','',0)
		RETURNING id
	`, segmentID, ts, talkgroup, system).Scan(&id)
	return id, err
}

// CallUpdate carries the Post-Processor/Classifier/Geocoder output that
// UpdateCallEnrichment writes back onto a Call row (§4.C step 4).
type CallUpdate struct {
	Transcript    string
	Confidence    float64
	CallType      string
	Location      *string
	Latitude      *float64
	Longitude     *float64
	Keywords      []string
	AcuityLevel   string
	UrgencyScore  float64
	MetadataPatch map[string]any

	// AudioSegmentID and DurationMs, when set, repoint the primary Call at a
	// newly-concatenated merged audio segment (§4.G step 4). Left nil/zero
	// for an ordinary enrichment update, which never touches these columns.
	AudioSegmentID *string
	DurationMs     *int
}

func (db *DB) UpdateCallEnrichment(ctx context.Context, callID int64, u CallUpdate) error {
	patch, err := json.Marshal(u.MetadataPatch)
	if err != nil {
		return fmt.Errorf("marshal metadata patch: %w", err)
	}
	_, err = db.Pool.Exec(ctx, `
		UPDATE calls SET
			transcript = $2, confidence = $3, call_type = $4, location = $5,
			latitude = $6, longitude = $7, keywords = $8, acuity_level = $9,
			urgency_score = $10, metadata = metadata || $11::jsonb, updated_at = now()
		WHERE id = $1
	`, callID, u.Transcript, u.Confidence, u.CallType, u.Location,
		u.Latitude, u.Longitude, u.Keywords, orUnknownAcuity(u.AcuityLevel), u.UrgencyScore, patch)
	return err
}

// PatchCallMetadata merges patch into a Call's metadata without touching
// its transcript/classification fields, used to mark a Call interrupted by
// shutdown (§5) without clobbering whatever enrichment already landed.
func (db *DB) PatchCallMetadata(ctx context.Context, callID int64, patch map[string]any) error {
	b, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal metadata patch: %w", err)
	}
	_, err = db.Pool.Exec(ctx, `
		UPDATE calls SET metadata = metadata || $2::jsonb, updated_at = now()
		WHERE id = $1
	`, callID, b)
	return err
}

func orUnknownAcuity(a string) string {
	if a == "" {
		return AcuityUnknown
	}
	return a
}

// GetCall loads a single call by id.
func (db *DB) GetCall(ctx context.Context, id int64) (*Call, error) {
	row := db.Pool.QueryRow(ctx, callSelectCols+` WHERE id = $1`, id)
	c, err := scanCall(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

const callSelectCols = `
	SELECT id, audio_segment_id, timestamp, talkgroup, system, frequency, duration_ms,
	       transcript, confidence, call_type, location, latitude, longitude,
	       keywords, acuity_level, urgency_score, status, metadata, created_at, updated_at
	FROM calls`

func scanCall(row pgx.Row) (*Call, error) {
	var c Call
	var metaRaw []byte
	if err := row.Scan(&c.ID, &c.AudioSegmentID, &c.Timestamp, &c.Talkgroup, &c.System,
		&c.Frequency, &c.DurationMs, &c.Transcript, &c.Confidence, &c.CallType, &c.Location,
		&c.Latitude, &c.Longitude, &c.Keywords, &c.AcuityLevel, &c.UrgencyScore, &c.Status,
		&metaRaw, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Metadata = map[string]any{}
	if len(metaRaw) > 0 {
		_ = json.Unmarshal(metaRaw, &c.Metadata)
	}
	return &c, nil
}

// CandidatesForLinking returns non-merged calls on the same talkgroup within
// ±windowSeconds of ts, excluding excludeID (§4.G candidate selection).
func (db *DB) CandidatesForLinking(ctx context.Context, talkgroup int, ts time.Time, window time.Duration, excludeID int64) ([]*Call, error) {
	rows, err := db.Pool.Query(ctx, callSelectCols+`
		WHERE talkgroup = $1 AND status <> 'merged' AND id <> $2
		  AND timestamp BETWEEN $3 AND $4
		ORDER BY timestamp ASC
	`, talkgroup, excludeID, ts.Add(-window), ts.Add(window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MergeCalls absorbs absorbedID into primaryID: updates the primary's
// transcript/fields, linkedCalls metadata, and (when update carries them)
// its audio_segment_id/duration_ms to point at the linker's newly-merged
// audio segment, then marks absorbedID merged with mergedInto set. Runs
// inside a transaction and enforces the §8 invariant that a call may not be
// merged twice in either direction: both rows are locked and checked before
// either is written, so two concurrent merges can't use the same call as
// primary in one and absorbed in the other.
func (db *DB) MergeCalls(ctx context.Context, primaryID, absorbedID int64, update CallUpdate) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Lock both rows in a fixed order (ascending id) to avoid deadlocking
	// against a concurrent merge locking the same pair in reverse.
	lo, hi := primaryID, absorbedID
	if lo > hi {
		lo, hi = hi, lo
	}
	statuses := make(map[int64]string, 2)
	for _, id := range [2]int64{lo, hi} {
		var status string
		if err := tx.QueryRow(ctx, `SELECT status FROM calls WHERE id = $1 FOR UPDATE`, id).Scan(&status); err != nil {
			return err
		}
		statuses[id] = status
	}
	if statuses[primaryID] == CallStatusMerged || statuses[absorbedID] == CallStatusMerged {
		return ErrAlreadyMerged
	}

	patch, err := json.Marshal(update.MetadataPatch)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE calls SET transcript=$2, confidence=$3, call_type=$4, location=$5,
			latitude=$6, longitude=$7, keywords=$8, acuity_level=$9, urgency_score=$10,
			audio_segment_id = COALESCE($11, audio_segment_id),
			duration_ms = COALESCE($12, duration_ms),
			metadata = metadata || $13::jsonb, updated_at = now()
		WHERE id = $1
	`, primaryID, update.Transcript, update.Confidence, update.CallType, update.Location,
		update.Latitude, update.Longitude, update.Keywords, orUnknownAcuity(update.AcuityLevel),
		update.UrgencyScore, update.AudioSegmentID, update.DurationMs, patch); err != nil {
		return err
	}

	mergedMeta, _ := json.Marshal(map[string]any{"mergedInto": primaryID})
	if _, err := tx.Exec(ctx, `
		UPDATE calls SET status='merged', metadata = metadata || $2::jsonb, updated_at = now()
		WHERE id = $1
	`, absorbedID, mergedMeta); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SetCallStatus transitions status (active→cleared, etc). Once cleared or
// merged, callers must not invoke this again for fields other than metadata
// (enforced by convention at the component layer, per §3 ownership rules).
func (db *DB) SetCallStatus(ctx context.Context, id int64, status string) error {
	_, err := db.Pool.Exec(ctx, `UPDATE calls SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

// AttachUnit links a Call to a UnitTag (§4.I).
func (db *DB) AttachUnit(ctx context.Context, callID, unitID int64) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO call_units (call_id, unit_id) VALUES ($1,$2)
		ON CONFLICT DO NOTHING
	`, callID, unitID)
	return err
}

// CountCallsByTypeSince counts non-merged calls of callType in the last window (§4.J threshold rule).
func (db *DB) CountCallsByTypeSince(ctx context.Context, callType string, since time.Time) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM calls WHERE call_type = $1 AND status <> 'merged' AND timestamp >= $2
	`, callType, since).Scan(&n)
	return n, err
}

// CountCallsByLocationSince counts non-merged calls sharing a normalized
// location in the last window (§4.J checkDuplicateAddresses).
func (db *DB) CountCallsByLocationSince(ctx context.Context, location string, since time.Time) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM calls WHERE location = $1 AND status <> 'merged' AND timestamp >= $2
	`, location, since).Scan(&n)
	return n, err
}

// ActiveCalls returns non-merged calls ordered by recency, for the initial
// Live Hub snapshot and /api/calls/active.
func (db *DB) ActiveCalls(ctx context.Context, limit int) ([]*Call, error) {
	rows, err := db.Pool.Query(ctx, callSelectCols+`
		WHERE status <> 'merged' ORDER BY timestamp DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SearchCalls supports the `search_calls` Live Hub request and /api/calls?search=.
func (db *DB) SearchCalls(ctx context.Context, query string, limit int) ([]*Call, error) {
	rows, err := db.Pool.Query(ctx, callSelectCols+`
		WHERE status <> 'merged' AND (transcript ILIKE $1 OR location ILIKE $1 OR call_type ILIKE $1)
		ORDER BY timestamp DESC LIMIT $2
	`, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
