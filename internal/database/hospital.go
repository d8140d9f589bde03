package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// ActiveHospitalConversations returns open conversations for a talkgroup,
// ordered by last activity (§4.H step 1).
func (db *DB) ActiveHospitalConversations(ctx context.Context, talkgroup int) ([]*HospitalConversation, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, conversation_id, talkgroup, hospital_name, status,
		       first_segment_at, last_segment_at, sor_detected, sor_physician
		FROM hospital_conversations
		WHERE talkgroup = $1 AND status = 'active'
		ORDER BY last_segment_at DESC
	`, talkgroup)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*HospitalConversation
	for rows.Next() {
		hc, err := scanHospitalConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, hc)
	}
	return out, rows.Err()
}

func scanHospitalConversation(row pgx.Row) (*HospitalConversation, error) {
	var hc HospitalConversation
	err := row.Scan(&hc.ID, &hc.ConversationID, &hc.Talkgroup, &hc.HospitalName, &hc.Status,
		&hc.FirstSegmentAt, &hc.LastSegmentAt, &hc.SORDetected, &hc.SORPhysician)
	return &hc, err
}

// CreateHospitalConversation opens a new conversation (§4.H step 3).
func (db *DB) CreateHospitalConversation(ctx context.Context, conversationID string, talkgroup int, ts time.Time) (*HospitalConversation, error) {
	hc := &HospitalConversation{
		ConversationID: conversationID,
		Talkgroup:      talkgroup,
		Status:         HospitalConvActive,
		FirstSegmentAt: ts,
		LastSegmentAt:  ts,
	}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO hospital_conversations (conversation_id, talkgroup, status, first_segment_at, last_segment_at)
		VALUES ($1,$2,'active',$3,$3)
		RETURNING id
	`, conversationID, talkgroup, ts).Scan(&hc.ID)
	return hc, err
}

// AppendHospitalSegment inserts a segment at the next sequence number and
// extends the conversation's window (§4.H step 2).
func (db *DB) AppendHospitalSegment(ctx context.Context, conversationID string, audioSegmentID, transcript string, confidence float64, ts time.Time) (int, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var nextSeq int
	if err := tx.QueryRow(ctx, `
		SELECT coalesce(max(sequence_number), 0) + 1 FROM hospital_segments WHERE conversation_id = $1
	`, conversationID).Scan(&nextSeq); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO hospital_segments (conversation_id, sequence_number, audio_segment_id, transcript, confidence, timestamp)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, conversationID, nextSeq, audioSegmentID, transcript, confidence, ts); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE hospital_conversations
		SET first_segment_at = least(first_segment_at, $2), last_segment_at = greatest(last_segment_at, $2)
		WHERE conversation_id = $1
	`, conversationID, ts); err != nil {
		return 0, err
	}

	return nextSeq, tx.Commit(ctx)
}

// HospitalSegmentsForConversation returns all segments of a conversation in order.
func (db *DB) HospitalSegmentsForConversation(ctx context.Context, conversationID string) ([]*HospitalSegment, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, conversation_id, sequence_number, audio_segment_id, transcript, confidence, timestamp
		FROM hospital_segments WHERE conversation_id = $1 ORDER BY sequence_number ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*HospitalSegment
	for rows.Next() {
		var s HospitalSegment
		if err := rows.Scan(&s.ID, &s.ConversationID, &s.SequenceNumber, &s.AudioSegmentID,
			&s.Transcript, &s.Confidence, &s.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// SetHospitalSOR updates sorDetected/sorPhysician on a conversation (§4.H SOR detection).
func (db *DB) SetHospitalSOR(ctx context.Context, conversationID string, detected bool, physician *string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE hospital_conversations SET sor_detected = $2, sor_physician = $3 WHERE conversation_id = $1
	`, conversationID, detected, physician)
	return err
}

// CompleteIdleHospitalConversations closes conversations whose last segment
// is older than idleAfter (§4.H step 4).
func (db *DB) CompleteIdleHospitalConversations(ctx context.Context, idleAfter time.Duration) (int64, error) {
	cutoff := time.Now().Add(-idleAfter)
	tag, err := db.Pool.Exec(ctx, `
		UPDATE hospital_conversations SET status = 'completed'
		WHERE status = 'active' AND last_segment_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
