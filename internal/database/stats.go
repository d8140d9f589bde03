package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// CallStats is the aggregate payload for /api/stats and the Live Hub's
// periodic stats_update frame.
type CallStats struct {
	ActiveCalls                 int            `json:"activeCalls"`
	CallsToday                  int            `json:"callsToday"`
	CallsByType                 map[string]int `json:"callsByType"`
	AvgConfidenceToday          float64        `json:"avgConfidenceToday"`
	HospitalConversationsActive int            `json:"hospitalConversationsActive"`
	AlertsUnread                int            `json:"alertsUnread"`
}

// Stats computes the /api/stats snapshot (§6).
func (db *DB) Stats(ctx context.Context) (*CallStats, error) {
	since := time.Now().Add(-24 * time.Hour)
	s := &CallStats{CallsByType: map[string]int{}}

	if err := db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM calls WHERE status <> 'merged'
	`).Scan(&s.ActiveCalls); err != nil {
		return nil, err
	}

	if err := db.Pool.QueryRow(ctx, `
		SELECT count(*), coalesce(avg(confidence), 0)
		FROM calls WHERE status <> 'merged' AND timestamp >= $1
	`, since).Scan(&s.CallsToday, &s.AvgConfidenceToday); err != nil {
		return nil, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT call_type, count(*) FROM calls
		WHERE status <> 'merged' AND timestamp >= $1
		GROUP BY call_type
	`, since)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var callType string
		var n int
		if err := rows.Scan(&callType, &n); err != nil {
			rows.Close()
			return nil, err
		}
		s.CallsByType[callType] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM hospital_conversations WHERE status = 'active'
	`).Scan(&s.HospitalConversationsActive); err != nil {
		return nil, err
	}

	if err := db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM alerts WHERE read = FALSE AND (expires_at IS NULL OR expires_at > now())
	`).Scan(&s.AlertsUnread); err != nil {
		return nil, err
	}

	return s, nil
}

// ListHospitalConversations returns hospital conversations newest-first for
// /api/hospital-calls, optionally filtered by status ("" = all).
func (db *DB) ListHospitalConversations(ctx context.Context, status string, limit int) ([]*HospitalConversation, error) {
	var rows pgx.Rows
	var err error
	if status == "" {
		rows, err = db.Pool.Query(ctx, `
			SELECT id, conversation_id, talkgroup, hospital_name, status,
			       first_segment_at, last_segment_at, sor_detected, sor_physician
			FROM hospital_conversations
			ORDER BY last_segment_at DESC LIMIT $1
		`, limit)
	} else {
		rows, err = db.Pool.Query(ctx, `
			SELECT id, conversation_id, talkgroup, hospital_name, status,
			       first_segment_at, last_segment_at, sor_detected, sor_physician
			FROM hospital_conversations
			WHERE status = $1
			ORDER BY last_segment_at DESC LIMIT $2
		`, status, limit)
	}
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

// MedicalDirectorInsights aggregates hospital-conversation SOR activity for
// /api/analytics/medical-director-insights (§6, supplements the spec's SOR
// detection with the analytics view a medical director would actually use).
type MedicalDirectorInsights struct {
	TotalConversations int            `json:"totalConversations"`
	SORConversations   int            `json:"sorConversations"`
	SORRate            float64        `json:"sorRate"`
	ByPhysician        map[string]int `json:"byPhysician"`
}

// MedicalDirectorInsightsSince computes SOR rates and physician contact counts
// over the trailing window.
func (db *DB) MedicalDirectorInsightsSince(ctx context.Context, since time.Time) (*MedicalDirectorInsights, error) {
	ins := &MedicalDirectorInsights{ByPhysician: map[string]int{}}

	if err := db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM hospital_conversations WHERE first_segment_at >= $1
	`, since).Scan(&ins.TotalConversations); err != nil {
		return nil, err
	}

	if err := db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM hospital_conversations WHERE first_segment_at >= $1 AND sor_detected = TRUE
	`, since).Scan(&ins.SORConversations); err != nil {
		return nil, err
	}
	if ins.TotalConversations > 0 {
		ins.SORRate = float64(ins.SORConversations) / float64(ins.TotalConversations)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT sor_physician, count(*) FROM hospital_conversations
		WHERE first_segment_at >= $1 AND sor_detected = TRUE AND sor_physician IS NOT NULL
		GROUP BY sor_physician
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var physician string
		var n int
		if err := rows.Scan(&physician, &n); err != nil {
			return nil, err
		}
		ins.ByPhysician[physician] = n
	}
	return ins, rows.Err()
}
