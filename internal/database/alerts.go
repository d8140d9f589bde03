package database

import (
	"context"
	"encoding/json"
	"time"
)

// InsertAlert persists a new Alert, owned exclusively by the Alert Engine (§3).
func (db *DB) InsertAlert(ctx context.Context, a *Alert) (int64, error) {
	related, err := json.Marshal(a.RelatedData)
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO alerts
			(type, severity, category, title, message, related_call_id, related_data,
			 expires_at, sound_enabled, visual_highlight)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`, a.Type, a.Severity, a.Category, a.Title, a.Message, a.RelatedCallID, related,
		a.ExpiresAt, a.SoundEnabled, a.VisualHighlight).Scan(&id)
	return id, err
}

// UnreadAlerts returns alerts that haven't been marked read, newest first,
// for /api/alerts/unread (§6).
func (db *DB) UnreadAlerts(ctx context.Context, limit int) ([]*Alert, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, type, severity, category, title, message, related_call_id, related_data,
		       created_at, expires_at, acknowledged, read, sound_enabled, visual_highlight
		FROM alerts
		WHERE read = FALSE AND (expires_at IS NULL OR expires_at > now())
		ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Alert
	for rows.Next() {
		var a Alert
		var raw []byte
		if err := rows.Scan(&a.ID, &a.Type, &a.Severity, &a.Category, &a.Title, &a.Message,
			&a.RelatedCallID, &raw, &a.CreatedAt, &a.ExpiresAt, &a.Acknowledged, &a.Read,
			&a.SoundEnabled, &a.VisualHighlight); err != nil {
			return nil, err
		}
		a.RelatedData = map[string]any{}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &a.RelatedData)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// SweepExpiredAlerts deletes alerts past their expiresAt (§8 invariant: an
// expired alert is absent from queries within one sweep interval).
func (db *DB) SweepExpiredAlerts(ctx context.Context) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM alerts WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ActiveAlertRules returns enabled rules ordered by priority, for per-call
// evaluation (§4.J).
func (db *DB) ActiveAlertRules(ctx context.Context) ([]*AlertRule, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, rule_type, conditions, actions, priority, active, trigger_count
		FROM alert_rules WHERE active = TRUE ORDER BY priority DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AlertRule
	for rows.Next() {
		var r AlertRule
		var cond, act []byte
		if err := rows.Scan(&r.ID, &r.Name, &r.RuleType, &cond, &act, &r.Priority, &r.Active, &r.TriggerCount); err != nil {
			return nil, err
		}
		r.Conditions = map[string]any{}
		r.Actions = map[string]any{}
		_ = json.Unmarshal(cond, &r.Conditions)
		_ = json.Unmarshal(act, &r.Actions)
		out = append(out, &r)
	}
	return out, rows.Err()
}

// IncrementRuleTriggerCount bumps triggerCount when a rule fires.
func (db *DB) IncrementRuleTriggerCount(ctx context.Context, ruleID int64) error {
	_, err := db.Pool.Exec(ctx, `UPDATE alert_rules SET trigger_count = trigger_count + 1 WHERE id = $1`, ruleID)
	return err
}

// ScanCall is the lightweight projection of recent calls that
// RecentCallsForScan loads for the periodic pattern scan (§4.J), avoiding a
// full Call scan per rule.
type ScanCall struct {
	ID        int64
	CallType  string
	Location  string
	Latitude  *float64
	Longitude *float64
	Timestamp time.Time
}

func (db *DB) RecentCallsForScan(ctx context.Context, since time.Time) ([]ScanCall, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, call_type, coalesce(location, ''), latitude, longitude, timestamp
		FROM calls WHERE status <> 'merged' AND timestamp >= $1
		ORDER BY timestamp ASC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ScanCall
	for rows.Next() {
		var c ScanCall
		if err := rows.Scan(&c.ID, &c.CallType, &c.Location, &c.Latitude, &c.Longitude, &c.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DailyCallTypeCounts returns per-day counts of callType over [since, until)
// for the z-score anomaly scan (§4.J).
func (db *DB) DailyCallTypeCounts(ctx context.Context, callType string, since, until time.Time) (map[string]int, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT date_trunc('day', timestamp)::date::text AS day, count(*)
		FROM calls
		WHERE call_type = $1 AND status <> 'merged' AND timestamp >= $2 AND timestamp < $3
		GROUP BY day
	`, callType, since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		out[day] = n
	}
	return out, rows.Err()
}
