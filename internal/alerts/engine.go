// Package alerts implements the §4.J Alert Engine: per-call rule
// evaluation invoked on every terminal Call write, plus a periodic scan for
// pattern-based and statistical anomalies.
package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

// Store is the subset of *database.DB the Alert Engine needs.
type Store interface {
	ActiveAlertRules(ctx context.Context) ([]*database.AlertRule, error)
	IncrementRuleTriggerCount(ctx context.Context, ruleID int64) error
	InsertAlert(ctx context.Context, a *database.Alert) (int64, error)
	SweepExpiredAlerts(ctx context.Context) (int64, error)
	CountCallsByTypeSince(ctx context.Context, callType string, since time.Time) (int, error)
	CountCallsByLocationSince(ctx context.Context, location string, since time.Time) (int, error)
	RecentCallsForScan(ctx context.Context, since time.Time) ([]database.ScanCall, error)
	DailyCallTypeCounts(ctx context.Context, callType string, since, until time.Time) (map[string]int, error)
}

// Engine evaluates AlertRules against individual calls and runs the
// periodic pattern/anomaly scan (spec.md §4.J).
type Engine struct {
	store Store
	log   zerolog.Logger
}

// New builds an Engine.
func New(store Store, log zerolog.Logger) *Engine {
	return &Engine{store: store, log: log.With().Str("component", "alert-engine").Logger()}
}

// EvaluateCall runs every active rule against call (§4.J per-call
// evaluation), invoked on every terminal Call write. `pattern` rules are
// skipped here; they are only evaluated by the periodic scan.
func (e *Engine) EvaluateCall(ctx context.Context, call *database.Call) error {
	rules, err := e.store.ActiveAlertRules(ctx)
	if err != nil {
		return fmt.Errorf("load active alert rules: %w", err)
	}

	for _, rule := range rules {
		matched, err := e.evaluateRule(ctx, rule, call)
		if err != nil {
			e.log.Warn().Err(err).Str("rule", rule.Name).Msg("alert rule evaluation failed")
			continue
		}
		if !matched {
			continue
		}
		if err := e.fire(ctx, rule, call); err != nil {
			e.log.Warn().Err(err).Str("rule", rule.Name).Msg("failed to persist alert")
		}
	}
	return nil
}

func (e *Engine) evaluateRule(ctx context.Context, rule *database.AlertRule, call *database.Call) (bool, error) {
	switch rule.RuleType {
	case database.RuleTypeKeyword:
		return matchesKeyword(rule.Conditions, call), nil
	case database.RuleTypeThreshold:
		return e.matchesThreshold(ctx, rule.Conditions, call)
	case database.RuleTypeAnomaly:
		return e.matchesDuplicateAddress(ctx, rule.Conditions, call)
	case database.RuleTypePattern:
		return false, nil
	default:
		return false, nil
	}
}

func matchesKeyword(conditions map[string]any, call *database.Call) bool {
	keywords := stringSlice(conditions["keywords"])
	haystack := strings.ToLower(call.Transcript + " " + call.CallType)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func (e *Engine) matchesThreshold(ctx context.Context, conditions map[string]any, call *database.Call) (bool, error) {
	callType := stringVal(conditions["callType"])
	if callType == "" {
		callType = call.CallType
	}
	window := time.Duration(floatVal(conditions["timeWindowMinutes"], 60)) * time.Minute
	threshold := int(floatVal(conditions["threshold"], 1))

	count, err := e.store.CountCallsByTypeSince(ctx, callType, time.Now().Add(-window))
	if err != nil {
		return false, fmt.Errorf("count calls by type: %w", err)
	}
	return count >= threshold, nil
}

// matchesDuplicateAddress implements checkDuplicateAddresses: more than one
// call at the same normalized location within the rule's window (§4.J
// `anomaly` condition).
func (e *Engine) matchesDuplicateAddress(ctx context.Context, conditions map[string]any, call *database.Call) (bool, error) {
	if call.Location == nil || *call.Location == "" {
		return false, nil
	}
	window := time.Duration(floatVal(conditions["timeWindowMinutes"], 60)) * time.Minute

	count, err := e.store.CountCallsByLocationSince(ctx, strings.ToLower(*call.Location), time.Now().Add(-window))
	if err != nil {
		return false, fmt.Errorf("count calls by location: %w", err)
	}
	return count > 1, nil
}

func (e *Engine) fire(ctx context.Context, rule *database.AlertRule, call *database.Call) error {
	alert := buildAlert(rule, call)
	if _, err := e.store.InsertAlert(ctx, alert); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return e.store.IncrementRuleTriggerCount(ctx, rule.ID)
}

func buildAlert(rule *database.AlertRule, call *database.Call) *database.Alert {
	actions := rule.Actions

	alertType := stringVal(actions["type"])
	if alertType == "" {
		alertType = database.AlertTypeWarning
		if rule.RuleType == database.RuleTypeAnomaly || rule.RuleType == database.RuleTypeThreshold {
			alertType = database.AlertTypeAnomaly
		}
	}
	severity := stringVal(actions["severity"])
	if severity == "" {
		severity = database.SeverityMedium
	}
	title := stringVal(actions["title"])
	if title == "" {
		title = rule.Name
	}
	message := renderTemplate(stringVal(actions["message"]), call)

	var expiresAt *time.Time
	if mins := floatVal(actions["expiresInMinutes"], 0); mins > 0 {
		t := time.Now().Add(time.Duration(mins) * time.Minute)
		expiresAt = &t
	}

	callID := call.ID
	return &database.Alert{
		Type:            alertType,
		Severity:        severity,
		Category:        stringVal(actions["category"]),
		Title:           renderTemplate(title, call),
		Message:         message,
		RelatedCallID:   &callID,
		RelatedData:     map[string]any{"rule": rule.Name},
		ExpiresAt:       expiresAt,
		SoundEnabled:    boolVal(actions["soundEnabled"], severity == database.SeverityHigh || severity == database.SeverityCritical),
		VisualHighlight: boolVal(actions["visualHighlight"], true),
	}
}

func stringVal(v any) string {
	s, _ := v.(string)
	return s
}

func floatVal(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

func boolVal(v any, def bool) bool {
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
