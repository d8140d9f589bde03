package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

type fakeStore struct {
	rules            []*database.AlertRule
	alerts           []*database.Alert
	triggered        map[int64]int
	countsByType     map[string]int
	countsByLocation map[string]int
	recentCalls      []database.ScanCall
	dailyCounts      map[string]map[string]int
	sweepCount       int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		triggered:        map[int64]int{},
		countsByType:     map[string]int{},
		countsByLocation: map[string]int{},
		dailyCounts:      map[string]map[string]int{},
	}
}

func (f *fakeStore) ActiveAlertRules(ctx context.Context) ([]*database.AlertRule, error) {
	return f.rules, nil
}

func (f *fakeStore) IncrementRuleTriggerCount(ctx context.Context, ruleID int64) error {
	f.triggered[ruleID]++
	return nil
}

func (f *fakeStore) InsertAlert(ctx context.Context, a *database.Alert) (int64, error) {
	f.alerts = append(f.alerts, a)
	return int64(len(f.alerts)), nil
}

func (f *fakeStore) SweepExpiredAlerts(ctx context.Context) (int64, error) {
	return f.sweepCount, nil
}

func (f *fakeStore) CountCallsByTypeSince(ctx context.Context, callType string, since time.Time) (int, error) {
	return f.countsByType[callType], nil
}

func (f *fakeStore) CountCallsByLocationSince(ctx context.Context, location string, since time.Time) (int, error) {
	return f.countsByLocation[location], nil
}

func (f *fakeStore) RecentCallsForScan(ctx context.Context, since time.Time) ([]database.ScanCall, error) {
	return f.recentCalls, nil
}

func (f *fakeStore) DailyCallTypeCounts(ctx context.Context, callType string, since, until time.Time) (map[string]int, error) {
	return f.dailyCounts[callType], nil
}

func TestEvaluateCall_KeywordRuleFires(t *testing.T) {
	store := newFakeStore()
	store.rules = []*database.AlertRule{
		{ID: 1, Name: "mass casualty", RuleType: database.RuleTypeKeyword, Active: true,
			Conditions: map[string]any{"keywords": []any{"multiple patients"}},
			Actions:    map[string]any{"severity": "high", "message": "MCI keyword at {location}"}},
	}
	engine := New(store, zerolog.Nop())

	loc := "123 main street"
	call := &database.Call{ID: 7, Transcript: "reports of multiple patients down", Location: &loc}
	if err := engine.EvaluateCall(context.Background(), call); err != nil {
		t.Fatalf("EvaluateCall() error = %v", err)
	}

	if len(store.alerts) != 1 {
		t.Fatalf("alerts fired = %d, want 1", len(store.alerts))
	}
	if store.alerts[0].Message != "MCI keyword at 123 main street" {
		t.Errorf("alert message = %q, want template substitution applied", store.alerts[0].Message)
	}
	if store.triggered[1] != 1 {
		t.Errorf("rule trigger count = %d, want 1", store.triggered[1])
	}
}

func TestEvaluateCall_ThresholdRuleRequiresMinimumCount(t *testing.T) {
	store := newFakeStore()
	store.countsByType["Overdose"] = 2
	store.rules = []*database.AlertRule{
		{ID: 1, Name: "overdose threshold", RuleType: database.RuleTypeThreshold, Active: true,
			Conditions: map[string]any{"callType": "Overdose", "threshold": 3.0, "timeWindowMinutes": 120.0},
			Actions:    map[string]any{}},
	}
	engine := New(store, zerolog.Nop())

	call := &database.Call{ID: 1, CallType: "Overdose"}
	if err := engine.EvaluateCall(context.Background(), call); err != nil {
		t.Fatalf("EvaluateCall() error = %v", err)
	}
	if len(store.alerts) != 0 {
		t.Errorf("alerts fired = %d, want 0 below threshold", len(store.alerts))
	}

	store.countsByType["Overdose"] = 3
	if err := engine.EvaluateCall(context.Background(), call); err != nil {
		t.Fatalf("EvaluateCall() error = %v", err)
	}
	if len(store.alerts) != 1 {
		t.Errorf("alerts fired = %d, want 1 at threshold", len(store.alerts))
	}
}

func TestEvaluateCall_AnomalyRuleDuplicateAddress(t *testing.T) {
	store := newFakeStore()
	store.countsByLocation["123 main street"] = 2
	store.rules = []*database.AlertRule{
		{ID: 1, Name: "duplicate address", RuleType: database.RuleTypeAnomaly, Active: true,
			Conditions: map[string]any{"timeWindowMinutes": 60.0}, Actions: map[string]any{}},
	}
	engine := New(store, zerolog.Nop())

	loc := "123 main street"
	call := &database.Call{ID: 1, Location: &loc}
	if err := engine.EvaluateCall(context.Background(), call); err != nil {
		t.Fatalf("EvaluateCall() error = %v", err)
	}
	if len(store.alerts) != 1 {
		t.Errorf("alerts fired = %d, want 1 for duplicate address", len(store.alerts))
	}
}

func TestEvaluateCall_PatternRuleNeverFiresPerCall(t *testing.T) {
	store := newFakeStore()
	store.rules = []*database.AlertRule{
		{ID: 1, Name: "deferred", RuleType: database.RuleTypePattern, Active: true},
	}
	engine := New(store, zerolog.Nop())

	if err := engine.EvaluateCall(context.Background(), &database.Call{ID: 1}); err != nil {
		t.Fatalf("EvaluateCall() error = %v", err)
	}
	if len(store.alerts) != 0 {
		t.Errorf("alerts fired = %d, want 0 (pattern rules are scan-only)", len(store.alerts))
	}
}
