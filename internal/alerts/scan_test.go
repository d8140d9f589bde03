package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/database"
	"github.com/scanwatch/dispatch-engine/internal/taxonomy"
)

func TestScanOverdoseSpike_EmitsHighSeverityAlert(t *testing.T) {
	store := newFakeStore()
	store.countsByType[taxonomy.Overdose] = 3
	engine := New(store, zerolog.Nop())

	if err := engine.scanOverdoseSpike(context.Background()); err != nil {
		t.Fatalf("scanOverdoseSpike() error = %v", err)
	}
	if len(store.alerts) != 1 || store.alerts[0].Severity != database.SeverityHigh {
		t.Fatalf("alerts = %+v, want one high-severity alert", store.alerts)
	}
}

func TestScanOverdoseSpike_BelowThresholdNoAlert(t *testing.T) {
	store := newFakeStore()
	store.countsByType[taxonomy.Overdose] = 2
	engine := New(store, zerolog.Nop())

	if err := engine.scanOverdoseSpike(context.Background()); err != nil {
		t.Fatalf("scanOverdoseSpike() error = %v", err)
	}
	if len(store.alerts) != 0 {
		t.Errorf("alerts = %d, want 0 below threshold", len(store.alerts))
	}
}

func TestScanAreaConcentration_BucketsByFirstThreeTokens(t *testing.T) {
	store := newFakeStore()
	loc := "123 main street apt 4"
	for i := 0; i < 5; i++ {
		store.recentCalls = append(store.recentCalls, database.ScanCall{ID: int64(i), Location: loc})
	}
	engine := New(store, zerolog.Nop())

	if err := engine.scanAreaConcentration(context.Background()); err != nil {
		t.Fatalf("scanAreaConcentration() error = %v", err)
	}
	if len(store.alerts) != 1 {
		t.Fatalf("alerts = %+v, want 1 concentration alert", store.alerts)
	}
}

func TestScanGeographicClustering_FlagsThreeOrMoreClusters(t *testing.T) {
	store := newFakeStore()
	lat, lng := 39.768, -86.158
	for _, offset := range []float64{0, 0.01, 0.02} {
		for i := 0; i < 2; i++ {
			la, lo := lat+offset, lng+offset
			store.recentCalls = append(store.recentCalls, database.ScanCall{CallType: "Overdose", Latitude: &la, Longitude: &lo})
		}
	}
	engine := New(store, zerolog.Nop())

	if err := engine.scanGeographicClustering(context.Background()); err != nil {
		t.Fatalf("scanGeographicClustering() error = %v", err)
	}
	if len(store.alerts) != 1 {
		t.Fatalf("alerts = %+v, want 1 clustering alert", store.alerts)
	}
}

func TestScanPublicHealthZScore_HighZTriggersAlert(t *testing.T) {
	store := newFakeStore()
	baseline := map[string]int{}
	for i := 0; i < 29; i++ {
		baseline[time.Now().AddDate(0, 0, -i-2).Format("2006-01-02")] = 1
	}
	// fakeStore.DailyCallTypeCounts ignores since/until and always returns
	// this same map, so the spike entry below inflates both the baseline
	// and the "yesterday" sum far enough to push z well past the z>2 cutoff.
	baseline["spike-day"] = 20
	store.dailyCounts[taxonomy.Overdose] = baseline
	engine := New(store, zerolog.Nop())

	if err := engine.scanPublicHealthZScore(context.Background()); err != nil {
		t.Fatalf("scanPublicHealthZScore() error = %v", err)
	}
	if len(store.alerts) == 0 {
		t.Error("alerts = 0, want at least one anomaly alert for a large z-score deviation")
	}
}
