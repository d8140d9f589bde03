package alerts

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/scanwatch/dispatch-engine/internal/database"
	"github.com/scanwatch/dispatch-engine/internal/taxonomy"
)

const (
	overdoseSpikeWindow    = 2 * time.Hour
	overdoseSpikeThreshold = 3

	areaConcentrationWindow    = time.Hour
	areaConcentrationThreshold = 5

	callTypeSpikeWindow    = time.Hour
	callTypeSpikeThreshold = 4

	zscoreLookback    = 30 * 24 * time.Hour
	zscoreExcludeLast = 24 * time.Hour

	clusterWindow = 24 * time.Hour
)

// publicHealthComplaints is the closed set of chief complaints the z-score
// anomaly scan tracks (§4.J).
var publicHealthComplaints = []string{
	taxonomy.Overdose,
	taxonomy.Environmental,
	taxonomy.PsychiatricMental,
	taxonomy.InjuredPerson,
	taxonomy.OBChildbirth,
}

// Scan runs the §4.J periodic pattern/anomaly checks and sweeps expired
// alerts. Intended to run on a 30-second ticker.
func (e *Engine) Scan(ctx context.Context) error {
	checks := []func(context.Context) error{
		e.scanOverdoseSpike,
		e.scanAreaConcentration,
		e.scanCallTypeSpike,
		e.scanPublicHealthZScore,
		e.scanGeographicClustering,
	}
	for _, check := range checks {
		if err := check(ctx); err != nil {
			e.log.Warn().Err(err).Msg("periodic alert scan step failed")
		}
	}

	if n, err := e.store.SweepExpiredAlerts(ctx); err != nil {
		return fmt.Errorf("sweep expired alerts: %w", err)
	} else if n > 0 {
		e.log.Info().Int64("count", n).Msg("swept expired alerts")
	}
	return nil
}

func (e *Engine) scanOverdoseSpike(ctx context.Context) error {
	count, err := e.store.CountCallsByTypeSince(ctx, taxonomy.Overdose, time.Now().Add(-overdoseSpikeWindow))
	if err != nil {
		return fmt.Errorf("count overdose calls: %w", err)
	}
	if count < overdoseSpikeThreshold {
		return nil
	}
	return e.emitScanAlert(ctx, database.AlertTypeAnomaly, database.SeverityHigh, "overdose_spike",
		"Overdose spike detected", fmt.Sprintf("%d overdose calls in the last %s", count, overdoseSpikeWindow))
}

func (e *Engine) scanAreaConcentration(ctx context.Context) error {
	recent, err := e.store.RecentCallsForScan(ctx, time.Now().Add(-areaConcentrationWindow))
	if err != nil {
		return fmt.Errorf("load recent calls: %w", err)
	}

	buckets := map[string]int{}
	for _, c := range recent {
		bucket := firstTokens(c.Location, 3)
		if bucket == "" {
			continue
		}
		buckets[bucket]++
	}

	for bucket, count := range buckets {
		if count >= areaConcentrationThreshold {
			if err := e.emitScanAlert(ctx, database.AlertTypeAnomaly, database.SeverityMedium, "area_concentration",
				"Call concentration detected", fmt.Sprintf("%d calls near %s in the last %s", count, bucket, areaConcentrationWindow)); err != nil {
				return err
			}
		}
	}
	return nil
}

// scanCallTypeSpike evaluates every active threshold rule against the fixed
// periodic window, independent of any single call's insertion triggering it
// (§4.J "per rule-configured type").
func (e *Engine) scanCallTypeSpike(ctx context.Context) error {
	rules, err := e.store.ActiveAlertRules(ctx)
	if err != nil {
		return fmt.Errorf("load active alert rules: %w", err)
	}

	for _, rule := range rules {
		if rule.RuleType != database.RuleTypeThreshold {
			continue
		}
		callType := stringVal(rule.Conditions["callType"])
		if callType == "" {
			continue
		}
		threshold := int(floatVal(rule.Conditions["threshold"], callTypeSpikeThreshold))

		count, err := e.store.CountCallsByTypeSince(ctx, callType, time.Now().Add(-callTypeSpikeWindow))
		if err != nil {
			return fmt.Errorf("count calls by type: %w", err)
		}
		if count < threshold {
			continue
		}
		if err := e.emitScanAlert(ctx, database.AlertTypeAnomaly, database.SeverityMedium, "call_type_spike",
			fmt.Sprintf("%s spike detected", callType), fmt.Sprintf("%d %s calls in the last %s", count, callType, callTypeSpikeWindow)); err != nil {
			return err
		}
		if err := e.store.IncrementRuleTriggerCount(ctx, rule.ID); err != nil {
			e.log.Warn().Err(err).Str("rule", rule.Name).Msg("failed to increment rule trigger count")
		}
	}
	return nil
}

// scanPublicHealthZScore computes each tracked complaint's 30-day daily
// mean/stdev (excluding the last 24h) and compares yesterday's count
// against it (§4.J).
func (e *Engine) scanPublicHealthZScore(ctx context.Context) error {
	now := time.Now()
	baselineUntil := now.Add(-zscoreExcludeLast)
	baselineSince := now.Add(-zscoreLookback)
	yesterdaySince := now.Add(-48 * time.Hour)
	yesterdayUntil := now.Add(-24 * time.Hour)

	for _, complaint := range publicHealthComplaints {
		baseline, err := e.store.DailyCallTypeCounts(ctx, complaint, baselineSince, baselineUntil)
		if err != nil {
			return fmt.Errorf("load baseline counts for %s: %w", complaint, err)
		}
		mean, stdev := meanStdev(baseline, baselineSince, baselineUntil)
		if stdev == 0 {
			continue
		}

		yesterday, err := e.store.DailyCallTypeCounts(ctx, complaint, yesterdaySince, yesterdayUntil)
		if err != nil {
			return fmt.Errorf("load yesterday count for %s: %w", complaint, err)
		}
		var count int
		for _, n := range yesterday {
			count += n
		}

		z := (float64(count) - mean) / stdev
		if z <= 2 {
			continue
		}

		severity := database.SeverityMedium
		switch {
		case z > 4:
			severity = database.SeverityCritical
		case z > 3:
			severity = database.SeverityHigh
		}
		if err := e.emitScanAlert(ctx, database.AlertTypeAnomaly, severity, "public_health_zscore",
			fmt.Sprintf("%s anomaly", complaint),
			fmt.Sprintf("%s calls yesterday: %d (z=%.2f, baseline mean %.1f ± %.1f)", complaint, count, z, mean, stdev)); err != nil {
			return err
		}
	}
	return nil
}

// scanGeographicClustering groups the last 24h of calls by (callType, lat,
// lng) at coarse precision and flags call types with 3+ clusters of 2+
// calls (§4.J).
func (e *Engine) scanGeographicClustering(ctx context.Context) error {
	recent, err := e.store.RecentCallsForScan(ctx, time.Now().Add(-clusterWindow))
	if err != nil {
		return fmt.Errorf("load recent calls: %w", err)
	}

	type clusterKey struct {
		callType string
		lat, lng float64
	}
	clusterCounts := map[clusterKey]int{}
	for _, c := range recent {
		if c.Latitude == nil || c.Longitude == nil {
			continue
		}
		key := clusterKey{callType: c.CallType, lat: round3(*c.Latitude), lng: round3(*c.Longitude)}
		clusterCounts[key]++
	}

	byType := map[string]struct {
		clusters int
		calls    int
	}{}
	for key, count := range clusterCounts {
		if count < 2 {
			continue
		}
		entry := byType[key.callType]
		entry.clusters++
		entry.calls += count
		byType[key.callType] = entry
	}

	for callType, entry := range byType {
		if entry.clusters < 3 {
			continue
		}
		severity := database.SeverityMedium
		if entry.calls > 10 {
			severity = database.SeverityHigh
		}
		if err := e.emitScanAlert(ctx, database.AlertTypeAnomaly, severity, "geographic_clustering",
			fmt.Sprintf("%s clustering detected", callType),
			fmt.Sprintf("%d clusters of %s calls (%d total) in the last 24h", entry.clusters, callType, entry.calls)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) emitScanAlert(ctx context.Context, alertType, severity, category, title, message string) error {
	expiresAt := time.Now().Add(24 * time.Hour)
	_, err := e.store.InsertAlert(ctx, &database.Alert{
		Type:            alertType,
		Severity:        severity,
		Category:        category,
		Title:           title,
		Message:         message,
		RelatedData:     map[string]any{"source": "periodic_scan"},
		ExpiresAt:       &expiresAt,
		SoundEnabled:    severity == database.SeverityHigh || severity == database.SeverityCritical,
		VisualHighlight: true,
	})
	return err
}

// meanStdev computes the daily mean/stdev over every calendar day in
// [since, until), not just the days DailyCallTypeCounts actually returned a
// row for — a day with zero matching calls still has to count as a zero in
// the denominator, or a rare complaint's baseline mean gets computed over
// only its handful of active days instead of the full window (§8 scenario 6).
func meanStdev(byDay map[string]int, since, until time.Time) (mean, stdev float64) {
	days := int(until.Sub(since) / (24 * time.Hour))
	if days <= 0 {
		return 0, 0
	}

	var sum float64
	for _, n := range byDay {
		sum += float64(n)
	}
	mean = sum / float64(days)

	var variance float64
	for _, n := range byDay {
		d := float64(n) - mean
		variance += d * d
	}
	if missing := days - len(byDay); missing > 0 {
		variance += float64(missing) * mean * mean
	}
	variance /= float64(days)
	return mean, math.Sqrt(variance)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func firstTokens(location string, n int) string {
	fields := strings.Fields(location)
	if len(fields) == 0 {
		return ""
	}
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
