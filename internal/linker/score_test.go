package linker

import (
	"testing"
	"time"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

func call(id int64, ts time.Time, transcript string, location string) *database.Call {
	var loc *string
	if location != "" {
		loc = &location
	}
	return &database.Call{ID: id, Timestamp: ts, Transcript: transcript, Location: loc}
}

func TestCompatibilityScore_SharedUnitsAndRecency(t *testing.T) {
	now := time.Now()
	a := call(1, now, "engine 5 responding to", "")
	b := call(2, now.Add(time.Minute), "the scene at 123 main street engine 5", "123 main street")

	score := CompatibilityScore(a, b)
	if score <= mergeThreshold {
		t.Errorf("CompatibilityScore() = %v, want > %v given shared unit, recency, and continuation cues", score, mergeThreshold)
	}
}

func TestCompatibilityScore_UnrelatedCallsScoreLow(t *testing.T) {
	now := time.Now()
	a := call(1, now, "medic 9 transporting patient", "")
	b := call(2, now.Add(4*time.Minute), "all clear no further units needed", "")

	score := CompatibilityScore(a, b)
	if score > mergeThreshold {
		t.Errorf("CompatibilityScore() = %v, want <= %v for unrelated transcripts", score, mergeThreshold)
	}
}

func TestTimeScore_DecaysToZeroPastWindow(t *testing.T) {
	now := time.Now()
	got := timeScore(now, now.Add(10*time.Minute))
	if got != 0 {
		t.Errorf("timeScore() = %v, want 0 past the 5-minute window", got)
	}
}
