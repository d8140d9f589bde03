package linker

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/scanwatch/dispatch-engine/internal/database"
	"github.com/scanwatch/dispatch-engine/internal/postprocess"
)

const mergeWindow = 5 * time.Minute

// CompatibilityScore implements §4.G's `0.4·timeScore + 0.6·contentScore`
// formula between two candidate calls.
func CompatibilityScore(a, b *database.Call) float64 {
	return 0.4*timeScore(a.Timestamp, b.Timestamp) + 0.6*contentScore(a, b)
}

func timeScore(a, b time.Time) float64 {
	delta := a.Sub(b)
	if delta < 0 {
		delta = -delta
	}
	score := 1 - float64(delta)/float64(mergeWindow)
	return math.Max(0, score)
}

var leadingContinuationRE = regexp.MustCompile(`(?i)^\s*(the|a|an|of|for|with)\b`)

func contentScore(a, b *database.Call) float64 {
	score := 0.0

	unitsA := postprocess.ExtractUnits(a.Transcript)
	unitsB := postprocess.ExtractUnits(b.Transcript)
	if sharedUnits(unitsA, unitsB) {
		score += 0.4
	}

	locA := locationOf(a)
	locB := locationOf(b)
	if locA != "" && locB != "" && strings.EqualFold(locA, locB) {
		score += 0.3
	}

	hasUnitsA, hasUnitsB := len(unitsA) > 0, len(unitsB) > 0
	hasLocA, hasLocB := locA != "", locB != ""
	if (hasUnitsA && !hasUnitsB && hasLocB) || (hasUnitsB && !hasUnitsA && hasLocA) {
		score += 0.3
	}

	if trailingStopRE.MatchString(a.Transcript) || trailingStopRE.MatchString(b.Transcript) ||
		leadingContinuationRE.MatchString(a.Transcript) || leadingContinuationRE.MatchString(b.Transcript) {
		score += 0.2
	}

	return math.Min(score, 1.0)
}

func sharedUnits(a, b []postprocess.Unit) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[postprocess.Unit]bool, len(a))
	for _, u := range a {
		set[u] = true
	}
	for _, u := range b {
		if set[u] {
			return true
		}
	}
	return false
}

func locationOf(c *database.Call) string {
	if c.Location == nil {
		return ""
	}
	return *c.Location
}
