// Package linker recovers dispatches that were split across multiple short
// segments on the same talkgroup (spec.md §4.G): it judges whether a call's
// transcript looks complete, scores nearby calls as merge candidates, and
// drives the merge itself.
package linker

import (
	"regexp"
	"strings"

	"github.com/scanwatch/dispatch-engine/internal/postprocess"
)

// unavailableMarkers are stand-ins a transcription provider emits instead of
// an empty string when it has nothing to say.
var unavailableMarkers = map[string]bool{
	"[inaudible]": true, "[unintelligible]": true, "[no audio]": true,
	"(inaudible)": true, "n/a": true,
}

var trailingStopRE = regexp.MustCompile(`(?i)\b(and|to|at|on|near|from)\s*$`)

// Completeness reports whether a Call's transcript looks like a complete
// dispatch, with a confidence for the incomplete case.
type Completeness struct {
	Complete   bool
	Confidence float64
}

// AnalyzeCompleteness implements §4.G's completeness analysis.
func AnalyzeCompleteness(transcript, location, callType string) Completeness {
	trimmed := strings.TrimSpace(transcript)
	lower := strings.ToLower(trimmed)

	if trimmed == "" || unavailableMarkers[lower] {
		return Completeness{Complete: false, Confidence: 0.9}
	}

	if trailingStopRE.MatchString(trimmed) {
		return Completeness{Complete: false, Confidence: 0.7}
	}
	if isOnlyUnitTokens(lower) {
		return Completeness{Complete: false, Confidence: 0.7}
	}
	if location != "" && callType == "" && looksLikeOnlyAddress(trimmed, location) {
		return Completeness{Complete: false, Confidence: 0.6}
	}
	if len(trimmed) < 15 {
		return Completeness{Complete: false, Confidence: 0.8}
	}

	if location != "" && callType != "" && len(postprocess.ExtractUnits(trimmed)) > 0 {
		return Completeness{Complete: true}
	}
	if location != "" && callType != "" {
		return Completeness{Complete: true}
	}

	return Completeness{Complete: false, Confidence: 0.6}
}

func isOnlyUnitTokens(lower string) bool {
	units := postprocess.ExtractUnits(lower)
	if len(units) == 0 {
		return false
	}
	stripped := unitTokenStripRE.ReplaceAllString(lower, " ")
	return strings.TrimSpace(stripped) == ""
}

var unitTokenStripRE = regexp.MustCompile(`(?i)\b(engine|medic|ambulance|squad|rescue|ladder|ems)\s*\d{1,2}(?:[-,]\d{1,2})?\b`)

func looksLikeOnlyAddress(trimmed, location string) bool {
	return strings.EqualFold(strings.TrimSpace(trimmed), strings.TrimSpace(location))
}
