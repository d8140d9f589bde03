package postprocess

import (
	"regexp"
	"strconv"
	"strings"
)

// unitTypeAlternation is the closed set of radio unit types spec.md §4.D
// names for the unit extraction regex.
const unitTypeAlternation = `engine|medic|ambulance|squad|rescue|ladder|ems`

var unitTokenRE = regexp.MustCompile(`(?i)\b(` + unitTypeAlternation + `)\s*(\d{1,2})(?:[-,]\d{1,2})?\b`)

// extractUnits scans the whole cleaned transcript for unit tokens, drops
// numbers outside [1,99], and deduplicates (type, number) pairs.
func extractUnits(lowerText string) []Unit {
	matches := unitTokenRE.FindAllStringSubmatch(lowerText, -1)
	seen := make(map[Unit]bool, len(matches))
	var out []Unit
	for _, m := range matches {
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 || n > 99 {
			continue
		}
		u := Unit{Type: m[1], Number: n}
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// ExtractUnits is extractUnits exported for callers outside the package
// (the Call Linker re-derives unit tokens from raw transcript text when
// scoring candidates, §4.G contentScore).
func ExtractUnits(text string) []Unit {
	return extractUnits(strings.ToLower(text))
}
