package postprocess

import (
	"regexp"
	"strings"

	"github.com/scanwatch/dispatch-engine/internal/taxonomy"
)

// streetTypes is the extended closed set from spec.md §4.D pattern family 2.
const streetTypes = `street|st|avenue|ave|road|rd|drive|dr|lane|ln|place|pl|court|ct|circle|cir|boulevard|blvd|parkway|pkwy|way|trail|terrace|ter|alley|loop|row|plaza|square`

var (
	cardinal = `(?:north|south|east|west|n|s|e|w)\.?`

	// The separator right after the house number allows an optional comma
	// (and no space) so numbers left comma-joined by reconstructNumbers
	// ("10,301" -> "10301" still followed by the original ", ") still match
	// ("10301, Terminal Way").
	standardStreetRE = regexp.MustCompile(`(?i)\b(?:` + cardinal + `\s+)?\d{1,6}[,\s]+[a-z]+(?:\s+[a-z]+){0,3}?\s+(?:` + streetTypes + `)\b\.?`)

	intersectionRE = regexp.MustCompile(`(?i)\b[a-z]+(?:\s+[a-z]+){0,2}\s+(?:and|&|at)\s+[a-z]+(?:\s+[a-z]+){0,2}\b`)

	gridRE = regexp.MustCompile(`(?i)\b([nsew])\s*(\d+)\s*&\s*(\d+)\s*([nsew])\b`)

	unitSequenceLeadRE = regexp.MustCompile(`(?i)(?:` + unitTypeAlternation + `)\s*\d{1,2}[, ]+`)
)

// extractAddress implements the §4.D four-tier address extraction, trying
// each pattern family in order and validating whichever candidate is found
// first. It returns the winning candidate (or "" if none validate) and how
// many pattern attempts produced an invalid candidate, which feeds the
// confidence-propagation formula as a parse error.
func extractAddress(cleaned string) (string, int) {
	parseErrors := 0

	if addr, ok := tryUnitSequence(cleaned); ok {
		if validateAddress(addr) {
			return addr, parseErrors
		}
		parseErrors++
	}

	if m := standardStreetRE.FindString(cleaned); m != "" {
		if validateAddress(m) {
			return normalizeAddress(m), parseErrors
		}
		parseErrors++
	}

	if m := intersectionRE.FindString(cleaned); m != "" {
		if validateAddress(m) {
			return strings.TrimSpace(m), parseErrors
		}
		parseErrors++
	}

	if m := gridRE.FindString(cleaned); m != "" {
		if validateAddress(m) {
			return strings.TrimSpace(m), parseErrors
		}
		parseErrors++
	}

	return "", parseErrors
}

// tryUnitSequence implements pattern family 1: find the last unit-token
// lead-in and search only the text after it for a standard street pattern.
func tryUnitSequence(cleaned string) (string, bool) {
	locs := unitSequenceLeadRE.FindAllStringIndex(cleaned, -1)
	if len(locs) == 0 {
		return "", false
	}
	last := locs[len(locs)-1]
	rest := cleaned[last[1]:]
	m := standardStreetRE.FindString(rest)
	if m == "" {
		return "", false
	}
	return normalizeAddress(m), true
}

// normalizeAddress drops the comma standardStreetRE tolerates between a
// reconstructed house number and the street name ("10301, Terminal Way")
// and collapses the resulting run of whitespace, so the extracted address
// always reads as "10301 Terminal Way".
func normalizeAddress(m string) string {
	m = strings.ReplaceAll(m, ",", " ")
	return strings.Join(strings.Fields(m), " ")
}

// validateAddress applies the §4.D five-part rejection rule. isIntersection
// and isGrid candidates are exempt from the street-type requirement.
func validateAddress(candidate string) bool {
	trimmed := strings.TrimSpace(candidate)
	if len(trimmed) < 3 {
		return false
	}
	if !hasLetter(trimmed) {
		return false
	}
	lower := strings.ToLower(trimmed)
	isIntersection := strings.Contains(lower, " and ") || strings.Contains(lower, " & ") || strings.Contains(lower, " at ")
	isGrid := gridRE.MatchString(trimmed)
	if !isIntersection && !isGrid && !hasStreetType(lower) {
		return false
	}
	if unitTokenRE.MatchString(lower) {
		return false
	}
	if taxonomy.IsAllKeywordWords(lower) {
		return false
	}
	return true
}

func hasLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

var streetTypeWordRE = regexp.MustCompile(`(?i)\b(?:` + streetTypes + `)\b`)

func hasStreetType(lower string) bool {
	return streetTypeWordRE.MatchString(lower)
}
