package hospital

import (
	"regexp"
	"strings"
)

// sorMarkers are phrases that indicate a unit is requesting standing orders
// or physician sign-off from the receiving hospital (service-on-request).
var sorMarkers = []struct {
	re         *regexp.Regexp
	confidence float64
}{
	{regexp.MustCompile(`(?i)\brequest(?:ing)?\s+(?:standing\s+)?orders?\b`), 0.9},
	{regexp.MustCompile(`(?i)\bmedical\s+control\b`), 0.75},
	{regexp.MustCompile(`(?i)\bneed\s+(?:a\s+)?(?:physician|doctor|doc)\s+(?:on\s+the\s+line|to\s+the\s+radio)\b`), 0.85},
	{regexp.MustCompile(`(?i)\border\s+confirmed\b`), 0.6},
}

// physicianNameRE captures a name following a "Dr."/"Doctor" title: one
// word, plus a second word only when that word is capitalized, so
// "Dr. Patel for" yields "Patel".
var physicianNameRE = regexp.MustCompile(`\b(?i:dr\.?|doctor)\s+([A-Za-z]+(?:\s+[A-Z][a-z]+)?)\b`)

// DetectSOR runs the §4.H pattern matcher against one segment's transcript,
// reporting whether it requests standing orders, a confidence score, and
// any physician name mentioned.
func DetectSOR(transcript string) (isSOR bool, confidence float64, physicianName string) {
	for _, m := range sorMarkers {
		if m.re.MatchString(transcript) {
			isSOR = true
			if m.confidence > confidence {
				confidence = m.confidence
			}
		}
	}

	if m := physicianNameRE.FindStringSubmatch(transcript); m != nil {
		physicianName = toTitleCase(m[1])
	}

	return isSOR, confidence, physicianName
}

func toTitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
