package postprocess

import (
	"regexp"
	"strings"
)

var (
	acuitySpokenRE   = regexp.MustCompile(`(?i)\b(alpha|bravo|charlie)\b`)
	acuityLabeledRE  = regexp.MustCompile(`(?i)\b(?:acuity|priority|level)\s+([abc])\b`)
	acuityTrailingRE = regexp.MustCompile(`(?i)\b([abc])\s*$`)
)

var spokenToLetter = map[string]string{
	"alpha":   "A",
	"bravo":   "B",
	"charlie": "C",
}

// extractAcuity captures a trailing acuity letter (A/B/C) or its spoken
// form per §4.D, scoped to transcripts where a call type was found — an
// acuity letter found in a transcript with no recognized call type is not
// meaningful on its own.
func extractAcuity(lower, callType string) string {
	if callType == "" {
		return ""
	}
	if m := acuitySpokenRE.FindStringSubmatch(lower); m != nil {
		return spokenToLetter[strings.ToLower(m[1])]
	}
	if m := acuityLabeledRE.FindStringSubmatch(lower); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := acuityTrailingRE.FindStringSubmatch(lower); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}
