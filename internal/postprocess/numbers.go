package postprocess

import (
	"regexp"
	"strings"
)

// Comma-joined digit groups: "10,301" -> "10301".
var commaDigitsRE = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+\b`)

// Dash-split digit pairs: "78-47" -> "7847".
var dashDigitsRE = regexp.MustCompile(`\b\d{1,3}(?:-\d{1,3})+\b`)

// Space-joined runs of short digit groups: "78 47 12" -> "784712". Requires
// at least 3 groups so ordinary numbers like street addresses ("123 Main")
// aren't swallowed.
var spaceDigitsRE = regexp.MustCompile(`\b\d{1,3}(?: \d{1,3}){2,}\b`)

// reconstructNumbers implements §4.D "number reconstruction", applied
// before field extraction so digit groups read as one token.
func reconstructNumbers(s string) string {
	s = commaDigitsRE.ReplaceAllStringFunc(s, stripNonDigits)
	s = dashDigitsRE.ReplaceAllStringFunc(s, stripNonDigits)
	s = spaceDigitsRE.ReplaceAllStringFunc(s, stripNonDigits)
	return s
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
