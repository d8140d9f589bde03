package geocode

import "strings"

// normalize implements §4.F step 1: lowercase, collapse whitespace, and
// append the default jurisdiction suffix if the address doesn't already
// look like it names one (a crude heuristic: it contains a comma).
func normalize(address, jurisdiction string) string {
	fields := strings.Fields(strings.ToLower(address))
	n := strings.Join(fields, " ")
	if n == "" {
		return n
	}
	if jurisdiction != "" && !strings.Contains(n, ",") {
		n = n + ", " + strings.ToLower(jurisdiction)
	}
	return n
}
