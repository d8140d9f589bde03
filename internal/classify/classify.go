// Package classify assigns a chief-complaint class, urgency score, and
// acuity to an already post-processed call (spec.md §4.E). It shares the
// keyword table in internal/taxonomy with the Post-Processor so the two
// stages never disagree about what a keyword means.
package classify

import (
	"strings"

	"github.com/scanwatch/dispatch-engine/internal/postprocess"
	"github.com/scanwatch/dispatch-engine/internal/taxonomy"
)

// Result is the classifier's output, written back onto the Call row
// alongside the post-processor's own fields.
type Result struct {
	CallType     string
	Keywords     []string
	AcuityLevel  string
	UrgencyScore float64
	Location     string
}

// Classify confirms or assigns a call type from the post-processor's
// output and the cleaned transcript, and derives the urgency score from
// the shared keyword-weight table.
func Classify(pp postprocess.Result) Result {
	r := Result{
		CallType: pp.ExtractedCallType,
		Location: pp.ExtractedAddress,
	}

	lower := strings.ToLower(pp.Cleaned)
	callType, keyword, matched := taxonomy.MatchKeyword(lower)

	switch {
	case pp.ExtractedCallType != "":
		// Post-processor already assigned a call type; the classifier
		// confirms it and still records the matching keyword if the same
		// table independently agrees.
		if matched && callType == pp.ExtractedCallType {
			r.Keywords = append(r.Keywords, keyword)
		}
	case matched:
		r.CallType = callType
		r.Keywords = append(r.Keywords, keyword)
	default:
		r.CallType = taxonomy.UnknownCallType
	}

	r.AcuityLevel = pp.ExtractedAcuity
	if r.AcuityLevel == "" {
		r.AcuityLevel = "unknown"
	}

	r.UrgencyScore = taxonomy.UrgencyWeight(r.CallType)
	return r
}
