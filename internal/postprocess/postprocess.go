// Package postprocess cleans raw transcripts and extracts structured
// dispatch fields from them: address, radio units, call type, and acuity
// (spec.md §4.D). Process is a pure function — no I/O, no clock reads — so
// running it twice on an already-cleaned transcript is idempotent.
package postprocess

import "strings"

// Result is the post-processor's full output for one transcript.
type Result struct {
	Cleaned           string
	IsNoise           bool
	IsHallucination   bool
	ExtractedAddress  string
	ExtractedUnits    []Unit
	ExtractedCallType string
	ExtractedAcuity   string
	Confidence        float64
	ParseErrors       int
}

// Unit is one radio-unit token found in a transcript.
type Unit struct {
	Type   string
	Number int
}

// Process runs the full §4.D pipeline over a raw transcript and its
// upstream (speech-to-text) confidence score.
func Process(rawTranscript string, rawConfidence float64) Result {
	r := Result{Cleaned: collapseWhitespace(rawTranscript)}

	if isNoise, isHallucination := detectNoise(r.Cleaned); isNoise || isHallucination {
		r.IsNoise = isNoise
		r.IsHallucination = isHallucination
		r.Confidence = 0.1
		r.ExtractedCallType = nonEmergencyContent
		return r
	}

	r.Cleaned = applyDictionary(r.Cleaned)
	r.Cleaned = reconstructNumbers(r.Cleaned)
	r.Cleaned = collapseWhitespace(r.Cleaned)

	lower := strings.ToLower(r.Cleaned)

	r.ExtractedUnits = extractUnits(lower)

	addr, errs := extractAddress(r.Cleaned)
	r.ExtractedAddress = addr
	r.ParseErrors += errs

	if ct, ok := matchCallType(lower); ok {
		r.ExtractedCallType = ct
	}

	r.ExtractedAcuity = extractAcuity(lower, r.ExtractedCallType)

	r.Confidence = propagateConfidence(rawConfidence, r.ParseErrors)
	return r
}

const nonEmergencyContent = "Non-Emergency Content"

func propagateConfidence(input float64, parseErrors int) float64 {
	c := input * (1 - 0.05*float64(parseErrors))
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
