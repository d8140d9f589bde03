package postprocess

import (
	"regexp"
	"strings"
)

var (
	beepMarkerRE    = regexp.MustCompile(`(?i)\{(beep|beeping|tone|static)\}`)
	promoMarkerRE   = regexp.MustCompile(`(?i)(for more\s+(information|info)?.{0,20}visit|subscribe (to|now)|https?://|www\.)`)
	digitsOrPunctRE = regexp.MustCompile(`^[\d\s\p{P}]+$`)
)

// detectNoise implements the §4.D hallucination/noise filter. isNoise and
// isHallucination are reported separately but either one forces the same
// downstream confidence clamp.
func detectNoise(cleaned string) (isNoise bool, isHallucination bool) {
	trimmed := strings.TrimSpace(cleaned)
	if trimmed == "" {
		return true, false
	}
	if beepMarkerRE.MatchString(trimmed) {
		return false, true
	}
	if promoMarkerRE.MatchString(trimmed) {
		return false, true
	}
	if len(strings.Fields(trimmed)) <= 1 {
		return true, false
	}
	if digitsOrPunctRE.MatchString(trimmed) {
		return true, false
	}
	return false, false
}
