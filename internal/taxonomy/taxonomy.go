// Package taxonomy defines the bounded chief-complaint vocabulary shared by
// the Post-Processor (§4.D) and Classifier (§4.E) — both match against the
// same call-type keyword table, so it lives in one place rather than two.
package taxonomy

// Call type tags (spec.md GLOSSARY "Dispatch call type").
const (
	CardiacArrest       = "Cardiac Arrest"
	ChestPainHeart      = "Chest Pain/Heart"
	DifficultyBreathing = "Difficulty Breathing"
	UnconsciousFainting = "Unconscious/Fainting"
	Seizure             = "Seizure"
	Choking             = "Choking"
	SickPerson          = "Sick Person"
	InjuredPerson       = "Injured Person"
	AbdominalPain       = "Abdominal Pain"
	BackPain            = "Back Pain"
	Overdose            = "Overdose"
	PsychiatricMental   = "Psychiatric/Mental-Emotional"
	FireHazmat          = "Fire/Hazmat"
	TrashFire           = "Trash Fire"
	VehicleAccidentMVC  = "Vehicle Accident (MVC)"
	TraumaAssault       = "Trauma/Assault"
	GunshotWound        = "Gunshot Wound"
	BuildingAlarm       = "Building Alarm"
	Investigation       = "Investigation"
	EMSHospitalComms    = "EMS-Hospital Communications"
	Environmental       = "Environmental"
	OBChildbirth        = "OB/Childbirth"
	MedicalEmergency    = "Medical Emergency"
	UnknownCallType     = "Unknown Call Type"
	NonEmergencyContent = "Non-Emergency Content"
)

// keyword is one entry in the call-type keyword table: the phrase to look
// for and the taxonomy tag it maps to.
type keyword struct {
	phrase   string
	callType string
}

// keywords is ordered but matching always prefers the longest phrase that
// hits, per §4.D "most specific (longest-keyword) match" — Match does not
// rely on table order.
var keywords = []keyword{
	{"cardiac arrest", CardiacArrest},
	{"full arrest", CardiacArrest},
	{"not breathing", CardiacArrest},
	{"cpr in progress", CardiacArrest},

	{"gunshot", GunshotWound},
	{"gun shot", GunshotWound},
	{"shooting", GunshotWound},
	{"shot fired", GunshotWound},
	{"stabbing", TraumaAssault},
	{"stabbed", TraumaAssault},
	{"assault", TraumaAssault},
	{"battery", TraumaAssault},

	{"overdose", Overdose},
	{"od", Overdose},
	{"opioid", Overdose},
	{"narcan", Overdose},
	{"fentanyl", Overdose},

	{"chest pain", ChestPainHeart},
	{"heart attack", ChestPainHeart},
	{"cardiac symptoms", ChestPainHeart},

	{"difficulty breathing", DifficultyBreathing},
	{"shortness of breath", DifficultyBreathing},
	{"trouble breathing", DifficultyBreathing},
	{"respiratory distress", DifficultyBreathing},
	{"cant breathe", DifficultyBreathing},
	{"can't breathe", DifficultyBreathing},

	{"unconscious", UnconsciousFainting},
	{"unresponsive", UnconsciousFainting},
	{"fainted", UnconsciousFainting},
	{"passed out", UnconsciousFainting},
	{"syncope", UnconsciousFainting},

	{"seizure", Seizure},
	{"seizing", Seizure},
	{"convulsing", Seizure},
	{"epileptic", Seizure},

	{"choking", Choking},

	{"motor vehicle accident", VehicleAccidentMVC},
	{"vehicle accident", VehicleAccidentMVC},
	{"car accident", VehicleAccidentMVC},
	{"mvc", VehicleAccidentMVC},
	{"rollover", VehicleAccidentMVC},
	{"hit and run", VehicleAccidentMVC},

	{"trauma", TraumaAssault},
	{"injured person", InjuredPerson},
	{"fall victim", InjuredPerson},
	{"person fell", InjuredPerson},

	{"abdominal pain", AbdominalPain},
	{"stomach pain", AbdominalPain},

	{"back pain", BackPain},

	{"psychiatric", PsychiatricMental},
	{"suicidal", PsychiatricMental},
	{"mental health crisis", PsychiatricMental},
	{"emotionally disturbed", PsychiatricMental},

	{"structure fire", FireHazmat},
	{"hazmat", FireHazmat},
	{"gas leak", FireHazmat},
	{"chemical spill", FireHazmat},
	{"trash fire", TrashFire},
	{"dumpster fire", TrashFire},

	{"building alarm", BuildingAlarm},
	{"fire alarm", BuildingAlarm},
	{"alarm activation", BuildingAlarm},

	{"investigation", Investigation},
	{"suspicious person", Investigation},
	{"suspicious activity", Investigation},

	{"hospital", EMSHospitalComms},
	{"er notification", EMSHospitalComms},
	{"patch to", EMSHospitalComms},

	{"exposure", Environmental},
	{"heat exhaustion", Environmental},
	{"hypothermia", Environmental},
	{"carbon monoxide", Environmental},

	{"childbirth", OBChildbirth},
	{"in labor", OBChildbirth},
	{"pregnant", OBChildbirth},

	{"sick person", SickPerson},
	{"not feeling well", SickPerson},
	{"feeling ill", SickPerson},

	{"medical emergency", MedicalEmergency},
	{"medical call", MedicalEmergency},
}

// UrgencyWeight assigns the max-weight-wins score from §4.E. Unmatched call
// types fall back to 0.2.
var urgencyWeights = map[string]float64{
	CardiacArrest:       1.0,
	GunshotWound:        0.95,
	Overdose:            0.9,
	ChestPainHeart:      0.8,
	DifficultyBreathing: 0.8,
	UnconsciousFainting: 0.8,
	TraumaAssault:       0.7,
	VehicleAccidentMVC:  0.7,
	Seizure:             0.7,
	SickPerson:          0.3,
}

// Match finds the most specific (longest matching phrase) call type in text,
// returning ("", false) when nothing matches.
func Match(lowerText string) (string, bool) {
	callType, _, ok := MatchKeyword(lowerText)
	return callType, ok
}

// MatchKeyword is Match but also returns the winning keyword phrase itself,
// for callers (the Classifier) that report which keyword drove the match.
func MatchKeyword(lowerText string) (callType string, keyword string, ok bool) {
	bestLen := -1
	for _, kw := range keywords {
		if containsWord(lowerText, kw.phrase) && len(kw.phrase) > bestLen {
			callType = kw.callType
			keyword = kw.phrase
			bestLen = len(kw.phrase)
		}
	}
	return callType, keyword, bestLen >= 0
}

var keywordWords map[string]bool

func init() {
	keywordWords = make(map[string]bool)
	for _, kw := range keywords {
		for _, w := range splitWords(kw.phrase) {
			keywordWords[w] = true
		}
	}
}

func splitWords(s string) []string {
	var words []string
	start := -1
	for i := 0; i <= len(s); i++ {
		isSep := i == len(s) || s[i] == ' ' || s[i] == '\''
		if !isSep && start < 0 {
			start = i
		} else if isSep && start >= 0 {
			words = append(words, s[start:i])
			start = -1
		}
	}
	return words
}

// IsAllKeywordWords reports whether every word in text (lowercased) also
// appears somewhere in the call-type keyword table — used by the
// Post-Processor's address validator to reject candidates that are really
// just call-type phrases (§4.D rule e).
func IsAllKeywordWords(lowerText string) bool {
	words := splitWords(lowerText)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !keywordWords[w] {
			return false
		}
	}
	return true
}

// UrgencyWeight returns the configured weight for callType, defaulting to
// 0.2 for anything not in the table (§4.E).
func UrgencyWeight(callType string) float64 {
	if w, ok := urgencyWeights[callType]; ok {
		return w
	}
	return 0.2
}

// containsWord reports whether phrase appears in text at a word boundary on
// both ends — a bare substring search would let a short keyword like "od"
// false-positive inside an unrelated word like "today".
func containsWord(text, phrase string) bool {
	n, m := len(text), len(phrase)
	if m == 0 || m > n {
		return false
	}
	for i := 0; i+m <= n; i++ {
		if text[i:i+m] != phrase {
			continue
		}
		if i > 0 && isWordChar(text[i-1]) {
			continue
		}
		if end := i + m; end < n && isWordChar(text[end]) {
			continue
		}
		return true
	}
	return false
}

func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
