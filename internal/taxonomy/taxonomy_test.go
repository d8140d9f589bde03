package taxonomy

import "testing"

func TestMatch_LongestPhraseWins(t *testing.T) {
	ct, ok := Match("patient reports chest pain and shortness of breath")
	if !ok {
		t.Fatal("expected a match")
	}
	if ct != DifficultyBreathing {
		t.Errorf("callType = %q, want %q (longer phrase should win)", ct, DifficultyBreathing)
	}
}

func TestMatch_NoMatch(t *testing.T) {
	if _, ok := Match("all clear, nothing to report"); ok {
		t.Error("expected no match")
	}
}

func TestUrgencyWeight_KnownAndDefault(t *testing.T) {
	if w := UrgencyWeight(CardiacArrest); w != 1.0 {
		t.Errorf("UrgencyWeight(CardiacArrest) = %v, want 1.0", w)
	}
	if w := UrgencyWeight("something unlisted"); w != 0.2 {
		t.Errorf("UrgencyWeight(unknown) = %v, want 0.2 default", w)
	}
}

func TestIsAllKeywordWords(t *testing.T) {
	if !IsAllKeywordWords("chest pain") {
		t.Error("expected 'chest pain' to be recognized as all call-type words")
	}
	if IsAllKeywordWords("123 main street") {
		t.Error("expected a street address not to be all call-type words")
	}
}
