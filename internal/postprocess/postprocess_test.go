package postprocess

import "testing"

func TestProcess_NoiseBlankTranscript(t *testing.T) {
	r := Process("   ", 0.8)
	if !r.IsNoise {
		t.Error("expected IsNoise for blank transcript")
	}
	if r.Confidence != 0.1 {
		t.Errorf("Confidence = %v, want 0.1", r.Confidence)
	}
	if r.ExtractedCallType != nonEmergencyContent {
		t.Errorf("ExtractedCallType = %q, want %q", r.ExtractedCallType, nonEmergencyContent)
	}
}

func TestProcess_NoiseSingleWord(t *testing.T) {
	r := Process("static", 0.9)
	if !r.IsNoise {
		t.Error("expected IsNoise for single-word transcript")
	}
}

func TestProcess_NoiseAllDigitsOrPunct(t *testing.T) {
	r := Process("12-34, 56.", 0.9)
	if !r.IsNoise {
		t.Error("expected IsNoise for all-digit/punctuation transcript")
	}
}

func TestProcess_HallucinationBeepMarker(t *testing.T) {
	r := Process("{beeping} unit responding", 0.9)
	if !r.IsHallucination {
		t.Error("expected IsHallucination for beep marker")
	}
	if r.Confidence != 0.1 {
		t.Errorf("Confidence = %v, want 0.1", r.Confidence)
	}
}

func TestProcess_HallucinationPromo(t *testing.T) {
	r := Process("for more information visit our website", 0.9)
	if !r.IsHallucination {
		t.Error("expected IsHallucination for promotional injection")
	}
}

func TestProcess_CleanTranscriptClassified(t *testing.T) {
	r := Process("Engine 5 responding to 123 Main Street for chest pain", 0.9)
	if r.IsNoise || r.IsHallucination {
		t.Fatalf("unexpected noise/hallucination flags: %+v", r)
	}
	if r.ExtractedCallType != "Chest Pain/Heart" {
		t.Errorf("ExtractedCallType = %q, want Chest Pain/Heart", r.ExtractedCallType)
	}
	if len(r.ExtractedUnits) != 1 || r.ExtractedUnits[0].Type != "engine" || r.ExtractedUnits[0].Number != 5 {
		t.Errorf("ExtractedUnits = %+v, want [{engine 5}]", r.ExtractedUnits)
	}
	if r.ExtractedAddress == "" {
		t.Error("expected a non-empty extracted address")
	}
}

func TestProcess_DictionaryCorrection(t *testing.T) {
	r := Process("patient having a cedar episode", 0.9)
	if r.ExtractedCallType != "Seizure" {
		t.Errorf("ExtractedCallType = %q, want Seizure (cedar should correct to seizure)", r.ExtractedCallType)
	}
}

func TestProcess_Idempotent(t *testing.T) {
	first := Process("Medic 12, respond to 456 Oak Avenue for difficulty breathing priority a", 0.95)
	second := Process(first.Cleaned, first.Confidence)
	if first.Cleaned != second.Cleaned {
		t.Errorf("re-processing cleaned transcript changed it: %q -> %q", first.Cleaned, second.Cleaned)
	}
}

func TestExtractUnits_DropsOutOfRangeNumbers(t *testing.T) {
	units := extractUnits("engine 150 and medic 7 responding")
	for _, u := range units {
		if u.Number < 1 || u.Number > 99 {
			t.Errorf("unit %+v out of [1,99] range, should have been dropped", u)
		}
	}
	found := false
	for _, u := range units {
		if u.Type == "medic" && u.Number == 7 {
			found = true
		}
	}
	if !found {
		t.Error("expected medic 7 to be extracted")
	}
}

func TestReconstructNumbers(t *testing.T) {
	cases := []struct{ in, want string }{
		{"address is 10,301", "address is 10301"},
		{"box 78-47", "box 7847"},
	}
	for _, c := range cases {
		got := reconstructNumbers(c.in)
		if got != c.want {
			t.Errorf("reconstructNumbers(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPropagateConfidence_ClampedAndDecayed(t *testing.T) {
	if got := propagateConfidence(1.0, 0); got != 1.0 {
		t.Errorf("propagateConfidence(1.0, 0) = %v, want 1.0", got)
	}
	got := propagateConfidence(1.0, 2)
	want := 0.9
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("propagateConfidence(1.0, 2) = %v, want %v", got, want)
	}
}

func TestProcess_CommaJoinedHouseNumberAddress(t *testing.T) {
	r := Process("Engine 995, Medic 73, 10,301, Terminal Way, sick person", 0.9)
	if r.ExtractedAddress != "10301 Terminal Way" {
		t.Errorf("ExtractedAddress = %q, want %q", r.ExtractedAddress, "10301 Terminal Way")
	}
}

func TestValidateAddress_RejectsCallTypePhrase(t *testing.T) {
	if validateAddress("chest pain") {
		t.Error("expected call-type-only phrase to be rejected as an address")
	}
}

func TestValidateAddress_RejectsUnitToken(t *testing.T) {
	if validateAddress("engine 12") {
		t.Error("expected a bare unit token to be rejected as an address")
	}
}
