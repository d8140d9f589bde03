package linker

import "testing"

func TestAnalyzeCompleteness_Empty(t *testing.T) {
	c := AnalyzeCompleteness("", "", "")
	if c.Complete || c.Confidence != 0.9 {
		t.Errorf("got %+v, want incomplete at confidence 0.9", c)
	}
}

func TestAnalyzeCompleteness_UnavailableMarker(t *testing.T) {
	c := AnalyzeCompleteness("[inaudible]", "", "")
	if c.Complete || c.Confidence != 0.9 {
		t.Errorf("got %+v, want incomplete at confidence 0.9", c)
	}
}

func TestAnalyzeCompleteness_TrailingStopPreposition(t *testing.T) {
	c := AnalyzeCompleteness("engine 5 responding to", "", "")
	if c.Complete {
		t.Errorf("got %+v, want incomplete (trailing preposition)", c)
	}
}

func TestAnalyzeCompleteness_OnlyUnitTokens(t *testing.T) {
	c := AnalyzeCompleteness("engine 5 medic 12", "", "")
	if c.Complete {
		t.Errorf("got %+v, want incomplete (units only)", c)
	}
}

func TestAnalyzeCompleteness_TooShort(t *testing.T) {
	c := AnalyzeCompleteness("short one", "", "")
	if c.Complete || c.Confidence != 0.8 {
		t.Errorf("got %+v, want incomplete at confidence 0.8 (< 15 chars)", c)
	}
}

func TestAnalyzeCompleteness_Complete(t *testing.T) {
	c := AnalyzeCompleteness("engine 5 medic 12 responding to 123 main street for chest pain", "123 main street", "Chest Pain/Heart")
	if !c.Complete {
		t.Errorf("got %+v, want complete (has unit, location, call type)", c)
	}
}
