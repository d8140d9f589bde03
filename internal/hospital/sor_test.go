package hospital

import "testing"

func TestDetectSOR_RequestingOrders(t *testing.T) {
	isSOR, conf, name := DetectSOR("medic 12 requesting orders from Dr. Patel for the cardiac patient")
	if !isSOR {
		t.Fatal("DetectSOR() isSOR = false, want true")
	}
	if conf <= 0 {
		t.Errorf("DetectSOR() confidence = %v, want > 0", conf)
	}
	if name != "Patel" {
		t.Errorf("DetectSOR() physicianName = %q, want %q", name, "Patel")
	}
}

func TestDetectSOR_NoMarkerFound(t *testing.T) {
	isSOR, _, name := DetectSOR("patient is stable, eta five minutes, vitals normal")
	if isSOR {
		t.Error("DetectSOR() isSOR = true, want false")
	}
	if name != "" {
		t.Errorf("DetectSOR() physicianName = %q, want empty", name)
	}
}

func TestDetectSOR_MedicalControlNoName(t *testing.T) {
	isSOR, _, name := DetectSOR("copy, patching you through to medical control now")
	if !isSOR {
		t.Fatal("DetectSOR() isSOR = false, want true")
	}
	if name != "" {
		t.Errorf("DetectSOR() physicianName = %q, want empty when no title is present", name)
	}
}
