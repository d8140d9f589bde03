package bridge

import "testing"

func TestDedupeCache_SeenTwiceOnSecondCall(t *testing.T) {
	dc, err := newDedupeCache(8)
	if err != nil {
		t.Fatalf("newDedupeCache() error = %v", err)
	}
	if dc.Seen("a") {
		t.Fatal("first Seen(a) should be false")
	}
	if !dc.Seen("a") {
		t.Fatal("second Seen(a) should be true")
	}
	if dc.Seen("b") {
		t.Fatal("Seen(b) should be false, distinct key")
	}
}

func TestDedupeCache_EvictsOldestWhenFull(t *testing.T) {
	dc, err := newDedupeCache(2)
	if err != nil {
		t.Fatalf("newDedupeCache() error = %v", err)
	}
	dc.Seen("a")
	dc.Seen("b")
	dc.Seen("c") // evicts "a"
	if dc.Seen("a") {
		t.Error("expected a to have been evicted and reported unseen")
	}
}
