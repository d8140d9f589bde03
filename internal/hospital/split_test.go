package hospital

import (
	"testing"
	"time"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

func seg(seq int, ts time.Time) *database.HospitalSegment {
	return &database.HospitalSegment{SequenceNumber: seq, Timestamp: ts}
}

func TestSuggestSplit_PartitionsOnOverflow(t *testing.T) {
	base := time.Now()
	segments := []*database.HospitalSegment{
		seg(1, base),
		seg(2, base.Add(3*time.Minute)),
		seg(3, base.Add(9*time.Minute)),
		seg(4, base.Add(15*time.Minute)),
		seg(5, base.Add(17*time.Minute)),
	}

	groups := SuggestSplit(segments, 10*time.Minute)
	if len(groups) != 2 {
		t.Fatalf("SuggestSplit() returned %d groups, want 2", len(groups))
	}
	if len(groups[0]) != 3 || len(groups[1]) != 2 {
		t.Errorf("SuggestSplit() group sizes = %d,%d want 3,2", len(groups[0]), len(groups[1]))
	}
}

func TestSuggestSplit_SingleGroupWhenWithinWindow(t *testing.T) {
	base := time.Now()
	segments := []*database.HospitalSegment{seg(1, base), seg(2, base.Add(2*time.Minute))}

	groups := SuggestSplit(segments, 10*time.Minute)
	if len(groups) != 1 {
		t.Fatalf("SuggestSplit() returned %d groups, want 1", len(groups))
	}
}

func TestNeedsSplit(t *testing.T) {
	base := time.Now()
	conv := &database.HospitalConversation{FirstSegmentAt: base, LastSegmentAt: base.Add(11 * time.Minute)}
	if !NeedsSplit(conv, 10*time.Minute) {
		t.Error("NeedsSplit() = false, want true for an 11-minute span")
	}
}
