package hospital

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

func newTestGrouper() *Grouper {
	return New(nil, map[int]bool{100: true}, 10*time.Minute, 7*time.Minute, zerolog.Nop())
}

func TestApplies(t *testing.T) {
	g := newTestGrouper()
	if !g.Applies(100) {
		t.Error("Applies(100) = false, want true")
	}
	if g.Applies(200) {
		t.Error("Applies(200) = true, want false")
	}
}

func TestFindAcceptingConversation_WithinWindow(t *testing.T) {
	g := newTestGrouper()
	base := time.Now()
	active := []*database.HospitalConversation{
		{ConversationID: "CONV-1", FirstSegmentAt: base, LastSegmentAt: base.Add(3 * time.Minute)},
	}

	got := g.findAcceptingConversation(active, base.Add(9*time.Minute+59*time.Second))
	if got == nil || got.ConversationID != "CONV-1" {
		t.Errorf("findAcceptingConversation() = %v, want CONV-1 to accept", got)
	}
}

func TestFindAcceptingConversation_ExceedsWindow(t *testing.T) {
	g := newTestGrouper()
	base := time.Now()
	active := []*database.HospitalConversation{
		{ConversationID: "CONV-1", FirstSegmentAt: base, LastSegmentAt: base.Add(3 * time.Minute)},
	}

	got := g.findAcceptingConversation(active, base.Add(10*time.Minute+1*time.Second))
	if got != nil {
		t.Errorf("findAcceptingConversation() = %v, want nil past the 10-minute window", got)
	}
}

func TestFindAcceptingConversation_ExactlyAtWindow(t *testing.T) {
	g := newTestGrouper()
	base := time.Now()
	active := []*database.HospitalConversation{
		{ConversationID: "CONV-1", FirstSegmentAt: base, LastSegmentAt: base.Add(3 * time.Minute)},
	}

	got := g.findAcceptingConversation(active, base.Add(10*time.Minute))
	if got != nil {
		t.Errorf("findAcceptingConversation() = %v, want nil at exactly the 10-minute window", got)
	}
}

func TestFindAcceptingConversation_NoActiveConversations(t *testing.T) {
	g := newTestGrouper()
	if got := g.findAcceptingConversation(nil, time.Now()); got != nil {
		t.Errorf("findAcceptingConversation() = %v, want nil", got)
	}
}
