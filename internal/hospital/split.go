package hospital

import (
	"time"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

// SuggestSplit implements the §4.H background validator: for a conversation
// whose segments span more than window (e.g. migrated data predating the
// runtime invariant), greedily partition them into groups that each stay
// within window. Segments must already be ordered by SequenceNumber.
func SuggestSplit(segments []*database.HospitalSegment, window time.Duration) [][]*database.HospitalSegment {
	if len(segments) == 0 {
		return nil
	}

	var groups [][]*database.HospitalSegment
	group := []*database.HospitalSegment{segments[0]}
	groupStart := segments[0].Timestamp

	for _, s := range segments[1:] {
		if s.Timestamp.Sub(groupStart) <= window {
			group = append(group, s)
			continue
		}
		groups = append(groups, group)
		group = []*database.HospitalSegment{s}
		groupStart = s.Timestamp
	}
	groups = append(groups, group)
	return groups
}

// NeedsSplit reports whether a conversation's recorded span exceeds window,
// flagging it for SuggestSplit.
func NeedsSplit(conv *database.HospitalConversation, window time.Duration) bool {
	return conv.LastSegmentAt.Sub(conv.FirstSegmentAt) > window
}
