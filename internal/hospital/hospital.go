// Package hospital assembles EMS-to-hospital radio traffic into
// HospitalConversations per spec.md §4.H. It applies only to talkgroups in
// the configured hospital-channel set.
package hospital

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

// Grouper assigns incoming hospital-channel segments to an active
// conversation or opens a new one, holding a per-talkgroup lock while it
// decides membership (spec.md §5).
type Grouper struct {
	db          *database.DB
	talkgroups  map[int]bool
	window      time.Duration
	closeIdle   time.Duration
	log         zerolog.Logger
	locksMu     sync.Mutex
	talkgroupMu map[int]*sync.Mutex
}

// New builds a Grouper. window is the 10-minute conversation-span cap;
// closeIdle is the 7-minute no-activity close timeout.
func New(db *database.DB, talkgroups map[int]bool, window, closeIdle time.Duration, log zerolog.Logger) *Grouper {
	return &Grouper{
		db:          db,
		talkgroups:  talkgroups,
		window:      window,
		closeIdle:   closeIdle,
		log:         log.With().Str("component", "hospital-grouper").Logger(),
		talkgroupMu: make(map[int]*sync.Mutex),
	}
}

// Applies reports whether talkgroup is in the configured hospital-channel set.
func (g *Grouper) Applies(talkgroup int) bool {
	return g.talkgroups[talkgroup]
}

func (g *Grouper) lockFor(talkgroup int) *sync.Mutex {
	g.locksMu.Lock()
	defer g.locksMu.Unlock()
	mu, ok := g.talkgroupMu[talkgroup]
	if !ok {
		mu = &sync.Mutex{}
		g.talkgroupMu[talkgroup] = mu
	}
	return mu
}

// ProcessSegment assigns a transcribed hospital-channel segment to an
// existing or new conversation (§4.H steps 1-3), then runs SOR detection
// over the conversation's segments.
func (g *Grouper) ProcessSegment(ctx context.Context, talkgroup int, audioSegmentID, transcript string, confidence float64, ts time.Time) (*database.HospitalConversation, error) {
	mu := g.lockFor(talkgroup)
	mu.Lock()
	defer mu.Unlock()

	active, err := g.db.ActiveHospitalConversations(ctx, talkgroup)
	if err != nil {
		return nil, fmt.Errorf("load active hospital conversations: %w", err)
	}

	conv := g.findAcceptingConversation(active, ts)
	if conv == nil {
		conversationID := fmt.Sprintf("CONV-%s-%d-%s", ts.Format("2006-01-02"), talkgroup, ts.Format("150405"))
		conv, err = g.db.CreateHospitalConversation(ctx, conversationID, talkgroup, ts)
		if err != nil {
			return nil, fmt.Errorf("open hospital conversation: %w", err)
		}
	}

	if _, err := g.db.AppendHospitalSegment(ctx, conv.ConversationID, audioSegmentID, transcript, confidence, ts); err != nil {
		return nil, fmt.Errorf("append hospital segment: %w", err)
	}

	if err := g.runSORDetection(ctx, conv.ConversationID); err != nil {
		g.log.Warn().Err(err).Str("conversation", conv.ConversationID).Msg("SOR detection failed")
	}

	return conv, nil
}

// findAcceptingConversation implements step 2: a conversation accepts the
// new segment if the hypothetical window spanning its existing segments
// plus the new timestamp stays strictly under the configured window. A
// segment landing exactly at the window span starts a new conversation
// instead of joining — spec.md §4.H's "≤ 10 min joins" reads as inclusive,
// but the explicit boundary case is a testable invariant and takes
// precedence over the looser prose.
func (g *Grouper) findAcceptingConversation(active []*database.HospitalConversation, ts time.Time) *database.HospitalConversation {
	for _, c := range active {
		lo, hi := c.FirstSegmentAt, c.LastSegmentAt
		if ts.Before(lo) {
			lo = ts
		}
		if ts.After(hi) {
			hi = ts
		}
		if hi.Sub(lo) < g.window {
			return c
		}
	}
	return nil
}

// CloseIdle transitions conversations idle past the configured close
// timeout to completed (§4.H step 4). Intended to run on a periodic ticker.
func (g *Grouper) CloseIdle(ctx context.Context) (int64, error) {
	n, err := g.db.CompleteIdleHospitalConversations(ctx, g.closeIdle)
	if err != nil {
		return 0, fmt.Errorf("close idle hospital conversations: %w", err)
	}
	if n > 0 {
		g.log.Info().Int64("count", n).Msg("closed idle hospital conversations")
	}
	return n, nil
}

func (g *Grouper) runSORDetection(ctx context.Context, conversationID string) error {
	segments, err := g.db.HospitalSegmentsForConversation(ctx, conversationID)
	if err != nil {
		return err
	}

	var detected bool
	var physician *string
	for _, s := range segments {
		isSOR, _, name := DetectSOR(s.Transcript)
		if isSOR {
			detected = true
			if name != "" && physician == nil {
				p := name
				physician = &p
			}
		}
	}
	return g.db.SetHospitalSOR(ctx, conversationID, detected, physician)
}
