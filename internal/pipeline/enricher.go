// Package pipeline wires a transcribed segment through the rest of the
// dispatch pipeline (spec.md §4.D-§4.K). It implements transcribe.Enricher,
// the seam the Transcription Worker Pool calls after every successful
// transcription, and owns the fixed stage order: post-process, classify,
// geocode, the first terminal write, call linking, hospital grouping, unit
// tagging, alert evaluation, and the Live Hub broadcast.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/bridge"
	"github.com/scanwatch/dispatch-engine/internal/classify"
	"github.com/scanwatch/dispatch-engine/internal/database"
	"github.com/scanwatch/dispatch-engine/internal/geocode"
	"github.com/scanwatch/dispatch-engine/internal/metrics"
	"github.com/scanwatch/dispatch-engine/internal/postprocess"
)

// Geocoder is the subset of *geocode.Geocoder the enricher needs.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocode.Coordinates, error)
}

// CallLinker is the subset of *linker.Linker the enricher needs.
type CallLinker interface {
	EvaluateAndMerge(ctx context.Context, call *database.Call) ([]int64, error)
}

// HospitalGrouper is the subset of *hospital.Grouper the enricher needs.
type HospitalGrouper interface {
	Applies(talkgroup int) bool
	ProcessSegment(ctx context.Context, talkgroup int, audioSegmentID, transcript string, confidence float64, ts time.Time) (*database.HospitalConversation, error)
}

// UnitTagger is the subset of *units.Tagger the enricher needs.
type UnitTagger interface {
	Tag(ctx context.Context, callID int64, transcript string) ([]*database.UnitTag, error)
}

// AlertEvaluator is the subset of *alerts.Engine the enricher needs.
type AlertEvaluator interface {
	EvaluateCall(ctx context.Context, call *database.Call) error
}

// LiveBroadcaster is the subset of *live.Hub the enricher needs.
type LiveBroadcaster interface {
	NewCall(call *database.Call)
	CallUpdate(fields map[string]any)
}

// Enricher is the concrete transcribe.Enricher for dispatch-engine. The
// geocoder, linker, hospital grouper, unit tagger and alert evaluator may
// each be left nil, which disables that stage — e.g. a deployment with no
// geocoder configured still runs post-processing, classification, linking,
// and alerting. db and hub are always used and must be set.
type Enricher struct {
	db       *database.DB
	geocoder Geocoder
	linker   CallLinker
	hospital HospitalGrouper
	units    UnitTagger
	alerts   AlertEvaluator
	hub      LiveBroadcaster
	log      zerolog.Logger
}

// New builds an Enricher.
func New(db *database.DB, geocoder Geocoder, linker CallLinker, hospital HospitalGrouper, units UnitTagger, alerts AlertEvaluator, hub LiveBroadcaster, log zerolog.Logger) *Enricher {
	return &Enricher{
		db:       db,
		geocoder: geocoder,
		linker:   linker,
		hospital: hospital,
		units:    units,
		alerts:   alerts,
		hub:      hub,
		log:      log.With().Str("component", "enricher").Logger(),
	}
}

// Enrich runs the full §4.D-§4.K chain for one transcribed segment. job.CallID
// is the preliminary Call row the Segment Source reserved at intake (§4.B
// step 4); this call is this call's first terminal write (§5: each Call id
// is owned by exactly one worker from intake to first terminal write).
func (e *Enricher) Enrich(ctx context.Context, job bridge.Job, transcript string, confidence float64) error {
	pp := postprocess.Process(transcript, confidence)

	update := database.CallUpdate{
		Transcript: pp.Cleaned,
		Confidence: pp.Confidence,
		CallType:   pp.ExtractedCallType,
	}

	if pp.IsNoise || pp.IsHallucination {
		metrics.TranscriptionsTotal.WithLabelValues("rejected").Inc()
		if err := e.db.UpdateCallEnrichment(ctx, job.CallID, update); err != nil {
			return fmt.Errorf("update rejected call: %w", err)
		}
		call, err := e.db.GetCall(ctx, job.CallID)
		if err != nil {
			return fmt.Errorf("reload rejected call: %w", err)
		}
		e.hub.NewCall(call)
		return nil
	}

	cls := classify.Classify(pp)
	update.CallType = cls.CallType
	update.Keywords = cls.Keywords
	update.AcuityLevel = cls.AcuityLevel
	update.UrgencyScore = cls.UrgencyScore

	if cls.Location != "" {
		loc := cls.Location
		update.Location = &loc
		if e.geocoder != nil {
			coords, err := e.geocoder.Geocode(ctx, loc)
			if err != nil {
				e.log.Warn().Err(err).Str("address", loc).Msg("geocode failed")
			} else if coords != nil {
				update.Latitude = &coords.Latitude
				update.Longitude = &coords.Longitude
			}
		}
	}

	if err := e.db.UpdateCallEnrichment(ctx, job.CallID, update); err != nil {
		metrics.TranscriptionsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("update call enrichment: %w", err)
	}
	metrics.TranscriptionsTotal.WithLabelValues("enriched").Inc()

	call, err := e.db.GetCall(ctx, job.CallID)
	if err != nil {
		return fmt.Errorf("reload enriched call: %w", err)
	}
	e.hub.NewCall(call)

	if e.linker != nil {
		if absorbed, err := e.linker.EvaluateAndMerge(ctx, call); err != nil {
			e.log.Warn().Err(err).Int64("call_id", call.ID).Msg("call linking failed")
		} else if len(absorbed) > 0 {
			metrics.CallsLinkedTotal.Add(float64(len(absorbed)))
			if merged, err := e.db.GetCall(ctx, call.ID); err == nil {
				call = merged
				e.hub.CallUpdate(map[string]any{
					"id":           call.ID,
					"transcript":   call.Transcript,
					"confidence":   call.Confidence,
					"callType":     call.CallType,
					"location":     call.Location,
					"latitude":     call.Latitude,
					"longitude":    call.Longitude,
					"keywords":     call.Keywords,
					"acuityLevel":  call.AcuityLevel,
					"urgencyScore": call.UrgencyScore,
					"linkedCalls":  absorbed,
				})
			}
		}
	}

	if e.hospital != nil && e.hospital.Applies(call.Talkgroup) {
		if _, err := e.hospital.ProcessSegment(ctx, call.Talkgroup, job.SegmentID, call.Transcript, call.Confidence, call.Timestamp); err != nil {
			e.log.Warn().Err(err).Int64("call_id", call.ID).Msg("hospital grouping failed")
		}
	}

	if e.units != nil {
		if tags, err := e.units.Tag(ctx, call.ID, call.Transcript); err != nil {
			e.log.Warn().Err(err).Int64("call_id", call.ID).Msg("unit tagging failed")
		} else if len(tags) > 0 {
			e.hub.CallUpdate(map[string]any{"id": call.ID, "unitsTagged": len(tags)})
		}
	}

	if e.alerts != nil {
		if err := e.alerts.EvaluateCall(ctx, call); err != nil {
			e.log.Warn().Err(err).Int64("call_id", call.ID).Msg("alert evaluation failed")
		}
	}

	return nil
}
