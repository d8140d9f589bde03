// Package units implements the §4.I Unit Tagger: turning unit tokens found
// in a call's cleaned transcript into persisted UnitTag attachments.
package units

import (
	"context"
	"fmt"

	"github.com/scanwatch/dispatch-engine/internal/database"
	"github.com/scanwatch/dispatch-engine/internal/postprocess"
)

// Store is the subset of *database.DB the Unit Tagger needs.
type Store interface {
	GetUnitTag(ctx context.Context, unitType string, unitNumber int) (*database.UnitTag, error)
	CreateUnitTag(ctx context.Context, unitType string, unitNumber int) (*database.UnitTag, error)
	AttachUnit(ctx context.Context, callID, unitID int64) error
}

// Tagger attaches UnitTags to Calls based on their transcript (spec.md §4.I).
type Tagger struct {
	store Store
}

// New builds a Tagger.
func New(store Store) *Tagger {
	return &Tagger{store: store}
}

// Tag extracts unit tokens from transcript, looks up or creates a UnitTag
// for each `(unitType, unitNumber)` pair, and attaches it to callID.
// Unrecognized unit types are silently skipped, per §4.I's "known types"
// scoping.
func (t *Tagger) Tag(ctx context.Context, callID int64, transcript string) ([]*database.UnitTag, error) {
	tokens := postprocess.ExtractUnits(transcript)

	var tags []*database.UnitTag
	for _, tok := range tokens {
		if !database.KnownUnitTypes[tok.Type] {
			continue
		}

		tag, err := t.store.GetUnitTag(ctx, tok.Type, tok.Number)
		if err != nil {
			return nil, fmt.Errorf("lookup unit tag %s %d: %w", tok.Type, tok.Number, err)
		}
		if tag == nil {
			tag, err = t.store.CreateUnitTag(ctx, tok.Type, tok.Number)
			if err != nil {
				return nil, fmt.Errorf("create unit tag %s %d: %w", tok.Type, tok.Number, err)
			}
		}

		if err := t.store.AttachUnit(ctx, callID, tag.ID); err != nil {
			return nil, fmt.Errorf("attach unit tag %d to call %d: %w", tag.ID, callID, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
