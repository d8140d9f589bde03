package units

import (
	"context"
	"fmt"
	"testing"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

type fakeStore struct {
	tags      map[string]*database.UnitTag
	nextID    int64
	attached  map[int64][]int64
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tags: map[string]*database.UnitTag{}, attached: map[int64][]int64{}}
}

func key(unitType string, unitNumber int) string {
	return fmt.Sprintf("%s#%d", unitType, unitNumber)
}

func (f *fakeStore) GetUnitTag(_ context.Context, unitType string, unitNumber int) (*database.UnitTag, error) {
	return f.tags[key(unitType, unitNumber)], nil
}

func (f *fakeStore) CreateUnitTag(_ context.Context, unitType string, unitNumber int) (*database.UnitTag, error) {
	f.nextID++
	tag := &database.UnitTag{ID: f.nextID, UnitType: unitType, UnitNumber: unitNumber, Active: true}
	f.tags[key(unitType, unitNumber)] = tag
	return tag, nil
}

func (f *fakeStore) AttachUnit(_ context.Context, callID, unitID int64) error {
	f.attached[callID] = append(f.attached[callID], unitID)
	return nil
}

func TestTag_CreatesAndAttachesNewUnits(t *testing.T) {
	store := newFakeStore()
	tagger := New(store)

	tags, err := tagger.Tag(context.Background(), 1, "engine 5 medic 3 responding")
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("Tag() returned %d tags, want 2", len(tags))
	}
	if len(store.attached[1]) != 2 {
		t.Errorf("attached units for call 1 = %v, want 2 entries", store.attached[1])
	}
}

func TestTag_ReusesExistingUnitTag(t *testing.T) {
	store := newFakeStore()
	store.tags[key("engine", 5)] = &database.UnitTag{ID: 42, UnitType: "engine", UnitNumber: 5}
	tagger := New(store)

	tags, err := tagger.Tag(context.Background(), 1, "engine 5 on scene")
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}
	if len(tags) != 1 || tags[0].ID != 42 {
		t.Errorf("Tag() = %+v, want reused tag id 42", tags)
	}
	if store.nextID != 0 {
		t.Errorf("CreateUnitTag was called, want no new tag created")
	}
}

func TestTag_NoUnitsInTranscript(t *testing.T) {
	store := newFakeStore()
	tagger := New(store)

	tags, err := tagger.Tag(context.Background(), 1, "all units clear the scene")
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("Tag() = %+v, want no tags when no unit tokens are present", tags)
	}
}
