package geocode

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

type fakeProvider struct {
	name  string
	calls atomic.Int32
	coord *Coordinates
	err   error
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	f.calls.Add(1)
	return f.coord, f.err
}

type fakeStore struct {
	entries map[string]*database.GeocodeCacheEntry
}

func newFakeStore() *fakeStore { return &fakeStore{entries: map[string]*database.GeocodeCacheEntry{}} }

func (s *fakeStore) GetGeocodeCache(ctx context.Context, normalized string) (*database.GeocodeCacheEntry, error) {
	return s.entries[normalized], nil
}

func (s *fakeStore) PutGeocodeCache(ctx context.Context, e *database.GeocodeCacheEntry) error {
	s.entries[e.NormalizedAddress] = e
	return nil
}

func TestGeocoder_PositiveHitCachedInProcess(t *testing.T) {
	p := &fakeProvider{name: "primary", coord: &Coordinates{Latitude: 39.7, Longitude: -86.1, Formatted: "123 Main St"}}
	g := New([]Provider{p}, newFakeStore(), Options{}, zerolog.Nop())

	first, err := g.Geocode(context.Background(), "123 Main St")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if first == nil || first.Formatted != "123 Main St" {
		t.Fatalf("first = %+v, want a hit", first)
	}

	second, err := g.Geocode(context.Background(), "123 Main St")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if second == nil {
		t.Fatal("expected cached second hit")
	}
	if p.calls.Load() != 1 {
		t.Errorf("provider called %d times, want 1 (second lookup should hit cache)", p.calls.Load())
	}
}

func TestGeocoder_NegativeResultCached(t *testing.T) {
	p := &fakeProvider{name: "primary", coord: nil}
	g := New([]Provider{p}, newFakeStore(), Options{}, zerolog.Nop())

	coords, err := g.Geocode(context.Background(), "nowhere at all")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if coords != nil {
		t.Errorf("expected nil coords for negative result, got %+v", coords)
	}

	_, _ = g.Geocode(context.Background(), "nowhere at all")
	if p.calls.Load() != 1 {
		t.Errorf("provider called %d times, want 1 (negative result should be cached)", p.calls.Load())
	}
}

func TestGeocoder_FallsBackToSecondProvider(t *testing.T) {
	primary := &fakeProvider{name: "primary", coord: nil}
	fallback := &fakeProvider{name: "fallback", coord: &Coordinates{Latitude: 1, Longitude: 2, Formatted: "fallback hit"}}
	g := New([]Provider{primary, fallback}, newFakeStore(), Options{}, zerolog.Nop())

	coords, err := g.Geocode(context.Background(), "123 Main St")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if coords == nil || coords.Formatted != "fallback hit" {
		t.Fatalf("coords = %+v, want fallback hit", coords)
	}
}

func TestGeocoder_PersistedCacheHitAvoidsProviderCall(t *testing.T) {
	lat, lng := 39.0, -86.0
	store := newFakeStore()
	key := normalize("123 Main St", "")
	store.entries[key] = &database.GeocodeCacheEntry{
		NormalizedAddress: key,
		Latitude:          &lat,
		Longitude:         &lng,
		Formatted:         "from store",
		ExpiresAt:         time.Now().Add(time.Hour),
	}
	p := &fakeProvider{name: "primary", coord: &Coordinates{Latitude: 99, Longitude: 99}}
	g := New([]Provider{p}, store, Options{}, zerolog.Nop())

	coords, err := g.Geocode(context.Background(), "123 Main St")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if coords == nil || coords.Formatted != "from store" {
		t.Fatalf("coords = %+v, want the persisted entry, not a fresh provider call", coords)
	}
	if p.calls.Load() != 0 {
		t.Errorf("provider called %d times, want 0 (persisted cache should have short-circuited)", p.calls.Load())
	}
}

func TestNormalize(t *testing.T) {
	got := normalize("  123   Main St  ", "Marion County, IN")
	want := "123 main st, marion county, in"
	if got != want {
		t.Errorf("normalize() = %q, want %q", got, want)
	}
}
