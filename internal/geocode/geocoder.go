// Package geocode resolves a cleaned incident address into coordinates
// (spec.md §4.F): normalize, check a two-tier cache, fall back to external
// providers with bounded concurrency and a single in-flight call per key.
package geocode

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/scanwatch/dispatch-engine/internal/database"
)

// Store persists geocode results across restarts, backed by the
// geocode_cache table.
type Store interface {
	GetGeocodeCache(ctx context.Context, normalized string) (*database.GeocodeCacheEntry, error)
	PutGeocodeCache(ctx context.Context, e *database.GeocodeCacheEntry) error
}

// Options configures a Geocoder.
type Options struct {
	Jurisdiction    string
	CacheSize       int
	PositiveTTL     time.Duration // default 24h
	NegativeTTL     time.Duration // default 1h
	ProviderTimeout time.Duration
	ConcurrencyCap  int // per-provider in-flight cap, default 2
}

// Geocoder is the §4.F orchestrator: providers are tried in order (primary,
// then fallback), each bounded by its own concurrency semaphore.
type Geocoder struct {
	providers    []Provider
	store        Store
	cache        *cache
	jurisdiction string
	negativeTTL  time.Duration

	sems  map[string]chan struct{}
	group singleflight.Group

	log zerolog.Logger
}

// New builds a Geocoder. providers is tried in order; an empty slice means
// every lookup misses and returns (nil, nil).
func New(providers []Provider, store Store, opts Options, log zerolog.Logger) *Geocoder {
	positiveTTL := opts.PositiveTTL
	if positiveTTL <= 0 {
		positiveTTL = 24 * time.Hour
	}
	negativeTTL := opts.NegativeTTL
	if negativeTTL <= 0 {
		negativeTTL = time.Hour
	}
	cap := opts.ConcurrencyCap
	if cap <= 0 {
		cap = 2
	}
	sems := make(map[string]chan struct{}, len(providers))
	for _, p := range providers {
		sems[p.Name()] = make(chan struct{}, cap)
	}
	return &Geocoder{
		providers:    providers,
		store:        store,
		cache:        newCache(opts.CacheSize, positiveTTL, negativeTTL),
		jurisdiction: opts.Jurisdiction,
		negativeTTL:  negativeTTL,
		sems:         sems,
		log:          log.With().Str("component", "geocoder").Logger(),
	}
}

// Geocode resolves address to coordinates, or (nil, nil) when no provider
// found a match.
func (g *Geocoder) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	key := normalize(address, g.jurisdiction)
	if key == "" {
		return nil, nil
	}

	if coords, found, positive := g.cache.get(key); found {
		if positive {
			return coords, nil
		}
		return nil, nil
	}

	if g.store != nil {
		if entry, err := g.store.GetGeocodeCache(ctx, key); err == nil && entry != nil {
			if entry.Negative {
				g.cache.putNegative(key)
				return nil, nil
			}
			if entry.Latitude != nil && entry.Longitude != nil {
				coords := Coordinates{Latitude: *entry.Latitude, Longitude: *entry.Longitude, Formatted: entry.Formatted}
				g.cache.putPositive(key, coords)
				return &coords, nil
			}
		}
	}

	v, err, _ := g.group.Do(key, func() (interface{}, error) {
		return g.resolve(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	coords := v.(Coordinates)
	return &coords, nil
}

// resolve tries each provider in order, bounded by its concurrency
// semaphore, and persists whatever it finds (positive or negative). When no
// provider matched and at least one provider call failed, it returns the
// last error and caches nothing.
func (g *Geocoder) resolve(ctx context.Context, key string) (interface{}, error) {
	var lastErr error
	for _, p := range g.providers {
		sem := g.sems[p.Name()]
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		coords, err := p.Geocode(ctx, key)
		<-sem

		if err != nil {
			g.log.Warn().Err(err).Str("provider", p.Name()).Msg("geocode provider call failed")
			lastErr = err
			continue
		}
		if coords != nil {
			g.persist(ctx, key, coords)
			return *coords, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	g.persist(ctx, key, nil)
	return nil, nil
}

func (g *Geocoder) persist(ctx context.Context, key string, coords *Coordinates) {
	if coords != nil {
		g.cache.putPositive(key, *coords)
	} else {
		g.cache.putNegative(key)
	}
	if g.store == nil {
		return
	}
	entry := &database.GeocodeCacheEntry{NormalizedAddress: key}
	if coords != nil {
		entry.Latitude = &coords.Latitude
		entry.Longitude = &coords.Longitude
		entry.Formatted = coords.Formatted
		entry.ExpiresAt = time.Now().Add(24 * time.Hour)
	} else {
		entry.Negative = true
		entry.ExpiresAt = time.Now().Add(g.negativeTTL)
	}
	if err := g.store.PutGeocodeCache(ctx, entry); err != nil {
		g.log.Warn().Err(err).Msg("failed to persist geocode cache entry")
	}
}
