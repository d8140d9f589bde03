package bridge

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// dedupeCache is the in-memory front line of the two-tier dedupe check
// (spec.md §4.B step 1): an LRU sized for recent traffic, with the database
// unique constraint on AudioSegment.DedupeKey as the durable backstop for
// anything evicted or lost on restart.
type dedupeCache struct {
	cache *lru.Cache[string, struct{}]
}

func newDedupeCache(size int) (*dedupeCache, error) {
	if size <= 0 {
		size = 10000
	}
	c, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &dedupeCache{cache: c}, nil
}

// Seen reports whether key was already recorded, and records it if not.
func (d *dedupeCache) Seen(key string) bool {
	if _, ok := d.cache.Get(key); ok {
		return true
	}
	d.cache.Add(key, struct{}{})
	return false
}
