package geocode

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// cache wraps two expirable LRUs — positive hits live 24h, negative
// (no-match) results live 1h, per §4.F step 4's differing TTLs.
type cache struct {
	positive *expirable.LRU[string, Coordinates]
	negative *expirable.LRU[string, struct{}]
}

func newCache(size int, positiveTTL, negativeTTL time.Duration) *cache {
	if size <= 0 {
		size = 2000
	}
	return &cache{
		positive: expirable.NewLRU[string, Coordinates](size, nil, positiveTTL),
		negative: expirable.NewLRU[string, struct{}](size, nil, negativeTTL),
	}
}

// get reports a cached result: (coords, true, true) for a positive hit,
// (nil, true, false) for a cached negative, (nil, false, false) for a miss.
func (c *cache) get(key string) (coords *Coordinates, found bool, positive bool) {
	if v, ok := c.positive.Get(key); ok {
		return &v, true, true
	}
	if _, ok := c.negative.Get(key); ok {
		return nil, true, false
	}
	return nil, false, false
}

func (c *cache) putPositive(key string, coords Coordinates) {
	c.positive.Add(key, coords)
}

func (c *cache) putNegative(key string) {
	c.negative.Add(key, struct{}{})
}
