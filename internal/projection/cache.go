// Package projection memoizes template projections across analysis rounds.
package projection

import (
	"fmt"
	"math"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/ruumba/internal/erb"
)

type key struct {
	digest string
	marker erb.Marker
}

// Cache maps template contents to their projections. Capacity is measured in
// bytes of projection text. A nil or disabled Cache still extracts, it just
// remembers nothing.
type Cache struct {
	store *otter.Cache[key, string]
}

// NewCache builds a cache holding up to capacity bytes of projections.
// A capacity of zero or less disables caching.
func NewCache(capacity int) (*Cache, error) {
	if capacity <= 0 {
		return &Cache{}, nil
	}

	store, err := otter.MustBuilder[key, string](capacity).
		CollectStats().
		Cost(func(_ key, projection string) uint32 {
			if len(projection) > math.MaxUint32 {
				return math.MaxUint32
			}
			return uint32(len(projection)) + 1
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build projection cache: %w", err)
	}

	return &Cache{store: &store}, nil
}

// Extract returns erb.Extract(text, marker), computing it only on a miss.
func (c *Cache) Extract(text string, marker erb.Marker) string {
	if c == nil || c.store == nil {
		return erb.Extract(text, marker)
	}

	k := key{digest: erb.Digest(text), marker: marker}
	if projection, ok := c.store.Get(k); ok {
		return projection
	}

	projection := erb.Extract(text, marker)
	c.store.Set(k, projection)
	return projection
}

// Stats reports hits and misses since the cache was built.
func (c *Cache) Stats() (hits, misses int64) {
	if c == nil || c.store == nil {
		return 0, 0
	}
	stats := c.store.Stats()
	return stats.Hits(), stats.Misses()
}

// Close releases the cache's background resources.
func (c *Cache) Close() {
	if c != nil && c.store != nil {
		c.store.Close()
	}
}
