package source

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/geoengine-bot/geoengine/internal/fetch"
)

// AssetCache is a concurrent-safe LRU cache for raw asset payloads with
// TTL expiration, keyed by location.
type AssetCache struct {
	mu         sync.Mutex
	entries    map[string]*assetCacheEntry
	order      []string // front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
	hits       atomic.Int64
	misses     atomic.Int64
}

type assetCacheEntry struct {
	data      []byte
	createdAt time.Time
}

// CacheStats contains cache performance counters.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewAssetCache creates a cache with the given capacity and TTL.
func NewAssetCache(maxEntries int, ttl time.Duration) *AssetCache {
	return &AssetCache{
		entries:    make(map[string]*assetCacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get retrieves a cached payload. Returns nil on miss or expiration.
func (c *AssetCache) Get(location string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[location]
	if !ok {
		c.misses.Add(1)
		return nil
	}
	if time.Since(entry.createdAt) > c.ttl {
		delete(c.entries, location)
		c.removeFromOrder(location)
		c.misses.Add(1)
		return nil
	}

	c.removeFromOrder(location)
	c.order = append(c.order, location)
	c.hits.Add(1)
	return entry.data
}

// Put stores a payload, evicting the oldest entry if at capacity.
func (c *AssetCache) Put(location string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[location]; ok {
		c.entries[location] = &assetCacheEntry{data: data, createdAt: time.Now()}
		c.removeFromOrder(location)
		c.order = append(c.order, location)
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[location] = &assetCacheEntry{data: data, createdAt: time.Now()}
	c.order = append(c.order, location)
}

// Stats returns cache performance counters.
func (c *AssetCache) Stats() CacheStats {
	c.mu.Lock()
	entries := len(c.entries)
	maxEntries := c.maxEntries
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return CacheStats{
		Entries:    entries,
		MaxEntries: maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

func (c *AssetCache) removeFromOrder(location string) {
	for i, k := range c.order {
		if k == location {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// CachingFetcher decorates a fetcher with an AssetCache. Missing assets
// are not cached; every miss is re-fetched.
type CachingFetcher struct {
	Inner fetch.Fetcher
	Cache *AssetCache
}

// Fetch serves from the cache when possible.
func (f *CachingFetcher) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	if data := f.Cache.Get(location); data != nil {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	body, err := f.Inner.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.Cache.Put(location, data)
	return io.NopCloser(bytes.NewReader(data)), nil
}
