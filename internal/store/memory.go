package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/i474232898/roadtrip-planner/internal/weather"
)

var (
	// ErrNotFound is returned when a cache has no entry for a key.
	ErrNotFound = errors.New("no cached entry")
)

// NormalsCache is a concurrency-safe in-memory cache of per-city climate
// normals. Keys are (country, city) so identically named cities in different
// countries cannot collide.
type NormalsCache struct {
	mu   sync.RWMutex
	data map[string]weather.CityNormals
}

// NewNormalsCache creates an empty NormalsCache.
func NewNormalsCache() *NormalsCache {
	return &NormalsCache{data: make(map[string]weather.CityNormals)}
}

func normalsKey(country, city string) string {
	return country + ":" + city
}

// Put stores or replaces the normals for a city.
func (c *NormalsCache) Put(country, city string, normals weather.CityNormals) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[normalsKey(country, city)] = normals
}

// Get returns the normals for a city.
func (c *NormalsCache) Get(country, city string) (weather.CityNormals, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	normals, ok := c.data[normalsKey(country, city)]
	if !ok {
		return weather.CityNormals{}, fmt.Errorf("%w: %s, %s", ErrNotFound, city, country)
	}
	return normals, nil
}

// NormalsEntry is one (country, city) record for bulk replacement.
type NormalsEntry struct {
	Country string
	City    string
	Normals weather.CityNormals
}

// ReplaceAll swaps the whole cache content in one step, so readers see
// either the old generation or the new one, never a half-built mix.
func (c *NormalsCache) ReplaceAll(entries []NormalsEntry) {
	data := make(map[string]weather.CityNormals, len(entries))
	for _, e := range entries {
		data[normalsKey(e.Country, e.City)] = e.Normals
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
}

// Delete removes a city's entry if present.
func (c *NormalsCache) Delete(country, city string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, normalsKey(country, city))
}

// Len returns the number of cached cities.
func (c *NormalsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// dailyEntry pairs cached stats with their insertion time for age eviction.
type dailyEntry struct {
	stats  weather.DailyStats
	cached time.Time
}

// DailiesCache caches historical-day statistics per (station, month, day) so
// annotating the same arrival window twice does not refetch three decades of
// daily records. Entries older than maxAge are evicted on read; maxAge <= 0
// disables eviction.
type DailiesCache struct {
	mu     sync.RWMutex
	data   map[string]dailyEntry
	maxAge time.Duration
}

// NewDailiesCache creates a DailiesCache with the given entry lifetime.
func NewDailiesCache(maxAge time.Duration) *DailiesCache {
	return &DailiesCache{
		data:   make(map[string]dailyEntry),
		maxAge: maxAge,
	}
}

func dailyKey(stationID string, day int, month time.Month) string {
	return fmt.Sprintf("%s:%02d-%02d", stationID, int(month), day)
}

// Put stores the stats for one station-day.
func (c *DailiesCache) Put(stationID string, day int, month time.Month, stats weather.DailyStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[dailyKey(stationID, day, month)] = dailyEntry{stats: stats, cached: time.Now()}
}

// Get returns the cached stats for one station-day, if fresh.
func (c *DailiesCache) Get(stationID string, day int, month time.Month) (weather.DailyStats, error) {
	key := dailyKey(stationID, day, month)

	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		return weather.DailyStats{}, ErrNotFound
	}
	if c.maxAge > 0 && time.Since(entry.cached) > c.maxAge {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return weather.DailyStats{}, ErrNotFound
	}
	return entry.stats, nil
}
