package eta

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/scrap-bidding/internal/models"
)

// DefaultSpeedMps is about 29 km/h, a city average for a loaded pickup vehicle.
const DefaultSpeedMps = 8.0

// Client returns a routed travel time in seconds.
type Client interface {
	EstimateSeconds(ctx context.Context, from, to models.Coord) (float64, error)
}

// DefaultCacheEntries bounds a Cache built by NewCache.
const DefaultCacheEntries = 10000

// Cache is a tiny in-memory cache for ETA lookups keyed by coords.
// Expired entries are swept on Set at most once per ttl; past MaxEntries the
// oldest entry is dropped.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]cacheEntry
	ttl        time.Duration
	MaxEntries int
	lastSweep  time.Time
}

type cacheEntry struct {
	v  float64
	ts time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl, MaxEntries: DefaultCacheEntries, lastSweep: time.Now()}
}

func keyFor(a, b models.Coord) string {
	return fmt.Sprintf("%.5f,%.5f->%.5f,%.5f", a.Lat, a.Lon, b.Lat, b.Lon)
}

// Get returns cached value and true if present and not expired.
func (c *Cache) Get(a, b models.Coord) (float64, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return 0, false
	}
	return e.v, true
}

func (c *Cache) Set(a, b models.Coord, v float64) {
	k := keyFor(a, b)
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Sub(c.lastSweep) >= c.ttl {
		for key, e := range c.store {
			if now.Sub(e.ts) > c.ttl {
				delete(c.store, key)
			}
		}
		c.lastSweep = now
	}
	if _, ok := c.store[k]; !ok && c.MaxEntries > 0 && len(c.store) >= c.MaxEntries {
		c.evictOldest()
	}
	c.store[k] = cacheEntry{v: v, ts: now}
}

// Len reports how many entries are held, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *Cache) evictOldest() {
	var oldest string
	var oldestTS time.Time
	for key, e := range c.store {
		if oldest == "" || e.ts.Before(oldestTS) {
			oldest, oldestTS = key, e.ts
		}
	}
	delete(c.store, oldest)
}

// EstimateSeconds is the straight-line fallback: distance / speed.
func EstimateSeconds(distanceKm, speedMps float64) float64 {
	if speedMps <= 0 {
		speedMps = DefaultSpeedMps
	}
	return distanceKm * 1000 / speedMps
}

// Enricher fills RankedJob.ETASeconds for the head of an already ranked list.
// It never reorders or drops jobs.
type Enricher struct {
	Client   Client // optional routing engine
	Cache    *Cache // optional
	SpeedMps float64
	TopN     int
}

func (e *Enricher) Enrich(ctx context.Context, origin models.Coord, jobs []models.RankedJob) {
	n := e.TopN
	if n <= 0 || n > len(jobs) {
		n = len(jobs)
	}
	for i := 0; i < n; i++ {
		j := &jobs[i]
		if j.Location == nil {
			continue
		}
		to := *j.Location
		if e.Cache != nil {
			if v, ok := e.Cache.Get(origin, to); ok {
				j.ETASeconds = v
				continue
			}
		}
		if e.Client != nil {
			if v, err := e.Client.EstimateSeconds(ctx, origin, to); err == nil {
				j.ETASeconds = v
				if e.Cache != nil {
					e.Cache.Set(origin, to, v)
				}
				continue
			}
		}
		j.ETASeconds = EstimateSeconds(j.DistanceKm, e.SpeedMps)
	}
}
