// Package cache memoizes whole-second SGP4 states over a rolling window.
//
// Sub-second samples are interpolated between the two enclosing whole
// seconds, so a run at 100 ms resolution asks for each second's state about
// twenty times. The cache keeps the most recent Window seconds (measured from
// the newest stored instant, not the wall clock) and sweeps older entries
// once the map grows to twice that size.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/star/trackgen/internal/metrics"
	"github.com/star/trackgen/internal/transform"
)

// DefaultWindow covers the largest parallel batch at one-second resolution.
const DefaultWindow = 4096

// StateCache is a cache of TEME states keyed by whole UTC second.
// Safe for concurrent use by multiple goroutines.
type StateCache struct {
	mu      sync.RWMutex
	entries map[int64]transform.PositionTEME
	newest  int64
	window  int64

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewStateCache creates a cache holding about window seconds of states.
// window <= 0 selects DefaultWindow.
func NewStateCache(window int) *StateCache {
	if window <= 0 {
		window = DefaultWindow
	}
	return &StateCache{
		entries: make(map[int64]transform.PositionTEME),
		window:  int64(window),
	}
}

// key normalizes t to its whole UTC second.
func key(t time.Time) int64 {
	return t.Unix()
}

// Get returns the state stored for t's whole second.
func (c *StateCache) Get(t time.Time) (transform.PositionTEME, bool) {
	c.mu.RLock()
	s, ok := c.entries[key(t)]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		metrics.IncStateCacheHits()
	} else {
		c.misses.Add(1)
		metrics.IncStateCacheMisses()
	}
	return s, ok
}

// Put stores the state for t's whole second.
func (c *StateCache) Put(t time.Time, s transform.PositionTEME) {
	k := key(t)

	c.mu.Lock()
	c.entries[k] = s
	if k > c.newest || len(c.entries) == 1 {
		c.newest = k
	}
	var removed int
	if int64(len(c.entries)) > 2*c.window {
		cutoff := c.newest - c.window
		for ts := range c.entries {
			if ts < cutoff {
				delete(c.entries, ts)
				removed++
			}
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddStateCacheEvictions(removed)
	}
}

// GetOrCompute returns the cached state for t's second, computing and
// storing it on a miss. Errors are returned and not cached. Concurrent
// misses for the same second may both compute; the results are identical.
func (c *StateCache) GetOrCompute(t time.Time, compute func(time.Time) (transform.PositionTEME, error)) (transform.PositionTEME, error) {
	if s, ok := c.Get(t); ok {
		return s, nil
	}
	s, err := compute(t)
	if err != nil {
		return transform.PositionTEME{}, err
	}
	c.Put(t, s)
	return s, nil
}

// Stats holds cache statistics.
type Stats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Stats returns current cache statistics.
func (c *StateCache) Stats() Stats {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Entries:   count,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
