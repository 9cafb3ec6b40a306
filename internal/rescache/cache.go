// Package rescache provides an in-memory TTL cache with single-flight fetch
// deduplication and a background expiry sweep.
//
// For any key, at most one fetch is in flight at a time: concurrent callers
// for the same key await the shared result instead of issuing duplicates.
// This is the invariant that prevents quota amplification upstream.
package rescache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Class names a TTL policy. Each cached key is bound to exactly one class
// at creation.
type Class string

const (
	ClassStaticReference Class = "static-reference"
	ClassRecentMatches   Class = "recent-matches"
	ClassSummoner        Class = "summoner"
	ClassSnapshot        Class = "analytics-snapshot"
)

// Config holds the TTL per class plus sweep and negative-cache behaviour.
type Config struct {
	TTLs          map[Class]time.Duration
	NegativeTTL   time.Duration // How long retryable fetch failures are cached
	SweepInterval time.Duration
}

// Stats is a monitoring snapshot of the cache.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Swept   int64 `json:"swept"`
}

// RetryableError marks fetch failures that may be negative-cached briefly.
// Non-retryable failures are never stored, so callers can retry immediately.
type RetryableError interface {
	error
	Retryable() bool
}

type entry struct {
	value     interface{}
	err       error // Non-nil for negative-cache entries
	expiresAt time.Time
}

// FetchFunc produces the value for a key on cache miss.
type FetchFunc func(ctx context.Context) (interface{}, error)

// Cache is a TTL-keyed store with single-flight fetch deduplication.
type Cache struct {
	cfg Config
	log zerolog.Logger

	mu      sync.RWMutex
	entries map[string]entry

	flight singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	swept  atomic.Int64

	now func() time.Time
}

// New creates a cache. Missing class TTLs fall back to one minute.
func New(cfg Config, log zerolog.Logger) *Cache {
	if cfg.TTLs == nil {
		cfg.TTLs = map[Class]time.Duration{}
	}
	if cfg.NegativeTTL <= 0 {
		cfg.NegativeTTL = 5 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	return &Cache{
		cfg:     cfg,
		log:     log.With().Str("component", "rescache").Logger(),
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *Cache) ttl(class Class) time.Duration {
	if ttl, ok := c.cfg.TTLs[class]; ok && ttl > 0 {
		return ttl
	}
	return time.Minute
}

// lookup returns a live entry for key, if any.
func (c *Cache) lookup(key string) (entry, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		return entry{}, false
	}
	return e, true
}

// GetOrFetch returns the cached value for key, or runs fetch to produce it.
// Concurrent callers with the same key share a single fetch; all receive the
// same success or the same failure. A caller whose context ends while waiting
// abandons the shared fetch without disturbing the other waiters.
func (c *Cache) GetOrFetch(ctx context.Context, key string, class Class, fetch FetchFunc) (interface{}, error) {
	if e, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return e.value, e.err
	}
	c.misses.Add(1)

	// The flight is shared, so it must not run on any one caller's context:
	// the initiator cancelling would abort the fetch for every waiter and
	// negative-cache the failure for callers arriving after them.
	fetchCtx := context.WithoutCancel(ctx)

	ch := c.flight.DoChan(key, func() (interface{}, error) {
		// Re-check: another flight may have filled the entry between our
		// lookup and joining the group.
		if e, ok := c.lookup(key); ok {
			return e.value, e.err
		}

		value, err := fetch(fetchCtx)
		now := c.now()

		if err == nil {
			c.store(key, entry{value: value, expiresAt: now.Add(c.ttl(class))})
			return value, nil
		}

		// Retryable failures are cached for a few seconds to stop a
		// thundering herd of retries; everything else is not stored.
		if re, ok := err.(RetryableError); ok && re.Retryable() {
			c.store(key, entry{err: err, expiresAt: now.Add(c.cfg.NegativeTTL)})
		}
		return nil, err
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("cache fetch for %s abandoned: %w", key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val, nil
	}
}

func (c *Cache) store(key string, e entry) {
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Invalidate removes a single key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePrefix removes every key with the given prefix.
// Returns the number of entries dropped.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			dropped++
		}
	}
	return dropped
}

// Run executes the background expiry sweep until ctx is cancelled.
// Sweeping holds the write lock only while deleting, so it never blocks
// reads of unrelated keys for long.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Debug().Msg("Cache sweep stopped")
			return
		case <-ticker.C:
			if removed := c.sweep(); removed > 0 {
				c.log.Debug().Int("removed", removed).Msg("Swept expired cache entries")
			}
		}
	}
}

// sweep removes expired entries and returns how many were dropped.
func (c *Cache) sweep() int {
	now := c.now()

	// Collect candidates under the read lock to keep writer stalls short.
	c.mu.RLock()
	var expired []string
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			expired = append(expired, key)
		}
	}
	c.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}

	removed := 0
	c.mu.Lock()
	for _, key := range expired {
		if e, ok := c.entries[key]; ok && now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	c.swept.Add(int64(removed))
	return removed
}

// Stats returns a monitoring snapshot.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Entries: entries,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Swept:   c.swept.Load(),
	}
}
