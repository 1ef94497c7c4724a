package provider

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/crosstalk-ai/crosstalk/config"
	"github.com/crosstalk-ai/crosstalk/llm"
)

const (
	// DefaultTTL is how long an unused client stays cached.
	DefaultTTL = 30 * time.Minute
	// DefaultMaxEntries bounds the cache size; the least-used entries
	// are evicted when the bound is exceeded.
	DefaultMaxEntries = 10
	// DefaultSweepInterval is how often expired entries are collected.
	DefaultSweepInterval = 5 * time.Minute
)

// entry is one cached client plus the bookkeeping needed for TTL and
// capacity decisions. TTL works off lastUsed; capacity eviction works
// off useCount, so a client hammered long ago can still age out while a
// hot client never loses its slot to newcomers.
type entry struct {
	client      llm.Client
	fingerprint string
	lastUsed    time.Time
	useCount    int64
}

// Cache is a TTL/least-used cache of built provider clients keyed by
// provider id and base URL. A configuration change is detected through
// the config fingerprint and forces a rebuild.
type Cache struct {
	registry *Registry
	logger   zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry

	ttl time.Duration
	max int
	now func() time.Time // test clock

	stop chan struct{}
	once sync.Once
}

// NewCache creates a cache in front of the given registry.
func NewCache(registry *Registry, logger zerolog.Logger) *Cache {
	return &Cache{
		registry: registry,
		logger:   logger.With().Str("component", "providerCache").Logger(),
		entries:  make(map[string]*entry),
		ttl:      DefaultTTL,
		max:      DefaultMaxEntries,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// cacheKey identifies one provider instance. Providers reachable at
// several base URLs get distinct entries.
func cacheKey(id string, cfg *config.LLMConfig) string {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "default"
	}
	return id + "|" + baseURL
}

// Resolve returns the cached client for the provider, building one if
// none exists, the cached one has expired, or the configuration
// fingerprint changed.
func (c *Cache) Resolve(id string, cfg *config.LLMConfig) (llm.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("provider %q: config is required", id)
	}
	key := cacheKey(id, cfg)
	fingerprint := cfg.Fingerprint()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if e.fingerprint == fingerprint && c.now().Sub(e.lastUsed) < c.ttl {
			e.lastUsed = c.now()
			e.useCount++
			return e.client, nil
		}
		// Stale entry: expired or reconfigured.
		delete(c.entries, key)
		c.logger.Debug().Str("provider", id).Msg("Rebuilding cached client")
	}

	client, err := c.registry.Build(id, cfg)
	if err != nil {
		return nil, err
	}

	c.entries[key] = &entry{
		client:      client,
		fingerprint: fingerprint,
		lastUsed:    c.now(),
		useCount:    1,
	}
	c.evictOverflow()
	return client, nil
}

// evictOverflow removes the least-used entries until the cache is
// within bounds, breaking ties by oldest lastUsed. Callers must hold
// the lock.
func (c *Cache) evictOverflow() {
	for len(c.entries) > c.max {
		var victimKey string
		var victim *entry
		for key, e := range c.entries {
			if victim == nil || e.useCount < victim.useCount ||
				(e.useCount == victim.useCount && e.lastUsed.Before(victim.lastUsed)) {
				victimKey = key
				victim = e
			}
		}
		delete(c.entries, victimKey)
		c.logger.Debug().Str("key", victimKey).Msg("Evicted least-used client")
	}
}

// Sweep removes entries unused for longer than the TTL.
func (c *Cache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.ttl)
	for key, e := range c.entries {
		if e.lastUsed.Before(cutoff) {
			delete(c.entries, key)
			c.logger.Debug().Str("key", key).Msg("Swept expired client")
		}
	}
}

// Start launches the periodic sweep loop.
func (c *Cache) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Sweep()
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop halts the sweep loop. It is safe to call more than once.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Invalidate drops all cached clients for the given provider id.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := id + "|"
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Len reports the number of cached clients.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
