package provider

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/crosstalk-ai/crosstalk/config"
)

func newTestCache() *Cache {
	return NewCache(NewRegistry(zerolog.Nop()), zerolog.Nop())
}

func customConfig(baseURL string) *config.LLMConfig {
	return &config.LLMConfig{
		Provider: "custom",
		BaseURL:  baseURL,
		Model:    "test-model",
		Timeout:  120,
	}
}

func TestCacheReusesClient(t *testing.T) {
	c := newTestCache()
	cfg := customConfig("http://localhost:8080")

	first, err := c.Resolve("local", cfg)
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}
	second, err := c.Resolve("local", cfg)
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}
	if first != second {
		t.Error("Expected the same cached client on repeat resolution")
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 cached entry, got %d", c.Len())
	}
}

func TestCacheRebuildsOnFingerprintChange(t *testing.T) {
	c := newTestCache()
	cfg := customConfig("http://localhost:8080")

	first, err := c.Resolve("local", cfg)
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}

	changed := *cfg
	changed.APIKey = "rotated-key"
	second, err := c.Resolve("local", &changed)
	if err != nil {
		t.Fatalf("Expected rebuilt client, got %v", err)
	}
	if first == second {
		t.Error("Expected a fresh client after a credential change")
	}
	if c.Len() != 1 {
		t.Errorf("Expected stale entry replaced, got %d entries", c.Len())
	}
}

func TestCacheModelChangeKeepsClient(t *testing.T) {
	c := newTestCache()
	cfg := customConfig("http://localhost:8080")

	first, err := c.Resolve("local", cfg)
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}

	changed := *cfg
	changed.Model = "other-model"
	second, err := c.Resolve("local", &changed)
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}
	if first != second {
		t.Error("Expected model changes to reuse the cached client")
	}
}

func TestCacheDistinctBaseURLs(t *testing.T) {
	c := newTestCache()

	a, err := c.Resolve("local", customConfig("http://host-a:8080"))
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}
	b, err := c.Resolve("local", customConfig("http://host-b:8080"))
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}
	if a == b {
		t.Error("Expected distinct clients per base URL")
	}
	if c.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", c.Len())
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newTestCache()
	clock := time.Now()
	c.now = func() time.Time { return clock }
	cfg := customConfig("http://localhost:8080")

	first, err := c.Resolve("local", cfg)
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}

	clock = clock.Add(DefaultTTL + time.Minute)
	second, err := c.Resolve("local", cfg)
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}
	if first == second {
		t.Error("Expected a fresh client after TTL expiry")
	}
}

func TestCacheSweep(t *testing.T) {
	c := newTestCache()
	clock := time.Now()
	c.now = func() time.Time { return clock }

	if _, err := c.Resolve("local", customConfig("http://localhost:8080")); err != nil {
		t.Fatalf("Expected client, got %v", err)
	}

	clock = clock.Add(time.Minute)
	c.Sweep()
	if c.Len() != 1 {
		t.Errorf("Expected fresh entry to survive sweep, got %d", c.Len())
	}

	clock = clock.Add(DefaultTTL)
	c.Sweep()
	if c.Len() != 0 {
		t.Errorf("Expected expired entry swept, got %d", c.Len())
	}
}

func TestCacheEvictsLeastUsed(t *testing.T) {
	c := newTestCache()
	c.max = 3
	clock := time.Now()
	c.now = func() time.Time { return clock }

	// host-0 is hot: resolved ten times.
	for i := 0; i < 10; i++ {
		clock = clock.Add(time.Second)
		if _, err := c.Resolve("local", customConfig("http://host-0:8080")); err != nil {
			t.Fatalf("Expected client, got %v", err)
		}
	}
	for i := 1; i < 4; i++ {
		clock = clock.Add(time.Second)
		url := fmt.Sprintf("http://host-%d:8080", i)
		if _, err := c.Resolve("local", customConfig(url)); err != nil {
			t.Fatalf("Expected client %d, got %v", i, err)
		}
	}

	if c.Len() != 3 {
		t.Errorf("Expected eviction down to 3 entries, got %d", c.Len())
	}
	c.mu.Lock()
	_, hotPresent := c.entries["local|http://host-0:8080"]
	_, coldPresent := c.entries["local|http://host-1:8080"]
	c.mu.Unlock()
	// Capacity eviction is by use count: the ten-times-resolved entry
	// survives even though single-use entries were touched more recently.
	if !hotPresent {
		t.Error("Expected the frequently used entry to survive capacity eviction")
	}
	if coldPresent {
		t.Error("Expected the oldest single-use entry evicted")
	}
}

func TestCacheTTLEvictsRegardlessOfUseCount(t *testing.T) {
	c := newTestCache()
	clock := time.Now()
	c.now = func() time.Time { return clock }
	cfg := customConfig("http://localhost:8080")

	for i := 0; i < 10; i++ {
		if _, err := c.Resolve("local", cfg); err != nil {
			t.Fatalf("Expected client, got %v", err)
		}
	}

	// Heavy past use does not protect an idle entry from the TTL sweep.
	clock = clock.Add(DefaultTTL + time.Minute)
	c.Sweep()
	if c.Len() != 0 {
		t.Errorf("Expected idle entry swept despite high use count, got %d", c.Len())
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := newTestCache()
	if _, err := c.Resolve("a", customConfig("http://host-a:8080")); err != nil {
		t.Fatalf("Expected client, got %v", err)
	}
	if _, err := c.Resolve("b", customConfig("http://host-b:8080")); err != nil {
		t.Fatalf("Expected client, got %v", err)
	}

	c.Invalidate("a")
	if c.Len() != 1 {
		t.Errorf("Expected only provider b cached, got %d entries", c.Len())
	}

	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("Expected empty cache, got %d entries", c.Len())
	}
}

func TestCacheRejectsNilConfig(t *testing.T) {
	c := newTestCache()
	if _, err := c.Resolve("local", nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestCacheStopIdempotent(t *testing.T) {
	c := newTestCache()
	c.Start(time.Millisecond)
	c.Stop()
	c.Stop()
}

func TestRegistryBuildErrors(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	if _, err := r.Build("x", &config.LLMConfig{Provider: "mystery"}); err == nil {
		t.Error("Expected error for unknown provider type")
	}
	if _, err := r.Build("x", &config.LLMConfig{Provider: "custom"}); err == nil {
		t.Error("Expected error for custom provider without base URL")
	}
	if _, err := r.Build("x", &config.LLMConfig{Provider: "openai"}); err == nil {
		t.Error("Expected error for openai provider without api key")
	}
}

func TestRegistryBuildsOllamaClient(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	client, err := r.Build("local", &config.LLMConfig{Provider: "ollama", BaseURL: "http://localhost:11434", Model: "llama3"})
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}
	if client == nil {
		t.Error("Expected non-nil client")
	}
}
