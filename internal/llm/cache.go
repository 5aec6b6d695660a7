package llm

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// sweepEvery bounds how often the amortized expiry sweep runs, in writes.
const sweepEvery = 64

type cacheEntry struct {
	op        string
	result    Result
	expiresAt time.Time
}

// responseCache is a TTL cache for completion results. Writes for the same
// key are last-writer-wins; expired entries are never returned and are
// swept opportunistically so memory stays bounded.
type responseCache struct {
	mu     sync.Mutex
	ttl    time.Duration
	items  map[string]cacheEntry
	hits   int
	misses int
	writes int
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:   ttl,
		items: make(map[string]cacheEntry),
	}
}

// cacheKey produces a stable key from the operation name and its string
// arguments. Collisions only cost cache efficiency, not correctness.
func cacheKey(op string, args ...string) string {
	h := fnv.New64a()
	h.Write([]byte(op))
	for _, a := range args {
		h.Write([]byte{0})
		h.Write([]byte(a))
	}
	return fmt.Sprintf("%s:%x", op, h.Sum64())
}

func (c *responseCache) get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		c.misses++
		return Result{}, false
	}
	c.hits++
	return e.result, true
}

func (c *responseCache) put(op, key string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheEntry{op: op, result: r, expiresAt: time.Now().Add(c.ttl)}
	c.writes++
	if c.writes%sweepEvery == 0 {
		c.sweepLocked()
	}
}

func (c *responseCache) sweepLocked() {
	now := time.Now()
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
		}
	}
}

// anyForOp returns any non-expired entry stored under the given operation.
// This is the baseline "similar enough" policy for cache-based fallback.
func (c *responseCache) anyForOp(op string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, e := range c.items {
		if e.op == op && now.Before(e.expiresAt) {
			return e.result, true
		}
	}
	return Result{}, false
}

func (c *responseCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]cacheEntry)
}

// CacheStats reports entry counts, an approximate byte size, and hit rate.
type CacheStats struct {
	Entries     int     `json:"entries"`
	ApproxBytes int     `json:"approx_bytes"`
	Hits        int     `json:"hits"`
	Misses      int     `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
}

func (c *responseCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := CacheStats{Entries: len(c.items), Hits: c.hits, Misses: c.misses}
	for k, e := range c.items {
		s.ApproxBytes += len(k) + len(e.result.Content)
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
