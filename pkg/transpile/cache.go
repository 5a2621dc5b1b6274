package transpile

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"github.com/leapstack-labs/leapdplyr/pkg/core"
)

// Cache defaults.
const (
	DefaultCacheSize = 100
	DefaultCacheTTL  = 5 * time.Minute
)

// CacheStats are the counters of a CachingEngine.
type CacheStats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns hits over lookups, or 0 with no lookups.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Effective reports whether more than half of all lookups hit.
func (s CacheStats) Effective() bool {
	return s.HitRate() > 0.5
}

// ShouldClear reports a hit rate under 10% after at least 20 lookups.
func (s CacheStats) ShouldClear() bool {
	return s.Hits+s.Misses >= 20 && s.HitRate() < 0.1
}

func (s CacheStats) String() string {
	return fmt.Sprintf("size=%d/%d hits=%d misses=%d evictions=%d hit_rate=%.2f%%",
		s.Size, s.Capacity, s.Hits, s.Misses, s.Evictions, s.HitRate()*100)
}

type cached struct {
	sql     string
	created time.Time
}

// CachingEngine memoizes successful compiles of another Engine in an LRU
// with a fixed time-to-live. Failures are never cached.
//
// Each session gets its own CachingEngine so cached entries never cross
// calling contexts.
type CachingEngine struct {
	next Engine
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	entries  *lru.Cache
	capacity int
	stats    CacheStats
	clearing bool
}

// NewCachingEngine wraps next. Non-positive size or ttl take the defaults.
func NewCachingEngine(next Engine, size int, ttl time.Duration) *CachingEngine {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &CachingEngine{
		next:     next,
		ttl:      ttl,
		now:      time.Now,
		entries:  lru.New(size),
		capacity: size,
	}
	c.entries.OnEvicted = c.onEvicted
	return c
}

// Compile returns the cached SQL for code and opts, or compiles and caches it.
func (c *CachingEngine) Compile(code string, opts core.Options) (string, error) {
	key := cacheKey(code, opts)

	c.mu.Lock()
	if v, ok := c.entries.Get(key); ok {
		entry := v.(cached)
		if c.now().Sub(entry.created) < c.ttl {
			c.stats.Hits++
			c.mu.Unlock()
			return entry.sql, nil
		}
		c.clearing = true
		c.entries.Remove(key)
		c.clearing = false
	}
	c.stats.Misses++
	c.mu.Unlock()

	sql, err := c.next.Compile(code, opts)
	if err != nil || sql == "" {
		return sql, err
	}

	c.mu.Lock()
	c.entries.Add(key, cached{sql: sql, created: c.now()})
	c.mu.Unlock()
	return sql, nil
}

// Stats returns a snapshot of the counters.
func (c *CachingEngine) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.entries.Len()
	s.Capacity = c.capacity
	return s
}

// Clear drops every entry and resets the counters.
func (c *CachingEngine) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearing = true
	c.entries.Clear()
	c.clearing = false
	c.stats = CacheStats{}
}

// onEvicted runs with mu held. Only capacity evictions are counted.
func (c *CachingEngine) onEvicted(lru.Key, interface{}) {
	if !c.clearing {
		c.stats.Evictions++
	}
}

// Version forwards to the wrapped engine.
func (c *CachingEngine) Version() string {
	if v, ok := c.next.(Versioned); ok {
		return v.Version()
	}
	return "unknown"
}

type key struct {
	code              string
	strict            bool
	preserveComments  bool
	debug             bool
	maxInputLength    int
	maxProcessingTime time.Duration
}

func cacheKey(code string, opts core.Options) key {
	return key{
		code:              code,
		strict:            opts.StrictMode,
		preserveComments:  opts.PreserveComments,
		debug:             opts.Debug,
		maxInputLength:    opts.MaxInputLength,
		maxProcessingTime: opts.MaxProcessingTime,
	}
}
