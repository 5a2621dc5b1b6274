// Package session scopes per-connection state: the pipeline artifact handed
// from parse to bind, and an isolated transpile cache.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapdplyr/pkg/transpile"
)

// Session is one logical connection. At most one query's pipeline state is
// in flight on it at a time.
type Session struct {
	ID      string
	Created time.Time

	cache *transpile.CachingEngine

	mu     sync.Mutex
	values map[string]any
}

// New creates a standalone session with a fresh ID. If engine is non-nil the
// session gets its own cache in front of it.
func New(engine transpile.Engine, cacheSize int, ttl time.Duration) *Session {
	s := &Session{
		ID:      uuid.NewString(),
		Created: time.Now(),
		values:  make(map[string]any),
	}
	if engine != nil {
		s.cache = transpile.NewCachingEngine(engine, cacheSize, ttl)
	}
	return s
}

// Engine returns the session's cached engine, or nil if it has none.
func (s *Session) Engine() transpile.Engine {
	if s.cache == nil {
		return nil
	}
	return s.cache
}

// CacheStats returns the session cache counters.
func (s *Session) CacheStats() transpile.CacheStats {
	if s.cache == nil {
		return transpile.CacheStats{}
	}
	return s.cache.Stats()
}

// ClearCache drops the session cache.
func (s *Session) ClearCache() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// Set stores v under key, replacing any previous value.
func (s *Session) Set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = v
}

// Get returns the value under key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Take returns and removes the value under key.
func (s *Session) Take(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	delete(s.values, key)
	return v, ok
}

// Delete removes key. It is a no-op if key is absent.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

func (s *Session) reset() {
	s.mu.Lock()
	clear(s.values)
	s.mu.Unlock()
	s.ClearCache()
}
