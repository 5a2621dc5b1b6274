package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/leapstack-labs/leapdplyr/pkg/transpile"
)

// Manager tracks open sessions.
type Manager struct {
	engine    transpile.Engine
	cacheSize int
	cacheTTL  time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager whose sessions each cache compiles of engine.
func NewManager(engine transpile.Engine, cacheSize int, cacheTTL time.Duration) *Manager {
	return &Manager{
		engine:    engine,
		cacheSize: cacheSize,
		cacheTTL:  cacheTTL,
		sessions:  make(map[string]*Session),
	}
}

// Open creates and registers a new session.
func (m *Manager) Open() *Session {
	s := New(m.engine, m.cacheSize, m.cacheTTL)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get looks up an open session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q not found", id)
	}
	return s, nil
}

// Close drops the session and all of its state.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %q not found", id)
	}
	s.reset()
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
