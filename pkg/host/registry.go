package host

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Factory creates an unconnected Host.
type Factory func(*slog.Logger) Host

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a host factory to the registry.
// Called by host implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a host factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// New creates an unconnected host for cfg.Type.
// A nil logger is replaced by a discard logger.
func New(cfg Config, logger *slog.Logger) (Host, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("host type not specified")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownHostError{
			Type:      cfg.Type,
			Available: List(),
		}
	}
	return factory(logger), nil
}

// List returns all registered host names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a host type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownHostError is returned when an unknown host type is requested.
type UnknownHostError struct {
	Type      string
	Available []string
}

func (e *UnknownHostError) Error() string {
	return fmt.Sprintf("unknown host type %q\nAvailable hosts: %v\nHint: Check host.type in leapdplyr.yaml or DPLYR_HOST_TYPE", e.Type, e.Available)
}
