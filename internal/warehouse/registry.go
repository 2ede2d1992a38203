package warehouse

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Adapter)
)

// Register adds an adapter factory for a connection target name.
// Called by adapter implementations in their init() functions.
func Register(target string, factory func(*slog.Logger) Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[target] = factory
}

// NewAdapter creates an adapter for the named connection target.
// A nil logger uses a discard logger.
func NewAdapter(target string, logger *slog.Logger) (Adapter, error) {
	if target == "" {
		return nil, fmt.Errorf("connection target not specified")
	}

	registryMu.RLock()
	factory, ok := registry[target]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownTargetError{Target: target, Available: ListTargets()}
	}
	return factory(logger), nil
}

// ListTargets returns all registered connection target names (sorted).
func ListTargets() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a connection target is registered.
func IsRegistered(target string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[target]
	return ok
}

// UnknownTargetError is returned when an unknown connection target is requested.
type UnknownTargetError struct {
	Target    string
	Available []string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("unknown connection target %q\nAvailable targets: %v\nHint: check connections in mdcx.yaml", e.Target, e.Available)
}
