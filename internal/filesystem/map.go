package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/altafino/upload-storage/internal/types"
)

// Map holds the filesystem handle registered for each destination
type Map struct {
	mu      sync.RWMutex
	handles map[string]Filesystem
}

// NewMap creates an empty Map
func NewMap() *Map {
	return &Map{handles: make(map[string]Filesystem)}
}

// NewMapFromConfig opens a handle for every configured destination
func NewMapFromConfig(ctx context.Context, cfg *types.Config, logger *slog.Logger) (*Map, error) {
	m := NewMap()

	for name, dest := range cfg.Destinations {
		fs, err := New(ctx, dest, logger.With("destination", name))
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to open destination %s: %w", name, err)
		}
		m.Set(name, fs)

		logger.Debug("registered destination",
			"destination", name,
			"type", dest.Type,
			"capabilities", Capabilities(fs),
		)
	}

	return m, nil
}

// Set registers fs under name, replacing any previous handle
func (m *Map) Set(name string, fs Filesystem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handles[name] = fs
}

// Get returns the handle registered under name
func (m *Map) Get(name string) (Filesystem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fs, ok := m.handles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDestination, name)
	}
	return fs, nil
}

// Has reports whether name is registered
func (m *Map) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.handles[name]
	return ok
}

// Names returns the registered destination names in sorted order
func (m *Map) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.handles))
	for name := range m.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every handle that holds resources
func (m *Map) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, fs := range m.handles {
		if c, ok := fs.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close destination %s: %w", name, err))
			}
		}
	}
	m.handles = make(map[string]Filesystem)
	return errors.Join(errs...)
}
