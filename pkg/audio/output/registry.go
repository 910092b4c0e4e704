// ABOUTME: Reference-counted registry of shared backend connections
// ABOUTME: Lets several outputs share one audio library context by name
package output

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Registry hands out shared connections keyed by name, creating them on
// first use and closing them when the last holder releases.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	logger  *slog.Logger
}

type registryEntry struct {
	id   uuid.UUID
	conn io.Closer
	refs int
}

// Handle is one holder's reference to a shared connection
type Handle struct {
	ID   uuid.UUID
	Name string
	Conn io.Closer

	registry *Registry
	once     sync.Once
}

// NewRegistry creates an empty registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]*registryEntry),
		logger:  logger,
	}
}

// Acquire returns a handle to the connection registered under name,
// calling create if none exists yet
func (r *Registry) Acquire(name string, create func() (io.Closer, error)) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		conn, err := create()
		if err != nil {
			return nil, fmt.Errorf("failed to create %s connection: %w", name, err)
		}
		e = &registryEntry{id: uuid.New(), conn: conn}
		r.entries[name] = e
		r.logger.Debug("shared connection created", "name", name, "id", e.id)
	}

	e.refs++
	return &Handle{ID: e.id, Name: name, Conn: e.conn, registry: r}, nil
}

// Release drops the handle's reference. The connection is closed when no
// references remain. Releasing twice is a no-op.
func (h *Handle) Release() error {
	var err error
	h.once.Do(func() {
		err = h.registry.release(h.Name, h.ID)
	})
	return err
}

func (r *Registry) release(name string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok || e.id != id {
		return nil
	}

	e.refs--
	if e.refs > 0 {
		return nil
	}

	delete(r.entries, name)
	r.logger.Debug("shared connection closed", "name", name, "id", id)
	if err := e.conn.Close(); err != nil {
		return fmt.Errorf("failed to close %s connection: %w", name, err)
	}
	return nil
}

// Refs returns the number of live references to name
func (r *Registry) Refs(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		return e.refs
	}
	return 0
}
