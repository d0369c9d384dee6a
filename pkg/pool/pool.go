// Package pool resolves a numeric pool ID to the filesystem root that
// backs it. Every other component addresses storage by pool ID, never by
// raw path, so callers can relocate or reattach a pool without touching
// the code that reads and writes its blocks.
package pool

import (
	"sync"

	"github.com/canmi21/rfs/pkg/rfserrors"
)

// Info describes one registered pool.
type Info struct {
	ID   uint64
	Path string
}

// Resolver maps a pool ID to its root directory.
type Resolver interface {
	Resolve(id uint64) (string, error)
}

// Registry is an in-memory, mutex-guarded Resolver. It is the daemon's only
// Resolver implementation; pools are normally registered at startup, and
// registering an id again replaces its root path.
type Registry struct {
	mu    sync.RWMutex
	pools map[uint64]string
}

// NewRegistry constructs an empty pool registry.
func NewRegistry() *Registry {
	return &Registry{pools: make(map[uint64]string)}
}

// Register adds or replaces the root path for id.
func (r *Registry) Register(id uint64, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools[id] = path
}

// Resolve returns the root path registered for id, or a
// rfserrors.ErrorCodePoolNotFound PathError if none is registered.
func (r *Registry) Resolve(id uint64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, ok := r.pools[id]
	if !ok {
		return "", rfserrors.NewPoolNotFoundError(id)
	}
	return path, nil
}

// List returns every registered pool, in no particular order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.pools))
	for id, path := range r.pools {
		infos = append(infos, Info{ID: id, Path: path})
	}
	return infos
}
