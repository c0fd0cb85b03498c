// Package registry provides the process-wide handle registry that maps
// opaque string IDs to live automation objects (device descriptors, window
// descriptors, controllers, resources, taskers). It is the single source of
// truth for which objects are currently alive.
package registry

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps opaque string handles to live objects. Objects live for the
// lifetime of the process; there is no delete operation. A Registry is safe
// for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	objects map[string]any
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		objects: make(map[string]any),
	}
}

// Register stores obj under a freshly generated handle and returns the
// handle. It never fails.
func (r *Registry) Register(obj any) string {
	handle := uuid.NewString()
	r.mu.Lock()
	r.objects[handle] = obj
	r.mu.Unlock()
	return handle
}

// RegisterByName stores obj under the exact given name, overwriting any
// prior binding for that name.
func (r *Registry) RegisterByName(name string, obj any) {
	r.mu.Lock()
	r.objects[name] = obj
	r.mu.Unlock()
}

// Get returns the object bound to the given handle or name. The second
// return value is false when the handle is unknown; callers must treat
// absence as a normal outcome.
func (r *Registry) Get(handle string) (any, bool) {
	r.mu.RLock()
	obj, ok := r.objects[handle]
	r.mu.RUnlock()
	return obj, ok
}

// Len returns the number of live bindings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}
