package channel

import (
	"sort"
	"sync"
)

// Registry maps method names to handlers. It is populated during startup and
// snapshotted by NewDispatcher; later registrations do not affect existing
// dispatchers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register installs a handler for a method. A second registration under the
// same name replaces the first.
func (r *Registry) Register(method string, handler HandlerFunc) {
	if method == "" {
		panic("channel: empty method name")
	}
	if handler == nil {
		panic("channel: nil handler for " + method)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[method] = handler
}

// Has reports whether a handler is registered for method.
func (r *Registry) Has(method string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[method]
	return ok
}

// Methods returns the registered method names in sorted order.
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) snapshot() map[string]HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]HandlerFunc, len(r.handlers))
	for name, h := range r.handlers {
		out[name] = h
	}
	return out
}
