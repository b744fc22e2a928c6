// Package router maps exact request paths to normalized services.
//
// A Builder collects routes and layers and may serve requests while it is
// still being changed. Compile freezes it into a Table, which serves
// without locking.
package router

import (
	"sort"
	"sync"

	"routekit/pkg/handler"
	"routekit/pkg/httpx"
	"routekit/pkg/logger"
	"routekit/pkg/response"
)

// Builder is the mutable route table. S is the bound state handed to every
// handler registered through Handle0/1/2.
type Builder[S any] struct {
	mu       sync.RWMutex
	routes   map[string]handler.Service
	notFound handler.Service
	state    S
}

// New constructs a Builder without bound state.
func New() *Builder[struct{}] {
	return WithState(struct{}{})
}

// WithState constructs a Builder whose handlers receive state.
func WithState[S any](state S) *Builder[S] {
	return &Builder[S]{routes: make(map[string]handler.Service), state: state}
}

// State returns the bound state.
func (b *Builder[S]) State() S { return b.state }

// Register inserts or replaces the service for path.
func (b *Builder[S]) Register(path string, svc handler.Service) *Builder[S] {
	b.mu.Lock()
	_, replaced := b.routes[path]
	b.routes[path] = svc
	b.mu.Unlock()
	logger.Debug("route_registered", "path", path, "replaced", replaced)
	return b
}

// NotFound overrides the service used for unmatched paths.
func (b *Builder[S]) NotFound(svc handler.Service) *Builder[S] {
	b.mu.Lock()
	b.notFound = svc
	b.mu.Unlock()
	return b
}

// Layer wraps every route registered so far. Routes added later are not
// wrapped.
func (b *Builder[S]) Layer(l handler.Layer) *Builder[S] {
	b.mu.Lock()
	for path, svc := range b.routes {
		b.routes[path] = l(svc)
	}
	n := len(b.routes)
	b.mu.Unlock()
	logger.Debug("layer_applied", "routes", n)
	return b
}

// Lookup returns the service registered for path.
func (b *Builder[S]) Lookup(path string) (handler.Service, bool) {
	b.mu.RLock()
	svc, ok := b.routes[path]
	b.mu.RUnlock()
	return svc, ok
}

// Paths lists registered paths in sorted order.
func (b *Builder[S]) Paths() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedKeys(b.routes)
}

// Call dispatches r against the current routes.
func (b *Builder[S]) Call(r *httpx.Request) *response.Response {
	b.mu.RLock()
	nf := b.notFound
	b.mu.RUnlock()
	return dispatch(b.Lookup, nf, r)
}

// Compile snapshots the builder into an immutable Table. Later changes to
// the builder do not affect the table.
func (b *Builder[S]) Compile() *Table {
	b.mu.RLock()
	defer b.mu.RUnlock()
	routes := make(map[string]handler.Service, len(b.routes))
	for k, v := range b.routes {
		routes[k] = v
	}
	logger.Info("routes_compiled", "count", len(routes))
	return &Table{routes: routes, notFound: b.notFound}
}

func sortedKeys(m map[string]handler.Service) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
