package router

import (
	"routekit/pkg/handler"
	"routekit/pkg/httpx"
	"routekit/pkg/logger"
	"routekit/pkg/response"
)

// Table is a compiled, read-only route table. It is safe for concurrent
// use without locking.
type Table struct {
	routes   map[string]handler.Service
	notFound handler.Service
}

// Lookup returns the service registered for path.
func (t *Table) Lookup(path string) (handler.Service, bool) {
	svc, ok := t.routes[path]
	return svc, ok
}

// Len is the number of routes.
func (t *Table) Len() int { return len(t.routes) }

// Paths lists the routes in sorted order.
func (t *Table) Paths() []string { return sortedKeys(t.routes) }

// Call dispatches r.
func (t *Table) Call(r *httpx.Request) *response.Response {
	return dispatch(t.Lookup, t.notFound, r)
}

// ServeHTTPX dispatches r and writes the response to w.
func (t *Table) ServeHTTPX(w httpx.ResponseWriter, r *httpx.Request) {
	Serve(t, w, r)
}

// Serve runs svc and hands its response to the transport.
func Serve(svc handler.Service, w httpx.ResponseWriter, r *httpx.Request) {
	resp := svc.Call(r)
	if err := resp.Write(w); err != nil {
		logger.Warn("response_write_failed", "path", r.Path, "error", err)
	}
}

// dispatch is the match, invoke, respond sequence shared by Builder and Table.
func dispatch(lookup func(string) (handler.Service, bool), notFound handler.Service, r *httpx.Request) *response.Response {
	svc, ok := lookup(r.Path)
	if !ok {
		logger.Debug("route_not_found", "method", r.Method, "path", r.Path)
		if notFound != nil {
			return notFound.Call(r)
		}
		return response.NotFound()
	}
	resp := svc.Call(r)
	if resp == nil {
		return response.ErrInternal.IntoResponse()
	}
	return resp
}
