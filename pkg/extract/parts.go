package extract

import (
	"net/http"
	"net/url"

	"routekit/pkg/httpx"
)

// Method is the request method.
type Method string

func (m *Method) FromParts(p *httpx.Parts) error {
	*m = Method(p.Method)
	return nil
}

func (m *Method) FromRequest(r *httpx.Request) error { return m.FromParts(r.Parts) }

// Path is the request path.
type Path string

func (s *Path) FromParts(p *httpx.Parts) error {
	*s = Path(p.Path)
	return nil
}

func (s *Path) FromRequest(r *httpx.Request) error { return s.FromParts(r.Parts) }

// Header is a private copy of the request headers.
type Header http.Header

func (h *Header) FromParts(p *httpx.Parts) error {
	*h = Header(p.Header.Clone())
	if *h == nil {
		*h = Header{}
	}
	return nil
}

func (h *Header) FromRequest(r *httpx.Request) error { return h.FromParts(r.Parts) }

// Get returns the first value for key.
func (h Header) Get(key string) string { return http.Header(h).Get(key) }

// Query holds the parsed query string.
type Query url.Values

func (q *Query) FromParts(p *httpx.Parts) error {
	v, err := url.ParseQuery(p.RawQuery)
	if err != nil {
		return err
	}
	*q = Query(v)
	return nil
}

func (q *Query) FromRequest(r *httpx.Request) error { return q.FromParts(r.Parts) }

// Get returns the first value for key.
func (q Query) Get(key string) string { return url.Values(q).Get(key) }

// RemoteAddr is the peer address reported by the transport.
type RemoteAddr string

func (a *RemoteAddr) FromParts(p *httpx.Parts) error {
	*a = RemoteAddr(p.RemoteAddr)
	return nil
}

func (a *RemoteAddr) FromRequest(r *httpx.Request) error { return a.FromParts(r.Parts) }
