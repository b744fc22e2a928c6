package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
)

// ErrBodyConsumed is returned when the request body has already been handed out.
var ErrBodyConsumed = errors.New("request body already consumed")

// Parts is the non-body portion of a request. It is safe to clone and
// inspect any number of times.
type Parts struct {
	Ctx        context.Context
	Method     string
	Path       string
	RawQuery   string
	Header     http.Header
	RemoteAddr string
	// State carries the bound router state for the endpoint being invoked.
	// It is set by the endpoint right before extraction runs.
	State any
}

// Clone returns a copy of p whose header map does not alias the original.
func (p *Parts) Clone() *Parts {
	if p == nil {
		return &Parts{Ctx: context.Background(), Header: make(http.Header)}
	}
	cp := *p
	if p.Header != nil {
		cp.Header = p.Header.Clone()
	} else {
		cp.Header = make(http.Header)
	}
	return &cp
}

// Query parses RawQuery. Malformed pairs are dropped.
func (p *Parts) Query() url.Values {
	v, _ := url.ParseQuery(p.RawQuery)
	return v
}

// Context returns the request context, never nil.
func (p *Parts) Context() context.Context {
	if p.Ctx == nil {
		return context.Background()
	}
	return p.Ctx
}

// Request is the unified request representation used by handlers.
// The body can be taken exactly once.
type Request struct {
	*Parts
	body     io.ReadCloser
	consumed atomic.Bool
	// Raw holds the underlying transport-specific request object
	// (e.g. *http.Request or *fasthttp.RequestCtx) for escape hatches.
	Raw interface{}
}

// NewRequest builds a request from parts and a body. A nil body is
// replaced with an empty one.
func NewRequest(p *Parts, body io.ReadCloser) *Request {
	if p == nil {
		p = (*Parts)(nil).Clone()
	}
	if p.Header == nil {
		p.Header = make(http.Header)
	}
	if body == nil {
		body = http.NoBody
	}
	return &Request{Parts: p, body: body}
}

// FromParts rejoins parts with a body previously split by IntoParts.
func FromParts(p *Parts, body io.ReadCloser) *Request {
	return NewRequest(p, body)
}

// IntoParts splits the request into its parts and its body. The request
// gives up its body; a later TakeBody on r returns ErrBodyConsumed.
func (r *Request) IntoParts() (*Parts, io.ReadCloser, error) {
	body, err := r.TakeBody()
	if err != nil {
		return nil, nil, err
	}
	return r.Parts, body, nil
}

// TakeBody hands out the body. Only the first call succeeds.
func (r *Request) TakeBody() (io.ReadCloser, error) {
	if !r.consumed.CompareAndSwap(false, true) {
		return nil, ErrBodyConsumed
	}
	b := r.body
	r.body = nil
	return b, nil
}

// BodyConsumed reports whether the body has been taken.
func (r *Request) BodyConsumed() bool { return r.consumed.Load() }

// Close releases the body if nobody took it.
func (r *Request) Close() error {
	if b, err := r.TakeBody(); err == nil && b != nil {
		return b.Close()
	}
	return nil
}

// ResponseWriter is a small subset of http.ResponseWriter semantics
// that we require from adapters.
type ResponseWriter interface {
	Header() http.Header
	Write([]byte) (int, error)
	WriteHeader(status int)
}

// HandlerFunc is the application handler signature used across adapters.
type HandlerFunc func(w ResponseWriter, r *Request)
