// Package response converts handler results into buffered wire responses.
package response

import (
	"net/http"

	"routekit/pkg/httpx"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// Response is a fully materialized reply: status, headers and body.
// Treat it as immutable; WithHeader returns a modified copy.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Responder is implemented by anything a handler may return.
type Responder interface {
	IntoResponse() *Response
}

// New builds a response with the given content type.
func New(status int, contentType string, body []byte) *Response {
	h := make(http.Header, 1)
	h.Set("Content-Type", contentType)
	return &Response{Status: status, Header: h, Body: body}
}

// IntoResponse makes *Response a Responder.
func (r *Response) IntoResponse() *Response { return r }

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string { return r.Header.Get("Content-Type") }

// WithHeader returns a copy of r with key set to value.
func (r *Response) WithHeader(key, value string) *Response {
	cp := r.clone()
	cp.Header.Set(key, value)
	return cp
}

// WithStatusCode returns a copy of r carrying status.
func (r *Response) WithStatusCode(status int) *Response {
	cp := r.clone()
	cp.Status = status
	return cp
}

func (r *Response) clone() *Response {
	if r == nil {
		r = ErrInternal.IntoResponse()
	}
	cp := &Response{Status: r.Status, Body: r.Body}
	if r.Header != nil {
		cp.Header = r.Header.Clone()
	} else {
		cp.Header = make(http.Header)
	}
	return cp
}

// Write hands the response to the transport.
func (r *Response) Write(w httpx.ResponseWriter) error {
	h := w.Header()
	for k, v := range r.Header {
		h[k] = append([]string(nil), v...)
	}
	w.WriteHeader(r.Status)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

// Text is a plain-text payload. It is written as-is, never JSON encoded.
type Text string

func (t Text) IntoResponse() *Response {
	return New(http.StatusOK, ContentTypeText, []byte(t))
}

// Bytes is a raw payload with an explicit content type.
type Bytes struct {
	ContentType string
	Data        []byte
}

func (b Bytes) IntoResponse() *Response {
	ct := b.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return New(http.StatusOK, ct, b.Data)
}

// Empty is a bodyless response with the given status.
type Empty int

func (e Empty) IntoResponse() *Response {
	return New(int(e), ContentTypeText, nil)
}

type withStatus struct {
	code  int
	inner Responder
}

// WithStatus pairs a status code with a payload, overriding the status the
// payload would produce on its own.
func WithStatus(code int, r Responder) Responder {
	return withStatus{code: code, inner: r}
}

func (s withStatus) IntoResponse() *Response {
	var resp *Response
	if s.inner != nil {
		resp = s.inner.IntoResponse()
	}
	if resp == nil {
		return Empty(s.code).IntoResponse()
	}
	return resp.WithStatusCode(s.code)
}

var notFoundBody = []byte("Not found")

// NotFound is the fixed reply for unmatched paths.
func NotFound() *Response {
	return New(http.StatusNotFound, ContentTypeText, notFoundBody)
}

// From converts a handler result. A nil error converts the value; an error
// that is a Responder converts itself; anything else becomes a 500.
func From[R Responder](v R, err error) *Response {
	if err != nil {
		return FromError(err)
	}
	if any(v) == nil {
		return Empty(http.StatusNoContent).IntoResponse()
	}
	resp := v.IntoResponse()
	if resp == nil {
		return Empty(http.StatusNoContent).IntoResponse()
	}
	return resp
}
