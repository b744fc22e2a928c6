// Package handler normalizes typed handler functions into one Service shape.
package handler

import (
	"context"

	"routekit/pkg/extract"
	"routekit/pkg/httpx"
	"routekit/pkg/response"
)

// Service is the uniform request-in, response-out shape every route is
// stored as. Implementations must be safe for concurrent calls.
type Service interface {
	Call(r *httpx.Request) *response.Response
}

// Func adapts a plain function to Service. A nil result becomes a 500.
type Func func(r *httpx.Request) *response.Response

func (f Func) Call(r *httpx.Request) *response.Response {
	if resp := f(r); resp != nil {
		return resp
	}
	return response.ErrInternal.IntoResponse()
}

// Layer wraps a Service and must keep its call shape.
type Layer func(Service) Service

// Chain composes layers so that the first one listed is the outermost.
func Chain(layers ...Layer) Layer {
	return func(next Service) Service {
		for i := len(layers) - 1; i >= 0; i-- {
			next = layers[i](next)
		}
		return next
	}
}

type endpoint0[S any, R response.Responder] struct {
	fn    func(context.Context) (R, error)
	state S
}

func (e *endpoint0[S, R]) Call(r *httpx.Request) *response.Response {
	r.State = e.state
	return response.From[R](e.fn(r.Context()))
}

type endpoint1[S, T any, PT interface {
	*T
	extract.FromRequest
}, R response.Responder] struct {
	fn    func(context.Context, T) (R, error)
	state S
}

func (e *endpoint1[S, T, PT, R]) Call(r *httpx.Request) *response.Response {
	r.State = e.state
	v, err := extract.Run1[T, PT](r)
	if err != nil {
		return response.FromError(err)
	}
	return response.From[R](e.fn(r.Context(), v))
}

type endpoint2[S, T1, T2 any, P1 interface {
	*T1
	extract.FromParts
}, P2 interface {
	*T2
	extract.FromRequest
}, R response.Responder] struct {
	fn    func(context.Context, T1, T2) (R, error)
	state S
}

func (e *endpoint2[S, T1, T2, P1, P2, R]) Call(r *httpx.Request) *response.Response {
	r.State = e.state
	a, b, err := extract.Run2[T1, T2, P1, P2](r)
	if err != nil {
		return response.FromError(err)
	}
	return response.From[R](e.fn(r.Context(), a, b))
}

// Normalize0 wraps a handler that takes no extractors.
func Normalize0[S any, R response.Responder](fn func(context.Context) (R, error), state S) Service {
	return &endpoint0[S, R]{fn: fn, state: state}
}

// Normalize1 wraps a handler whose single argument is extracted from the
// full request.
func Normalize1[S, T any, PT interface {
	*T
	extract.FromRequest
}, R response.Responder](fn func(context.Context, T) (R, error), state S) Service {
	return &endpoint1[S, T, PT, R]{fn: fn, state: state}
}

// Normalize2 wraps a handler whose first argument comes from the request
// parts and whose second argument may consume the body.
func Normalize2[S, T1, T2 any, P1 interface {
	*T1
	extract.FromParts
}, P2 interface {
	*T2
	extract.FromRequest
}, R response.Responder](fn func(context.Context, T1, T2) (R, error), state S) Service {
	return &endpoint2[S, T1, T2, P1, P2, R]{fn: fn, state: state}
}
