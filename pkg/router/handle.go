package router

import (
	"context"
	"fmt"

	"routekit/pkg/extract"
	"routekit/pkg/handler"
	"routekit/pkg/response"
)

// Handle0 registers a handler without extractors.
func Handle0[S any, R response.Responder](b *Builder[S], path string, fn func(context.Context) (R, error)) *Builder[S] {
	return b.Register(path, handler.Normalize0(fn, b.state))
}

// Handle1 registers a handler taking one full-request extractor.
func Handle1[S, T any, PT interface {
	*T
	extract.FromRequest
}, R response.Responder](b *Builder[S], path string, fn func(context.Context, T) (R, error)) *Builder[S] {
	mustMatchState(path, b.state, PT(new(T)))
	return b.Register(path, handler.Normalize1[S, T, PT](fn, b.state))
}

// Handle2 registers a handler taking a parts extractor followed by a
// full-request extractor.
func Handle2[S, T1, T2 any, P1 interface {
	*T1
	extract.FromParts
}, P2 interface {
	*T2
	extract.FromRequest
}, R response.Responder](b *Builder[S], path string, fn func(context.Context, T1, T2) (R, error)) *Builder[S] {
	mustMatchState(path, b.state, P1(new(T1)), P2(new(T2)))
	return b.Register(path, handler.Normalize2[S, T1, T2, P1, P2](fn, b.state))
}

// mustMatchState panics when a handler's extractors ask for a state type
// the builder does not carry. Such a route could never succeed.
func mustMatchState(path string, state any, extractors ...any) {
	for _, x := range extractors {
		if err := extract.CheckState(x, state); err != nil {
			panic(fmt.Sprintf("router: route %q: %v", path, err))
		}
	}
}
