// Package middleware provides layers that wrap routed services.
package middleware

import (
	"net"
	"runtime/debug"
	"time"

	uuid "github.com/satori/go.uuid"

	"routekit/pkg/handler"
	"routekit/pkg/httpx"
	"routekit/pkg/logger"
	"routekit/pkg/response"
)

// RequestIDHeader carries the per-request identifier.
const RequestIDHeader = "X-Request-Id"

// Logging logs one line per request with its status and latency.
func Logging() handler.Layer {
	return func(next handler.Service) handler.Service {
		return handler.Func(func(r *httpx.Request) *response.Response {
			start := time.Now()
			logger.Debug("request_headers", "path", r.Path, "headers", logger.SafeHeaders(r.Header))
			resp := next.Call(r)
			if resp == nil {
				resp = response.ErrInternal.IntoResponse()
			}
			logger.Info("http_request",
				"method", r.Method,
				"path", r.Path,
				"status", resp.Status,
				"bytes", len(resp.Body),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote", r.RemoteAddr,
				"request_id", r.Header.Get(RequestIDHeader),
			)
			return resp
		})
	}
}

// SetHeader adds a fixed header to every response.
func SetHeader(key, value string) handler.Layer {
	return func(next handler.Service) handler.Service {
		return handler.Func(func(r *httpx.Request) *response.Response {
			return next.Call(r).WithHeader(key, value)
		})
	}
}

// RequestID tags the request and its response with an id. An id sent by
// the client is kept.
func RequestID() handler.Layer {
	return func(next handler.Service) handler.Service {
		return handler.Func(func(r *httpx.Request) *response.Response {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewV4().String()
				r.Header.Set(RequestIDHeader, id)
			}
			return next.Call(r).WithHeader(RequestIDHeader, id)
		})
	}
}

// Recover turns a panicking handler into a 500.
func Recover() handler.Layer {
	return func(next handler.Service) handler.Service {
		return handler.Func(func(r *httpx.Request) (resp *response.Response) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler_panic", "path", r.Path, "panic", rec, "stack", string(debug.Stack()))
					resp = response.ErrInternal.IntoResponse()
				}
			}()
			return next.Call(r)
		})
	}
}

func clientIP(r *httpx.Request) string {
	// direct connections only; X-Forwarded-For is ignored
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
