package middleware

import (
	"net/http"
	"strings"

	"routekit/pkg/handler"
	"routekit/pkg/httpx"
	"routekit/pkg/response"
)

// CORS answers preflight requests and decorates responses for allowed
// origins. An empty list allows nothing; "*" allows everything.
func CORS(allowedOrigins []string) handler.Layer {
	allowed := append([]string(nil), allowedOrigins...)
	return func(next handler.Service) handler.Service {
		return handler.Func(func(r *httpx.Request) *response.Response {
			origin := r.Header.Get("Origin")
			ok := origin != "" && originAllowed(origin, allowed)

			var resp *response.Response
			if r.Method == http.MethodOptions {
				resp = response.Empty(http.StatusNoContent).IntoResponse()
			} else {
				resp = next.Call(r)
			}
			if !ok {
				return resp
			}
			resp = resp.WithHeader("Access-Control-Allow-Origin", origin)
			resp = resp.WithHeader("Vary", "Origin")
			resp = resp.WithHeader("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,PATCH,OPTIONS")
			resp = resp.WithHeader("Access-Control-Allow-Headers", "Authorization,Content-Type,X-API-Key,X-Request-Id")
			// cache preflight for 10 minutes
			resp = resp.WithHeader("Access-Control-Max-Age", "600")
			return resp.WithHeader("Access-Control-Expose-Headers", RequestIDHeader)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
