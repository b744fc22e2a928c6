package app

import (
	"routekit/pkg/config"
	"routekit/pkg/handler"
	"routekit/pkg/middleware"
	"routekit/pkg/telemetry"
)

// Stack is the layer chain wrapped around every route, outermost first:
// panic recovery, request ids, access logging, metrics, CORS, rate limit.
// m may be nil when metrics are disabled.
func Stack(cfg *config.Config, m *telemetry.Metrics) handler.Layer {
	layers := []handler.Layer{
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(),
	}
	if m != nil {
		layers = append(layers, m.Layer())
	}
	if origins := cfg.Security.CORS.AllowedOrigins; len(origins) > 0 {
		layers = append(layers, middleware.CORS(origins))
	}
	if rl := cfg.Security.RateLimit; rl.Enabled {
		layers = append(layers, middleware.RateLimit(middleware.RateConfig{RPS: rl.RPS, Burst: rl.Burst, MaxClients: rl.MaxClients}))
	}
	return handler.Chain(layers...)
}
