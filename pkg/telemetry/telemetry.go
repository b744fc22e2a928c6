// Package telemetry records per-route request metrics.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"routekit/pkg/handler"
	"routekit/pkg/httpx"
	"routekit/pkg/logger"
	"routekit/pkg/response"
)

// DefaultSlowThreshold is used when Options.SlowThreshold is zero.
const DefaultSlowThreshold = 200 * time.Millisecond

// Metrics holds the request collectors. Paths are only ever routed paths,
// so label cardinality is bounded by the route table.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	slow     time.Duration
}

// Options tunes New.
type Options struct {
	Namespace     string
	SlowThreshold time.Duration
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer, opts Options) (*Metrics, error) {
	ns := opts.Namespace
	if ns == "" {
		ns = "routekit"
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "Requests handled, by route, method and status.",
		}, []string{"path", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "Handler latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being handled.",
		}),
		slow: opts.SlowThreshold,
	}
	if m.slow <= 0 {
		m.slow = DefaultSlowThreshold
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Layer records every call of the wrapped service.
func (m *Metrics) Layer() handler.Layer {
	return func(next handler.Service) handler.Service {
		return handler.Func(func(r *httpx.Request) *response.Response {
			m.inFlight.Inc()
			start := time.Now()
			// a panic unwinding through here is recorded as a 500
			status := http.StatusInternalServerError
			defer func() {
				dur := time.Since(start)
				m.inFlight.Dec()
				m.requests.WithLabelValues(r.Path, r.Method, strconv.Itoa(status)).Inc()
				m.duration.WithLabelValues(r.Path).Observe(dur.Seconds())
				if dur > m.slow {
					logger.Warn("slow_request", "path", r.Path, "method", r.Method, "duration_ms", dur.Milliseconds())
				}
			}()

			resp := next.Call(r)
			if resp == nil {
				resp = response.ErrInternal.IntoResponse()
			}
			status = resp.Status
			return resp
		})
	}
}
