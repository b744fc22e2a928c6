package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"routekit/pkg/handler"
	"routekit/pkg/httpx"
	"routekit/pkg/logger"
	"routekit/pkg/response"
)

// RateConfig sets the per-client token bucket. Zero values fall back to
// 5 requests per second with a burst of 10, tracking at most 10000 clients.
type RateConfig struct {
	RPS        float64
	Burst      int
	MaxClients int
}

// limiterIdle is how long a client may go unseen before its bucket can be
// dropped. An idle bucket has refilled anyway.
const limiterIdle = 10 * time.Minute

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

type limiterPool struct {
	mu  sync.Mutex
	m   map[string]*limiterEntry
	cfg RateConfig
	now func() time.Time
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	if p.now != nil {
		now = p.now()
	}
	if p.m == nil {
		p.m = make(map[string]*limiterEntry)
	}
	if e, ok := p.m[key]; ok {
		e.seen = now
		return e.lim
	}
	if len(p.m) >= p.maxClients() {
		p.evict(now)
	}
	rps := p.cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	burst := p.cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	p.m[key] = &limiterEntry{lim: l, seen: now}
	return l
}

func (p *limiterPool) maxClients() int {
	if p.cfg.MaxClients <= 0 {
		return 10000
	}
	return p.cfg.MaxClients
}

// evict drops idle clients. If the pool is still full the least recently
// seen client goes too. Callers hold p.mu.
func (p *limiterPool) evict(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range p.m {
		if now.Sub(e.seen) > limiterIdle {
			delete(p.m, k)
			continue
		}
		if !found || e.seen.Before(oldest) {
			oldestKey, oldest, found = k, e.seen, true
		}
	}
	if found && len(p.m) >= p.maxClients() {
		delete(p.m, oldestKey)
	}
	logger.Debug("rate_limiter_evicted", "clients", len(p.m))
}

func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

// RateLimit rejects clients that exceed cfg with a 429. Clients are keyed
// by X-API-Key when present, otherwise by remote IP. All routes wrapped by
// one RateLimit layer share its buckets.
func RateLimit(cfg RateConfig) handler.Layer {
	pool := &limiterPool{cfg: cfg}
	return func(next handler.Service) handler.Service {
		return handler.Func(func(r *httpx.Request) *response.Response {
			key := r.Header.Get("X-API-Key")
			hasKey := key != ""
			if !hasKey {
				key = clientIP(r)
			}
			if !pool.Allow(key) {
				logger.Warn("rate_limited", "has_api_key", hasKey, "path", r.Path)
				return response.ErrRateLimited.IntoResponse()
			}
			return next.Call(r)
		})
	}
}
