package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routekit/pkg/handler"
	"routekit/pkg/httpx"
	"routekit/pkg/response"
	"routekit/pkg/router"
)

func newReq(method, path string, hdr http.Header) *httpx.Request {
	if hdr == nil {
		hdr = http.Header{}
	}
	return httpx.NewRequest(&httpx.Parts{
		Ctx:        context.Background(),
		Method:     method,
		Path:       path,
		Header:     hdr,
		RemoteAddr: "192.0.2.1:40000",
	}, nil)
}

var ok = handler.Func(func(r *httpx.Request) *response.Response {
	return response.Text("ok").IntoResponse()
})

func TestSetHeaderOnAllRoutes(t *testing.T) {
	b := router.New()
	router.Handle0(b, "/a", func(ctx context.Context) (response.Text, error) { return "a", nil })
	router.Handle0(b, "/b", func(ctx context.Context) (response.Text, error) { return "b", nil })
	b.Layer(SetHeader("X-Served-By", "routekit"))

	tbl := b.Compile()
	for _, p := range []string{"/a", "/b"} {
		resp := tbl.Call(newReq(http.MethodGet, p, nil))
		assert.Equal(t, "routekit", resp.Header.Get("X-Served-By"), p)
		assert.Equal(t, p[1:], string(resp.Body))
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	svc := RequestID()(handler.Func(func(r *httpx.Request) *response.Response {
		seen = r.Header.Get(RequestIDHeader)
		return response.Text("ok").IntoResponse()
	}))

	resp := svc.Call(newReq(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, resp.Header.Get(RequestIDHeader))

	resp = svc.Call(newReq(http.MethodGet, "/", http.Header{RequestIDHeader: {"client-id"}}))
	assert.Equal(t, "client-id", seen)
	assert.Equal(t, "client-id", resp.Header.Get(RequestIDHeader))
}

func TestRecover(t *testing.T) {
	svc := Recover()(handler.Func(func(r *httpx.Request) *response.Response {
		panic("kaboom")
	}))
	resp := svc.Call(newReq(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.JSONEq(t, `{"error":"internal error","code":"INTERNAL_ERROR"}`, string(resp.Body))
}

func TestCORS(t *testing.T) {
	svc := CORS([]string{"https://app.example.com"})(ok)

	resp := svc.Call(newReq(http.MethodOptions, "/", http.Header{"Origin": {"https://app.example.com"}}))
	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = svc.Call(newReq(http.MethodGet, "/", http.Header{"Origin": {"https://evil.example.com"}}))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	resp = svc.Call(newReq(http.MethodGet, "/", http.Header{"Origin": {"https://APP.example.com"}}))
	assert.Equal(t, "https://APP.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcard(t *testing.T) {
	svc := CORS([]string{"*"})(ok)
	resp := svc.Call(newReq(http.MethodGet, "/", http.Header{"Origin": {"http://any"}}))
	assert.Equal(t, "http://any", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	layer := RateLimit(RateConfig{RPS: 0.001, Burst: 2})
	a := layer(ok)
	b := layer(ok)

	assert.Equal(t, http.StatusOK, a.Call(newReq(http.MethodGet, "/a", nil)).Status)
	assert.Equal(t, http.StatusOK, b.Call(newReq(http.MethodGet, "/b", nil)).Status)
	resp := a.Call(newReq(http.MethodGet, "/a", nil))
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.JSONEq(t, `{"error":"rate limit exceeded","code":"RATE_LIMITED"}`, string(resp.Body))

	// a different api key gets its own bucket
	resp = a.Call(newReq(http.MethodGet, "/a", http.Header{"X-Api-Key": {"k1"}}))
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestLimiterPoolIsBounded(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	pool := &limiterPool{cfg: RateConfig{RPS: 0.001, Burst: 1, MaxClients: 2}, now: func() time.Time { return clock }}

	assert.True(t, pool.Allow("a"))
	clock = clock.Add(time.Second)
	assert.True(t, pool.Allow("b"))
	clock = clock.Add(time.Second)
	assert.False(t, pool.Allow("a"), "a has spent its burst")

	// a was touched more recently than b, so b makes room for c
	assert.True(t, pool.Allow("c"))
	assert.Len(t, pool.m, 2)
	assert.Contains(t, pool.m, "a")
	assert.NotContains(t, pool.m, "b")

	clock = clock.Add(limiterIdle + time.Minute)
	assert.True(t, pool.Allow("d"))
	assert.Len(t, pool.m, 1, "idle clients are dropped together")
}

func TestLoggingPassesThrough(t *testing.T) {
	svc := Logging()(handler.Func(func(r *httpx.Request) *response.Response {
		return response.WithStatus(http.StatusAccepted, response.Text("queued")).IntoResponse()
	}))
	resp := svc.Call(newReq(http.MethodPost, "/jobs", nil))
	assert.Equal(t, http.StatusAccepted, resp.Status)
	assert.Equal(t, "queued", string(resp.Body))
}

type nilService struct{}

func (nilService) Call(*httpx.Request) *response.Response { return nil }

func TestLayersTolerateNilResponse(t *testing.T) {
	for name, layer := range map[string]handler.Layer{
		"logging":    Logging(),
		"set_header": SetHeader("X-Served-By", "routekit"),
		"request_id": RequestID(),
	} {
		var resp *response.Response
		require.NotPanics(t, func() { resp = layer(nilService{}).Call(newReq(http.MethodGet, "/", nil)) }, name)
		assert.Equal(t, http.StatusInternalServerError, resp.Status, name)
	}
}

func TestClientIP(t *testing.T) {
	r := newReq(http.MethodGet, "/", nil)
	assert.Equal(t, "192.0.2.1", clientIP(r))
	r.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", clientIP(r))
}
