package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"routekit/pkg/config"
	"routekit/pkg/extract"
	"routekit/pkg/response"
	"routekit/pkg/router"
	"routekit/pkg/telemetry"
)

type testState struct{ Greeting string }

func hello(ctx context.Context, st extract.State[testState]) (extract.JSON[map[string]string], error) {
	return extract.JSON[map[string]string]{Value: map[string]string{"message": st.Value.Greeting}}, nil
}

func echo(ctx context.Context, in extract.JSON[any]) (extract.JSON[any], error) {
	return in, nil
}

func newTestApp(t *testing.T, mutate func(*config.Config)) (*App, *prometheus.Registry) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Store.InMemory = true
	if mutate != nil {
		mutate(cfg)
	}
	reg := prometheus.NewRegistry()
	m, err := telemetry.New(reg, telemetry.Options{})
	require.NoError(t, err)

	b := router.WithState(testState{Greeting: "Hello world!"})
	router.Handle1(b, "/", hello)
	router.Handle1(b, "/echo", echo)
	router.Handle0(b, "/panic", func(ctx context.Context) (response.Text, error) { panic("nope") })
	b.Layer(Stack(cfg, m))

	eff := config.EffectiveConfigResult{Config: cfg, Addr: "127.0.0.1:0", Source: "defaults"}
	a, err := New(eff, b.Compile(), Options{
		Version:  "test",
		Gatherer: reg,
		ReadyChecks: map[string]func() error{
			"store": func() error { return nil },
		},
	})
	require.NoError(t, err)
	return a, reg
}

func doNet(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestNetHTTPScenarios(t *testing.T) {
	a, _ := newTestApp(t, nil)
	h := a.Handler()

	rec := doNet(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"message":"Hello world!"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = doNet(t, h, http.MethodPost, "/echo", `{"a":1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"a":1}`, rec.Body.String())

	rec = doNet(t, h, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Not found", rec.Body.String())

	rec = doNet(t, h, http.MethodPost, "/echo", `{"a":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doNet(t, h, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNetHTTPPathsAreNotCleaned(t *testing.T) {
	a, _ := newTestApp(t, nil)
	rec := doNet(t, a.Handler(), http.MethodPost, "/echo/", `{"a":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNetHTTPBodyLimit(t *testing.T) {
	a, _ := newTestApp(t, func(c *config.Config) { c.Server.MaxBodySize = 8 })
	rec := doNet(t, a.Handler(), http.MethodPost, "/echo", `{"a":"this is far too long"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFastHTTPBodyLimit(t *testing.T) {
	a, _ := newTestApp(t, func(c *config.Config) {
		c.Server.Transport = config.TransportFastHTTP
		c.Server.MaxBodySize = 8
	})
	srv := a.fastServer()
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	client := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	req, resp := fasthttp.AcquireRequest(), fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI("http://routekit.test/echo")
	req.Header.SetMethod(http.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBodyString(`{"a":"this is far too long"}`)
	require.NoError(t, client.Do(req, resp))

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode())
	assert.Equal(t, "application/json", string(resp.Header.ContentType()))
	assert.JSONEq(t, `{"error":"payload too large","code":"PAYLOAD_TOO_LARGE"}`, string(resp.Body()))
}

func TestFastErrorMalformedRequest(t *testing.T) {
	var ctx fasthttp.RequestCtx
	fastError(&ctx, errors.New("cannot parse request line"))
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
	assert.Contains(t, string(ctx.Response.Body()), `"code":"INVALID_REQUEST"`)
}

func TestOperationalEndpoints(t *testing.T) {
	a, _ := newTestApp(t, nil)
	h := a.Handler()
	doNet(t, h, http.MethodGet, "/", "")

	rec := doNet(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = doNet(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, rec.Body.String())

	rec = doNet(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `routekit_http_requests_total{method="GET",path="/",status="200"} 1`)
}

func TestMetricsAfterPanic(t *testing.T) {
	a, _ := newTestApp(t, nil)
	h := a.Handler()
	rec := doNet(t, h, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	body := doNet(t, h, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, body, `routekit_http_requests_total{method="GET",path="/panic",status="500"} 1`)
	assert.Contains(t, body, "routekit_http_requests_in_flight 0\n")
}

func TestReadyzReportsFailures(t *testing.T) {
	a, _ := newTestApp(t, nil)
	a.opts.ReadyChecks["store"] = func() error { return errors.New("closed") }
	rec := doNet(t, a.Handler(), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"not ready","version":"test","failing":{"store":"closed"}}`, rec.Body.String())
}

func TestMetricsDisabled(t *testing.T) {
	a, _ := newTestApp(t, func(c *config.Config) { c.Telemetry.Metrics = false })
	rec := doNet(t, a.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", rec.Body.String())
}

func TestFastHTTPScenarios(t *testing.T) {
	a, _ := newTestApp(t, func(c *config.Config) { c.Server.Transport = config.TransportFastHTTP })
	h := a.FastHandler()

	call := func(method, path, body string) *fasthttp.RequestCtx {
		var ctx fasthttp.RequestCtx
		ctx.Request.Header.SetMethod(method)
		ctx.Request.SetRequestURI(path)
		ctx.Request.SetBodyString(body)
		h(&ctx)
		return &ctx
	}

	ctx := call(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
	assert.Equal(t, `{"message":"Hello world!"}`, string(ctx.Response.Body()))

	ctx = call(http.MethodPost, "/echo", `{"a":1}`)
	assert.Equal(t, `{"a":1}`, string(ctx.Response.Body()))

	ctx = call(http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())
	assert.Equal(t, "Not found", string(ctx.Response.Body()))
	assert.Equal(t, "text/plain", string(ctx.Response.Header.ContentType()))

	ctx = call(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	ctx = call(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "routekit_http_requests_total")
}

func TestRunServesUntilCancelled(t *testing.T) {
	for _, transport := range []string{config.TransportNetHTTP, config.TransportFastHTTP} {
		t.Run(transport, func(t *testing.T) {
			a, _ := newTestApp(t, func(c *config.Config) { c.Server.Transport = transport })
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- a.Run(ctx) }()

			select {
			case <-a.Started():
			case err := <-done:
				t.Fatalf("server exited early: %v", err)
			case <-time.After(5 * time.Second):
				t.Fatalf("server did not start")
			}

			client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
			res, err := client.Post(fmt.Sprintf("http://%s/echo", a.Addr()), "application/json", strings.NewReader(`{"a":1}`))
			require.NoError(t, err)
			body, _ := io.ReadAll(res.Body)
			res.Body.Close()
			assert.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, `{"a":1}`, string(body))

			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(10 * time.Second):
				t.Fatalf("server did not stop")
			}
		})
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(config.EffectiveConfigResult{}, router.New().Compile(), Options{})
	assert.Error(t, err)

	cfg := config.Default()
	cfg.Server.Transport = "carrier-pigeon"
	_, err = New(config.EffectiveConfigResult{Config: cfg}, router.New().Compile(), Options{})
	assert.Error(t, err)

	_, err = New(config.EffectiveConfigResult{Config: config.Default()}, nil, Options{})
	assert.Error(t, err)
}
