package app

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"routekit/pkg/httpx"
	"routekit/pkg/logger"
	"routekit/pkg/response"
)

const (
	healthzPath = "/healthz"
	readyzPath  = "/readyz"
)

// Handler is the net/http handler: operational endpoints first, every
// other path goes to the route table.
func (a *App) Handler() http.Handler {
	r := mux.NewRouter()
	// route keys are exact strings, so paths must reach the table uncleaned
	r.SkipClean(true)
	r.HandleFunc(healthzPath, func(w http.ResponseWriter, _ *http.Request) {
		status, body := a.health()
		writeStatus(w, status, body)
	})
	r.HandleFunc(readyzPath, func(w http.ResponseWriter, _ *http.Request) {
		status, body := a.readiness()
		writeStatus(w, status, body)
	})
	if t := a.eff.Config.Telemetry; t.Metrics {
		r.Handle(t.MetricsPath, a.metricsHandler())
	}

	var dispatch http.Handler = httpx.NetHTTPAdapter(a.table.ServeHTTPX)
	if n := a.eff.Config.Server.MaxBodySize.Int64(); n > 0 {
		dispatch = http.MaxBytesHandler(dispatch, n)
	}
	r.PathPrefix("/").Handler(dispatch)
	return r
}

// FastHandler is the fasthttp equivalent of Handler.
func (a *App) FastHandler() fasthttp.RequestHandler {
	dispatch := httpx.FastHTTPAdapter(a.table.ServeHTTPX)
	t := a.eff.Config.Telemetry
	var metrics fasthttp.RequestHandler
	if t.Metrics {
		metrics = fasthttpadaptor.NewFastHTTPHandler(a.metricsHandler())
	}
	return func(ctx *fasthttp.RequestCtx) {
		switch p := string(ctx.Path()); {
		case p == healthzPath:
			status, body := a.health()
			writeFastStatus(ctx, status, body)
		case p == readyzPath:
			status, body := a.readiness()
			writeFastStatus(ctx, status, body)
		case metrics != nil && p == t.MetricsPath:
			metrics(ctx)
		default:
			dispatch(ctx)
		}
	}
}

func (a *App) metricsHandler() http.Handler {
	return promhttp.HandlerFor(a.opts.Gatherer, promhttp.HandlerOpts{})
}

type statusBody struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Failing map[string]string `json:"failing,omitempty"`
}

func (a *App) health() (int, statusBody) {
	return http.StatusOK, statusBody{Status: "ok"}
}

func (a *App) readiness() (int, statusBody) {
	ver := a.opts.Version
	if ver == "" {
		ver = "dev"
	}
	names := make([]string, 0, len(a.opts.ReadyChecks))
	for n := range a.opts.ReadyChecks {
		names = append(names, n)
	}
	sort.Strings(names)

	failing := map[string]string{}
	for _, n := range names {
		if err := a.opts.ReadyChecks[n](); err != nil {
			failing[n] = err.Error()
		}
	}
	if len(failing) > 0 {
		return http.StatusServiceUnavailable, statusBody{Status: "not ready", Version: ver, Failing: failing}
	}
	return http.StatusOK, statusBody{Status: "ok", Version: ver}
}

func writeStatus(w http.ResponseWriter, status int, body statusBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeFastStatus(ctx *fasthttp.RequestCtx, status int, body statusBody) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	_ = json.NewEncoder(ctx).Encode(body)
}

// fastError renders requests fasthttp could not read, before any route
// sees them.
func fastError(ctx *fasthttp.RequestCtx, err error) {
	var (
		resp   *response.Response
		small  *fasthttp.ErrSmallBuffer
		netErr *net.OpError
	)
	switch {
	case errors.Is(err, fasthttp.ErrBodyTooLarge):
		resp = response.ErrPayloadTooLarge.IntoResponse()
	case errors.As(err, &small):
		resp = response.NewError(http.StatusRequestHeaderFieldsTooLarge, response.ErrCodeInvalidRequest, "request header too large").IntoResponse()
	case errors.As(err, &netErr) && netErr.Timeout():
		resp = response.NewError(http.StatusRequestTimeout, response.ErrCodeInvalidRequest, "request timeout").IntoResponse()
	default:
		resp = response.NewError(http.StatusBadRequest, response.ErrCodeInvalidRequest, "malformed request").IntoResponse()
	}
	logger.Warn("request_read_failed", "remote", ctx.RemoteAddr().String(), "status", resp.Status, "error", err)
	writeFastResponse(ctx, resp)
}

func writeFastResponse(ctx *fasthttp.RequestCtx, resp *response.Response) {
	for k, vs := range resp.Header {
		for i, v := range vs {
			if i == 0 {
				ctx.Response.Header.Set(k, v)
			} else {
				ctx.Response.Header.Add(k, v)
			}
		}
	}
	ctx.SetStatusCode(resp.Status)
	ctx.SetBody(resp.Body)
}
