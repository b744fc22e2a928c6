package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"

	"routekit/pkg/banner"
	"routekit/pkg/config"
	"routekit/pkg/logger"
	"routekit/pkg/router"
)

// Options carries the parts of the server that are not configuration.
type Options struct {
	Version string
	// Gatherer backs the metrics endpoint; nil means the default registry.
	Gatherer prometheus.Gatherer
	// ReadyChecks are consulted by /readyz, keyed by component name.
	ReadyChecks map[string]func() error
	// BannerOut receives the startup banner; nil disables it.
	BannerOut io.Writer
}

// App encapsulates the server components and lifecycle.
type App struct {
	eff   config.EffectiveConfigResult
	table *router.Table
	opts  Options

	mu      sync.Mutex
	srv     *http.Server
	fast    *fasthttp.Server
	ln      net.Listener
	started chan struct{}
}

// New validates the effective config and prepares an App serving table.
func New(eff config.EffectiveConfigResult, table *router.Table, opts Options) (*App, error) {
	if eff.Config == nil {
		return nil, errors.New("effective config is nil")
	}
	if err := config.Validate(eff.Config); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, errors.New("route table is nil")
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if eff.Addr == "" {
		eff.Addr = eff.Config.Addr()
	}
	return &App{eff: eff, table: table, opts: opts, started: make(chan struct{})}, nil
}

// Started is closed once the listener is bound.
func (a *App) Started() <-chan struct{} { return a.started }

// Addr is the bound listener address, nil before Started.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ln == nil {
		return nil
	}
	return a.ln.Addr()
}

// Run binds the listener, serves until ctx is cancelled or the server
// fails, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if a.opts.BannerOut != nil {
		banner.Print(a.opts.BannerOut, a.eff, a.table.Paths(), a.opts.Version)
	}

	errCh, err := a.startHTTP(ctx)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) listen(ctx context.Context) (net.Listener, error) {
	lc := net.ListenConfig{}
	if a.eff.Config.Server.ReuseAddr {
		lc.Control = reuseAddrControl
	}
	ln, err := lc.Listen(ctx, "tcp", a.eff.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", a.eff.Addr, err)
	}
	return ln, nil
}

// startHTTP binds the listener, starts the configured transport in a
// goroutine and returns a channel that will contain any server error.
func (a *App) startHTTP(ctx context.Context) (<-chan error, error) {
	ln, err := a.listen(ctx)
	if err != nil {
		return nil, err
	}
	sc := a.eff.Config.Server

	errCh := make(chan error, 1)
	a.mu.Lock()
	a.ln = ln
	switch sc.Transport {
	case config.TransportFastHTTP:
		a.fast = a.fastServer()
		srv := a.fast
		go func() { errCh <- srv.Serve(ln) }()
	default:
		a.srv = &http.Server{
			Handler:      a.Handler(),
			ReadTimeout:  sc.ReadTimeout.Duration(),
			WriteTimeout: sc.WriteTimeout.Duration(),
			IdleTimeout:  sc.IdleTimeout.Duration(),
		}
		srv := a.srv
		go func() { errCh <- srv.Serve(ln) }()
	}
	a.mu.Unlock()

	logger.Info("server_listening", "addr", ln.Addr().String(), "transport", sc.Transport, "routes", a.table.Len())
	close(a.started)
	return errCh, nil
}

// fastServer builds the fasthttp server. Read failures such as an
// oversized body are answered by fastError so both transports share one
// error policy.
func (a *App) fastServer() *fasthttp.Server {
	sc := a.eff.Config.Server
	return &fasthttp.Server{
		Handler:            a.FastHandler(),
		ErrorHandler:       fastError,
		Name:               "routekit",
		ReadTimeout:        sc.ReadTimeout.Duration(),
		WriteTimeout:       sc.WriteTimeout.Duration(),
		IdleTimeout:        sc.IdleTimeout.Duration(),
		MaxRequestBodySize: int(sc.MaxBodySize.Int64()),
	}
}

func (a *App) shutdown() error {
	timeout := a.eff.Config.Server.ShutdownTimeout.Duration()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.mu.Lock()
	srv, fast := a.srv, a.fast
	a.mu.Unlock()

	logger.Info("server_shutdown", "timeout", timeout.String())
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server_shutdown_failed", "error", err)
			return err
		}
	}
	if fast != nil {
		done := make(chan error, 1)
		go func() { done <- fast.Shutdown() }()
		select {
		case err := <-done:
			if err != nil {
				logger.Error("server_shutdown_failed", "error", err)
				return err
			}
		case <-ctx.Done():
			logger.Error("server_shutdown_failed", "error", ctx.Err())
			return ctx.Err()
		}
	}
	return nil
}
