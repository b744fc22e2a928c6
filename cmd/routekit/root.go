package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"routekit/internal/app"
	"routekit/pkg/config"
	"routekit/pkg/logger"
	"routekit/pkg/router"
	"routekit/pkg/shutdown"
	"routekit/pkg/store"
	"routekit/pkg/telemetry"
)

func newRootCmd() *cobra.Command {
	var flags config.Flags

	root := &cobra.Command{
		Use:           "routekit",
		Short:         "Typed request routing demo server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, flags)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.Config, "config", "./config.yaml", "Path to config file")
	pf.StringVar(&flags.Addr, "addr", "0.0.0.0:8080", "HTTP listen address (host:port)")
	pf.StringVar(&flags.Transport, "transport", config.TransportNetHTTP, "HTTP transport: nethttp or fasthttp")
	pf.StringVar(&flags.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.StorePath, "store", "./.routekit", "Pebble database path for the notes routes")

	collect := func(cmd *cobra.Command) {
		flags.Set = map[string]bool{}
		for _, name := range []string{"config", "addr", "transport", "log-level", "store"} {
			flags.Set[name] = cmd.Flags().Changed(name)
		}
	}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) { collect(cmd) }

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, flags)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "routes",
		Short: "Print the route table and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.OpenInMemory()
			if err != nil {
				return err
			}
			defer st.Close()
			for _, p := range buildRoutes(appState{Greeting: defaultGreeting, Notes: st}).Paths() {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "routekit %s (%s) built %s\n", version, commit, buildDate)
		},
	})
	return root
}

func openStore(cfg *config.Config) (*store.Store, error) {
	if cfg.Store.InMemory {
		return store.OpenInMemory()
	}
	return store.Open(cfg.Store.Path)
}

func serve(cmd *cobra.Command, flags config.Flags) error {
	_ = godotenv.Load(".env")

	eff, err := config.LoadEffectiveConfig(flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	lc := eff.Config.Logging
	logger.Init(logger.Options{
		Level:      lc.Level,
		Format:     lc.Format,
		Sink:       lc.Sink,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAgeDays: lc.MaxAgeDays,
		Compress:   lc.Compress,
	})
	defer logger.Sync()

	st, err := openStore(eff.Config)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	var metrics *telemetry.Metrics
	if eff.Config.Telemetry.Metrics {
		metrics, err = telemetry.New(reg, telemetry.Options{SlowThreshold: eff.Config.Telemetry.SlowThreshold.Duration()})
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}

	b := buildRoutes(appState{Greeting: defaultGreeting, Notes: st})
	b.Layer(app.Stack(eff.Config, metrics))
	table := b.Compile()

	a, err := app.New(eff, table, app.Options{
		Version:  version,
		Gatherer: reg,
		ReadyChecks: map[string]func() error{
			"store": func() error {
				if !st.Ready() {
					return store.ErrClosed
				}
				return nil
			},
		},
		BannerOut: os.Stdout,
	})
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := shutdown.SetupSignalHandler(parent)
	defer cancel()
	return a.Run(ctx)
}

// buildRoutes registers the demo routes on a fresh builder.
func buildRoutes(st appState) *router.Builder[appState] {
	b := router.WithState(st)
	router.Handle1(b, "/", hello)
	router.Handle1(b, "/echo", echo)
	router.Handle0(b, "/version", versionText)
	router.Handle2(b, "/notes", createNote)
	router.Handle2(b, "/notes/list", listNotes)
	router.Handle2(b, "/notes/get", getNote)
	return b
}
