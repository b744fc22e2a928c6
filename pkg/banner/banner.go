package banner

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"routekit/pkg/config"
)

const banner = `
 ┬─┐┌─┐┬ ┬┌┬┐┌─┐┬┌─┬┌┬┐
 ├┬┘│ ││ │ │ ├┤ ├┴┐│ │
 ┴└─└─┘└─┘ ┴ └─┘┴ ┴┴ ┴
`

// Print writes the startup banner: listen address, config sources and the
// routes that will be served.
func Print(w io.Writer, eff config.EffectiveConfigResult, routes []string, version string) {
	head := color.New(color.FgCyan, color.Bold)
	ok := color.New(color.FgGreen)
	off := color.New(color.FgYellow)

	fmt.Fprint(w, head.Sprint(banner))
	fmt.Fprintln(w, head.Sprint("== Config ====================================================="))
	fmt.Fprintf(w, "Listen:    %s\n", eff.Addr)
	if version != "" {
		fmt.Fprintf(w, "Version:   %s\n", version)
	}
	fmt.Fprintf(w, "Config:    %s\n", eff.Source)
	if cfg := eff.Config; cfg != nil {
		fmt.Fprintf(w, "Transport: %s\n", cfg.Server.Transport)
		fmt.Fprintf(w, "Max body:  %s\n", humanize.IBytes(uint64(cfg.Server.MaxBodySize.Int64())))
		if cfg.Store.InMemory {
			fmt.Fprintln(w, "Store:     in-memory")
		} else {
			fmt.Fprintf(w, "Store:     %s\n", cfg.Store.Path)
		}
	}

	fmt.Fprintln(w, head.Sprint("\n== Routes ====================================================="))
	for _, r := range routes {
		fmt.Fprintf(w, "  %s\n", r)
	}
	fmt.Fprintf(w, "  (%s routes)\n", humanize.Comma(int64(len(routes))))

	if cfg := eff.Config; cfg != nil {
		fmt.Fprintln(w, head.Sprint("\n== Layers ====================================================="))
		status := func(name string, on bool, detail string) {
			if on {
				fmt.Fprintf(w, "- %s: %s %s\n", name, ok.Sprint("enabled"), detail)
				return
			}
			fmt.Fprintf(w, "- %s: %s\n", name, off.Sprint("disabled"))
		}
		status("Metrics", cfg.Telemetry.Metrics, cfg.Telemetry.MetricsPath)
		rl := cfg.Security.RateLimit
		status("Rate limit", rl.Enabled, fmt.Sprintf("(%.1f rps, burst %d)", rl.RPS, rl.Burst))
		status("CORS", len(cfg.Security.CORS.AllowedOrigins) > 0, fmt.Sprintf("(%d origins)", len(cfg.Security.CORS.AllowedOrigins)))
	}
	fmt.Fprintln(w, head.Sprint("\n== Logs ======================================================="))
}
