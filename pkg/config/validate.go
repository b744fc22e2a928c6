package config

import (
	"fmt"
	"strings"
)

// Validate fails fast on values the server cannot run with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if p := cfg.Server.Port; p < 0 || p > 65535 {
		return fmt.Errorf("server.port out of range: %d", p)
	}
	switch cfg.Server.Transport {
	case TransportNetHTTP, TransportFastHTTP:
	default:
		return fmt.Errorf("server.transport must be %q or %q, got %q", TransportNetHTTP, TransportFastHTTP, cfg.Server.Transport)
	}
	if cfg.Server.MaxBodySize < 0 {
		return fmt.Errorf("server.max_body_size must not be negative")
	}
	for name, d := range map[string]Duration{
		"server.read_timeout":     cfg.Server.ReadTimeout,
		"server.write_timeout":    cfg.Server.WriteTimeout,
		"server.idle_timeout":     cfg.Server.IdleTimeout,
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if rl := cfg.Security.RateLimit; rl.Enabled && (rl.RPS < 0 || rl.Burst < 0 || rl.MaxClients < 0) {
		return fmt.Errorf("security.rate_limit rps, burst and max_clients must not be negative")
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not text or json", cfg.Logging.Format)
	}
	if s := cfg.Logging.Sink; s != "" && s != "stdout" && s != "stderr" && !strings.HasPrefix(s, "file:") {
		return fmt.Errorf("logging.sink %q must be stdout, stderr or file:<path>", s)
	}
	if cfg.Telemetry.Metrics && !strings.HasPrefix(cfg.Telemetry.MetricsPath, "/") {
		return fmt.Errorf("telemetry.metrics_path must start with /")
	}
	if !cfg.Store.InMemory && strings.TrimSpace(cfg.Store.Path) == "" {
		return fmt.Errorf("store.path is empty: set --store, ROUTEKIT_STORE_PATH, or store.path in config")
	}
	return nil
}
