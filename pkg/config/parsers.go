package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// Flags holds command-line values and which of them were set.
type Flags struct {
	Addr      string
	Config    string
	Transport string
	LogLevel  string
	StorePath string
	Set       map[string]bool
}

// EffectiveConfigResult is the merged configuration plus where it came from.
type EffectiveConfigResult struct {
	Config  *Config
	Addr    string
	Sources []string
	// Source is Sources joined with "+", e.g. "defaults+config+env".
	Source string
}

// ResolveConfigPath picks the config file: an explicit flag wins, then
// ROUTEKIT_CONFIG, then the flag default.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := strings.TrimSpace(os.Getenv("ROUTEKIT_CONFIG")); p != "" {
		return p
	}
	if flagPath != "" {
		return flagPath
	}
	return "./config.yaml"
}

func parseList(v string) []string {
	if v == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// ApplyEnv overlays ROUTEKIT_* variables onto cfg and reports whether any
// were present. Malformed numbers are returned as errors.
func ApplyEnv(cfg *Config) (bool, error) {
	used := false

	if v := os.Getenv("ROUTEKIT_SERVER_ADDR"); v != "" {
		used = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			pi, err := strconv.Atoi(p)
			if err != nil {
				return used, fmt.Errorf("ROUTEKIT_SERVER_ADDR: invalid port %q", p)
			}
			cfg.Server.Port = pi
		} else {
			cfg.Server.Address = v
		}
	} else {
		if host := os.Getenv("ROUTEKIT_SERVER_ADDRESS"); host != "" {
			used = true
			cfg.Server.Address = host
		}
		if port := os.Getenv("ROUTEKIT_SERVER_PORT"); port != "" {
			used = true
			pi, err := strconv.Atoi(strings.TrimSpace(port))
			if err != nil {
				return used, fmt.Errorf("ROUTEKIT_SERVER_PORT: %w", err)
			}
			cfg.Server.Port = pi
		}
	}
	if v := os.Getenv("ROUTEKIT_TRANSPORT"); v != "" {
		used = true
		cfg.Server.Transport = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("ROUTEKIT_MAX_BODY_SIZE"); v != "" {
		used = true
		s, err := ParseSize(v)
		if err != nil {
			return used, fmt.Errorf("ROUTEKIT_MAX_BODY_SIZE: %w", err)
		}
		cfg.Server.MaxBodySize = s
	}
	if v := os.Getenv("ROUTEKIT_READ_TIMEOUT"); v != "" {
		used = true
		d, err := ParseDuration(v)
		if err != nil {
			return used, fmt.Errorf("ROUTEKIT_READ_TIMEOUT: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}
	if v := os.Getenv("ROUTEKIT_WRITE_TIMEOUT"); v != "" {
		used = true
		d, err := ParseDuration(v)
		if err != nil {
			return used, fmt.Errorf("ROUTEKIT_WRITE_TIMEOUT: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("ROUTEKIT_CORS_ORIGINS"); v != "" {
		used = true
		cfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("ROUTEKIT_RATE_LIMIT"); v != "" {
		used = true
		cfg.Security.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("ROUTEKIT_RATE_RPS"); v != "" {
		used = true
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return used, fmt.Errorf("ROUTEKIT_RATE_RPS: %w", err)
		}
		cfg.Security.RateLimit.RPS = f
	}
	if v := os.Getenv("ROUTEKIT_RATE_BURST"); v != "" {
		used = true
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return used, fmt.Errorf("ROUTEKIT_RATE_BURST: %w", err)
		}
		cfg.Security.RateLimit.Burst = n
	}
	if v := os.Getenv("ROUTEKIT_RATE_MAX_CLIENTS"); v != "" {
		used = true
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return used, fmt.Errorf("ROUTEKIT_RATE_MAX_CLIENTS: %w", err)
		}
		cfg.Security.RateLimit.MaxClients = n
	}

	if v := os.Getenv("ROUTEKIT_LOG_LEVEL"); v != "" {
		used = true
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ROUTEKIT_LOG_FORMAT"); v != "" {
		used = true
		cfg.Logging.Format = v
	}
	if v := os.Getenv("ROUTEKIT_LOG_SINK"); v != "" {
		used = true
		cfg.Logging.Sink = v
	}

	if v := os.Getenv("ROUTEKIT_METRICS"); v != "" {
		used = true
		cfg.Telemetry.Metrics = parseBool(v)
	}
	if v := os.Getenv("ROUTEKIT_METRICS_PATH"); v != "" {
		used = true
		cfg.Telemetry.MetricsPath = v
	}

	if v := os.Getenv("ROUTEKIT_STORE_PATH"); v != "" {
		used = true
		cfg.Store.Path = v
	}
	if v := os.Getenv("ROUTEKIT_STORE_IN_MEMORY"); v != "" {
		used = true
		cfg.Store.InMemory = parseBool(v)
	}
	return used, nil
}

// ApplyFlags overlays the flags that were explicitly set.
func ApplyFlags(cfg *Config, flags Flags) (bool, error) {
	used := false
	if flags.Set["addr"] {
		used = true
		host, port, err := net.SplitHostPort(flags.Addr)
		if err != nil {
			return used, fmt.Errorf("--addr: %w", err)
		}
		pi, err := strconv.Atoi(port)
		if err != nil {
			return used, fmt.Errorf("--addr: invalid port %q", port)
		}
		cfg.Server.Address = host
		cfg.Server.Port = pi
	}
	if flags.Set["transport"] {
		used = true
		cfg.Server.Transport = strings.ToLower(flags.Transport)
	}
	if flags.Set["log-level"] {
		used = true
		cfg.Logging.Level = flags.LogLevel
	}
	if flags.Set["store"] {
		used = true
		cfg.Store.Path = flags.StorePath
	}
	return used, nil
}

// LoadEffectiveConfig layers defaults, the config file, environment and
// flags, in that order, and validates the result. A config file named
// explicitly with --config must exist; the default one is optional.
func LoadEffectiveConfig(flags Flags) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult
	cfg := Default()
	res.Sources = []string{"defaults"}

	path := ResolveConfigPath(flags.Config, flags.Set["config"])
	if err := LoadInto(path, cfg); err != nil {
		if !os.IsNotExist(err) || flags.Set["config"] {
			return res, fmt.Errorf("load config %s: %w", path, err)
		}
	} else {
		res.Sources = append(res.Sources, "config")
	}

	envUsed, err := ApplyEnv(cfg)
	if err != nil {
		return res, err
	}
	if envUsed {
		res.Sources = append(res.Sources, "env")
	}

	flagsUsed, err := ApplyFlags(cfg, flags)
	if err != nil {
		return res, err
	}
	if flagsUsed {
		res.Sources = append(res.Sources, "flags")
	}

	if err := Validate(cfg); err != nil {
		return res, err
	}
	res.Config = cfg
	res.Addr = cfg.Addr()
	res.Source = strings.Join(res.Sources, "+")
	return res, nil
}
