package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Transports understood by the server.
const (
	TransportNetHTTP  = "nethttp"
	TransportFastHTTP = "fasthttp"
)

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Store     StoreConfig     `yaml:"store"`
}

// ServerConfig holds listener and transport settings.
type ServerConfig struct {
	Address         string    `yaml:"address"`
	Port            int       `yaml:"port"`
	Transport       string    `yaml:"transport"`
	ReadTimeout     Duration  `yaml:"read_timeout"`
	WriteTimeout    Duration  `yaml:"write_timeout"`
	IdleTimeout     Duration  `yaml:"idle_timeout"`
	ShutdownTimeout Duration  `yaml:"shutdown_timeout"`
	MaxBodySize     SizeBytes `yaml:"max_body_size"`
	ReuseAddr       bool      `yaml:"reuse_addr"`
}

// SecurityConfig holds CORS and rate limit settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		Enabled bool    `yaml:"enabled"`
		RPS     float64 `yaml:"rps"`
		Burst   int     `yaml:"burst"`
		// MaxClients caps the number of tracked client buckets.
		MaxClients int `yaml:"max_clients"`
	} `yaml:"rate_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Sink       string `yaml:"sink"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// TelemetryConfig controls the metrics endpoint and slow request logging.
type TelemetryConfig struct {
	Metrics       bool     `yaml:"metrics"`
	MetricsPath   string   `yaml:"metrics_path"`
	SlowThreshold Duration `yaml:"slow_threshold"`
}

// StoreConfig locates the pebble database backing the notes routes.
type StoreConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// Default returns the built-in configuration every source is layered on.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Address = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Server.Transport = TransportNetHTTP
	cfg.Server.ReadTimeout = Duration(10 * time.Second)
	cfg.Server.WriteTimeout = Duration(10 * time.Second)
	cfg.Server.IdleTimeout = Duration(60 * time.Second)
	cfg.Server.ShutdownTimeout = Duration(5 * time.Second)
	cfg.Server.MaxBodySize = SizeBytes(1 << 20)
	cfg.Server.ReuseAddr = true
	cfg.Security.RateLimit.RPS = 5
	cfg.Security.RateLimit.Burst = 10
	cfg.Security.RateLimit.MaxClients = 10000
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Logging.Sink = "stdout"
	cfg.Telemetry.Metrics = true
	cfg.Telemetry.MetricsPath = "/metrics"
	cfg.Telemetry.SlowThreshold = Duration(200 * time.Millisecond)
	cfg.Store.Path = "./.routekit"
	return cfg
}

// Addr returns host:port for HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto reads a YAML file onto cfg. Keys absent from the file keep
// their current values.
func LoadInto(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
