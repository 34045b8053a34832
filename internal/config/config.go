// Package config manages the switch daemon's process-wide configuration
// using koanf/v2.
//
// This is deliberately separate from package switchcfg, which reads the
// per-switch port/VLAN assignment file (./configs/switch{id}.cfg) in its
// own line-oriented format. Config here covers everything about how the
// daemon itself runs -- admin API, metrics, logging -- and is layered
// from a YAML file, then environment variables, on top of built-in
// defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the complete goswitch daemon configuration.
type Config struct {
	Admin   AdminConfig   `koanf:"admin"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	STP     STPConfig     `koanf:"stp"`
	Audit   AuditConfig   `koanf:"audit"`
}

// AdminConfig holds the admin HTTP/WebSocket API server configuration.
type AdminConfig struct {
	// Addr is the listen address for the admin API (e.g., ":8443").
	Addr string `koanf:"addr"`
	// JWTSecret signs and verifies admin API bearer tokens. Empty
	// disables authentication, for local/simulated-link-layer testing
	// only; Load rejects an empty secret unless Dev is true.
	JWTSecret string `koanf:"jwt_secret"`
	// Dev disables the JWTSecret requirement, for local development
	// against the simulated link layer.
	Dev bool `koanf:"dev"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// STPConfig holds the spanning-tree timing parameters. The reference
// implementation hard-codes both; they are exposed here as tunables
// rather than constants, the one deliberate behavioral addition beyond
// the reference's fixed 1-second/10-cost values -- see DESIGN.md.
type STPConfig struct {
	// HelloInterval is how often a root bridge re-emits BPDUs on every
	// trunk.
	HelloInterval time.Duration `koanf:"hello_interval"`
	// PathCostPerHop is the cost added to a received root path cost
	// before advertising it onward.
	PathCostPerHop uint32 `koanf:"path_cost_per_hop"`
}

// AuditConfig holds the SQLite audit log configuration.
type AuditConfig struct {
	// Path is the sqlite3 database file path. Empty disables auditing.
	Path string `koanf:"path"`
}

// DefaultConfig returns a Config populated with sensible defaults,
// matching the reference implementation's fixed 1-second hello timer
// and per-hop cost of 10.
func DefaultConfig() *Config {
	return &Config{
		Admin: AdminConfig{
			Addr: ":8443",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		STP: STPConfig{
			HelloInterval:  1 * time.Second,
			PathCostPerHop: 10,
		},
		Audit: AuditConfig{
			Path: "./goswitch-audit.db",
		},
	}
}

// envPrefix is the environment variable prefix for goswitch
// configuration. Variables are named GOSWITCH_<section>_<key>, e.g.
// GOSWITCH_ADMIN_ADDR.
const envPrefix = "GOSWITCH_"

// Load reads configuration from a YAML file at path, overlays
// environment variable overrides (GOSWITCH_ prefix), and merges on top
// of DefaultConfig(). Missing fields inherit defaults. An empty path
// skips the file layer, so the result is defaults plus env overrides
// only; a non-empty path that cannot be read is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k, DefaultConfig()); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms GOSWITCH_ADMIN_ADDR -> admin.addr. Only the
// first underscore separates section from key, so multi-word keys keep
// theirs: GOSWITCH_ADMIN_JWT_SECRET -> admin.jwt_secret.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

func loadDefaults(k *koanf.Koanf, d *Config) error {
	defaultMap := map[string]any{
		"admin.addr":            d.Admin.Addr,
		"admin.dev":             d.Admin.Dev,
		"metrics.addr":          d.Metrics.Addr,
		"metrics.path":          d.Metrics.Path,
		"log.level":             d.Log.Level,
		"log.format":            d.Log.Format,
		"stp.hello_interval":    d.STP.HelloInterval.String(),
		"stp.path_cost_per_hop": d.STP.PathCostPerHop,
		"audit.path":            d.Audit.Path,
	}
	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}
	return nil
}

// Validation errors.
var (
	ErrEmptyAdminAddr     = errors.New("admin.addr must not be empty")
	ErrMissingJWTSecret   = errors.New("admin.jwt_secret must be set unless admin.dev is true")
	ErrInvalidHelloPeriod = errors.New("stp.hello_interval must be > 0")
	ErrInvalidPathCost    = errors.New("stp.path_cost_per_hop must be > 0")
)

// Validate checks the configuration for logical errors.
func Validate(cfg *Config) error {
	if cfg.Admin.Addr == "" {
		return ErrEmptyAdminAddr
	}
	if cfg.Admin.JWTSecret == "" && !cfg.Admin.Dev {
		return ErrMissingJWTSecret
	}
	if cfg.STP.HelloInterval <= 0 {
		return ErrInvalidHelloPeriod
	}
	if cfg.STP.PathCostPerHop == 0 {
		return ErrInvalidPathCost
	}
	return nil
}

// ParseLogLevel maps a configuration log level string to the
// corresponding slog.Level. Unknown values default to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
