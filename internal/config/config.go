// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/taskchat/config.toml",
	"configs/config.toml",
}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config      string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host        string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port        int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	AuthURL     string `kong:"help='Auth service base URL (overrides config).',env='AUTH_UPSTREAM_URL'"`
	AuthSecret  string `kong:"help='Auth service shared secret (overrides config).',env='AUTH_SECRET'"`
	Origin      string `kong:"help='Allowed frontend origin for CORS (overrides config).',env='FRONTEND_ORIGIN'"`
	BackendURL  string `kong:"help='Chat backend base URL (overrides config).',env='BACKEND_API_URL'"`
	DatabaseURL string `kong:"help='Database connection string (overrides config).',env='DATABASE_URL'"`
	LogLevel    string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	CORS     CORSConfig     `toml:"cors"`
	Backend  BackendConfig  `toml:"backend"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (3001); TOML cannot distinguish 0 from unset
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// AuthConfig holds settings for the external auth service behind the bridge.
//
// Secret is shared with the auth service out-of-band; the bridge only checks
// that it is not a placeholder and never logs it.
type AuthConfig struct {
	UpstreamURL     string `toml:"upstream_url"`
	Secret          string `toml:"secret"`
	Namespace       string `toml:"namespace"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	IdleConnections int    `toml:"idle_connections"`
}

// CORSConfig holds cross-origin settings for the browser client.
type CORSConfig struct {
	Origin string `toml:"origin"`
}

// BackendConfig holds the chat/task backend settings.
type BackendConfig struct {
	BaseURL string `toml:"base_url"`
}

// DatabaseConfig holds the session-store connection string. The store itself
// is owned by the auth service; the bridge only pings it for readiness.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/taskchat/config.toml then configs/config.toml. A missing config file
// is not an error: every option has a local-development default.
func Load(cli *CLI) (*Config, error) {
	var cfg Config

	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.AuthURL != "" {
		c.Auth.UpstreamURL = cli.AuthURL
	}
	if cli.AuthSecret != "" {
		c.Auth.Secret = cli.AuthSecret
	}
	if cli.Origin != "" {
		c.CORS.Origin = cli.Origin
	}
	if cli.BackendURL != "" {
		c.Backend.BaseURL = cli.BackendURL
	}
	if cli.DatabaseURL != "" {
		c.Database.URL = cli.DatabaseURL
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	if c.Auth.Secret == "CHANGE_ME" {
		return fmt.Errorf("auth.secret contains placeholder value; set a real secret shared with the auth service")
	}

	// URLs: when present, must parse with an http(s) scheme.
	for _, u := range []struct{ key, val string }{
		{"auth.upstream_url", c.Auth.UpstreamURL},
		{"cors.origin", c.CORS.Origin},
		{"backend.base_url", c.Backend.BaseURL},
	} {
		if u.val == "" {
			continue
		}
		parsed, err := url.Parse(u.val)
		if err != nil {
			return fmt.Errorf("%s is not a valid URL: %w", u.key, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s must use http or https; got %q", u.key, u.val)
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Auth.TimeoutSeconds < 0 {
		return fmt.Errorf("auth.timeout_seconds must be non-negative; got %d", c.Auth.TimeoutSeconds)
	}
	if c.Auth.IdleConnections < 0 {
		return fmt.Errorf("auth.idle_connections must be non-negative; got %d", c.Auth.IdleConnections)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	// Auth namespace must be a rooted path without a trailing slash.
	if ns := c.Auth.Namespace; ns != "" {
		if ns[0] != '/' {
			return fmt.Errorf("auth.namespace must start with '/'; got %q", ns)
		}
		if strings.HasSuffix(ns, "/") {
			return fmt.Errorf("auth.namespace must not end with '/'; got %q", ns)
		}
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		ns := c.Auth.Namespace
		if ns == "" {
			ns = "/api/auth"
		}
		for _, reserved := range []string{ns, "/health", "/status"} {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields (Port, BodyMaxBytes, etc.), zero means "unset" because TOML
// cannot distinguish between an explicit 0 and an omitted key. Setting port=0 in
// the config file therefore results in the default port (3001).
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3001
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 1 * 1024 * 1024 // 1 MB
	}
	if c.Auth.UpstreamURL == "" {
		c.Auth.UpstreamURL = "http://localhost:3100"
	}
	if c.Auth.Namespace == "" {
		c.Auth.Namespace = "/api/auth"
	}
	if c.Auth.TimeoutSeconds == 0 {
		c.Auth.TimeoutSeconds = 30
	}
	if c.Auth.IdleConnections == 0 {
		c.Auth.IdleConnections = 100
	}
	if c.CORS.Origin == "" {
		c.CORS.Origin = "http://localhost:5173"
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:8000"
	}
	if c.Database.URL == "" {
		c.Database.URL = "file:taskchat.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
