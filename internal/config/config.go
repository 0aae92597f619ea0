// Package config loads service configuration from defaults, an optional YAML
// file, and PITCHBOARD_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrInvalidConfig marks configurations the process cannot run with.
// Callers can test for it with errors.Is.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the explicit configuration object built once at startup and
// passed by reference into every component; nothing reads ambient globals.
type Config struct {
	// HTTP server.
	HTTPHost string `koanf:"http_host"`
	HTTPPort int    `koanf:"http_port"`

	// Cross-origin and per-IP rate limiting for the API surface.
	CORSAllowOrigins       string `koanf:"cors_allow_origins"` // comma-separated
	RateLimitEnabled       bool   `koanf:"rate_limit_enabled"`
	RateLimitRequests      int    `koanf:"rate_limit_requests"`
	RateLimitWindowSeconds int    `koanf:"rate_limit_window_seconds"`

	// TrackMan data API access.
	TrackmanBaseURL        string  `koanf:"trackman_base_url"`
	TrackmanTokenURL       string  `koanf:"trackman_token_url"`
	TrackmanClientID       string  `koanf:"trackman_client_id"`
	TrackmanClientSecret   string  `koanf:"trackman_client_secret"`
	TrackmanRPS            float64 `koanf:"trackman_rps"`
	TrackmanTimeoutSeconds int     `koanf:"trackman_timeout_seconds"`

	// Fetch memoization and HTTP response caching.
	MemoCapacity            int  `koanf:"memo_capacity"`
	MemoTTLSeconds          int  `koanf:"memo_ttl_seconds"`
	ResponseCacheEnabled    bool `koanf:"response_cache_enabled"`
	ResponseCacheTTLSeconds int  `koanf:"response_cache_ttl_seconds"`

	// Pipeline defaults, overridable per request.
	DefaultSessionType string `koanf:"default_session_type"`
	DefaultJoinMode    string `koanf:"default_join_mode"`
	DefaultSeparator   string `koanf:"default_separator"`

	// MaxDistinctValues caps the distinct-value lists served for building
	// multi-select widgets.
	MaxDistinctValues int `koanf:"max_distinct_values"`

	LogLevel string `koanf:"log_level"`
}

// Default returns the configuration used when nothing overrides it. The
// TrackMan credentials have no default and must come from the file, the
// environment, or a .env file.
func Default() *Config {
	return &Config{
		HTTPHost:                "0.0.0.0",
		HTTPPort:                8000,
		CORSAllowOrigins:        "*",
		RateLimitEnabled:        true,
		RateLimitRequests:       300,
		RateLimitWindowSeconds:  60,
		TrackmanBaseURL:         "https://dataapi.trackmanbaseball.com/api/v1/data",
		TrackmanTokenURL:        "https://login.trackmanbaseball.com/connect/token",
		TrackmanRPS:             5,
		TrackmanTimeoutSeconds:  30,
		MemoCapacity:            256,
		MemoTTLSeconds:          900,
		ResponseCacheEnabled:    true,
		ResponseCacheTTLSeconds: 300,
		DefaultSessionType:      "All",
		DefaultJoinMode:         "left",
		DefaultSeparator:        ".",
		MaxDistinctValues:       200,
		LogLevel:                "info",
	}
}

// Load builds a Config by layering sources, later wins:
//
//  1. Default()
//  2. YAML file (the path argument, or PITCHBOARD_CONFIG when empty)
//  3. environment variables (PITCHBOARD_HTTP_PORT -> http_port, ...)
//
// The result is validated before it is returned.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("PITCHBOARD_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("PITCHBOARD_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PITCHBOARD_"))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg := *Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the process cannot run with. Credentials
// are required because every operation talks to the live data API.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("%w: http_port %d out of range", ErrInvalidConfig, c.HTTPPort)
	}
	if c.TrackmanBaseURL == "" || c.TrackmanTokenURL == "" {
		return fmt.Errorf("%w: trackman_base_url and trackman_token_url must be set", ErrInvalidConfig)
	}
	if c.TrackmanClientID == "" || c.TrackmanClientSecret == "" {
		return fmt.Errorf("%w: trackman_client_id and trackman_client_secret are required", ErrInvalidConfig)
	}
	if c.TrackmanRPS <= 0 {
		return fmt.Errorf("%w: trackman_rps must be positive", ErrInvalidConfig)
	}
	if c.MemoCapacity < 1 {
		return fmt.Errorf("%w: memo_capacity must be at least 1", ErrInvalidConfig)
	}
	if c.DefaultSeparator == "" {
		return fmt.Errorf("%w: default_separator must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.DefaultJoinMode) {
	case "inner", "left", "right":
	default:
		return fmt.Errorf("%w: default_join_mode %q (want inner, left or right)", ErrInvalidConfig, c.DefaultJoinMode)
	}
	return nil
}

// Addr is the host:port the HTTP server binds.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

// CORSOrigins splits the comma-separated origin list.
func (c *Config) CORSOrigins() []string {
	parts := strings.Split(c.CORSAllowOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RateLimitWindow is the sliding window for the per-IP limiter.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// MemoTTL is how long memoized fetches stay valid; zero disables expiry.
func (c *Config) MemoTTL() time.Duration {
	return time.Duration(c.MemoTTLSeconds) * time.Second
}

// ResponseCacheTTL is the TTL for cached API responses.
func (c *Config) ResponseCacheTTL() time.Duration {
	return time.Duration(c.ResponseCacheTTLSeconds) * time.Second
}

// TrackmanTimeout bounds one upstream HTTP request.
func (c *Config) TrackmanTimeout() time.Duration {
	return time.Duration(c.TrackmanTimeoutSeconds) * time.Second
}

// SlogLevel maps the configured log level onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
