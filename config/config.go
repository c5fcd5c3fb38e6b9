package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Batch     BatchConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// FetchConfig controls how recipe pages are retrieved.
type FetchConfig struct {
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 120s

	// EscalationDelays is the staged start delay for each engine tier.
	EscalationDelays []time.Duration // default: [0s, 2s]

	// DomainMemoryTTL is how long the winning engine is remembered per host.
	DomainMemoryTTL time.Duration // default: 24h

	// PerHostRPS throttles outbound requests to a single host. 0 disables.
	PerHostRPS float64 // default: 2

	// MaxBodyBytes caps the page size read from the network.
	MaxBodyBytes int64 // default: 10 MiB

	// Proxy is an optional proxy URL for the plain HTTP engine.
	Proxy string
}

// AuthConfig controls API authentication.
type AuthConfig struct {
	// Enabled toggles authentication on the protected routes.
	Enabled bool // default: true

	// APIKeys is the list of static API keys.
	APIKeys []string

	// TokenSecret signs and verifies bearer tokens (HS256).
	TokenSecret string

	// AdminSecret is exchanged for a bearer token at POST /api/v1/token.
	// Token issuance is disabled while it is empty.
	AdminSecret string

	// TokenTTL is the lifetime of issued tokens. 0 issues non-expiring tokens.
	TokenTTL time.Duration // default: 0
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// BatchConfig controls asynchronous batch extraction.
type BatchConfig struct {
	MaxURLs     int           // default: 100
	Concurrency int           // default: 5
	JobTTL      time.Duration // default: 1h
	MaxJobs     int           // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool // default: true
}

// Load reads configuration from environment variables with sane defaults.
// Variables from .env in the working directory are applied first; values
// already present in the process environment win.
func Load() *Config {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			slog.Warn("config: failed to load .env", "error", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Host: envOr("RECIPESCRAPE_HOST", "0.0.0.0"),
			Port: envIntOr("RECIPESCRAPE_PORT", 8080),
			Mode: envOr("RECIPESCRAPE_MODE", "release"),
		},
		Fetch: FetchConfig{
			DefaultTimeout:   envDurationOr("RECIPESCRAPE_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:       envDurationOr("RECIPESCRAPE_MAX_TIMEOUT", 120*time.Second),
			EscalationDelays: envDurationSliceOr("RECIPESCRAPE_ESCALATION_DELAYS", []time.Duration{0, 2 * time.Second}),
			DomainMemoryTTL:  envDurationOr("RECIPESCRAPE_DOMAIN_MEMORY_TTL", 24*time.Hour),
			PerHostRPS:       envFloatOr("RECIPESCRAPE_PER_HOST_RPS", 2.0),
			MaxBodyBytes:     int64(envIntOr("RECIPESCRAPE_MAX_BODY_BYTES", 10<<20)),
			Proxy:            os.Getenv("RECIPESCRAPE_PROXY"),
		},
		Auth: AuthConfig{
			Enabled:     envBoolOr("RECIPESCRAPE_AUTH_ENABLED", true),
			APIKeys:     envSliceOr("RECIPESCRAPE_API_KEYS", nil),
			TokenSecret: os.Getenv("RECIPESCRAPE_TOKEN_SECRET"),
			AdminSecret: os.Getenv("RECIPESCRAPE_ADMIN_SECRET"),
			TokenTTL:    envDurationOr("RECIPESCRAPE_TOKEN_TTL", 0),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("RECIPESCRAPE_RATE_RPS", 5.0),
			Burst:             envIntOr("RECIPESCRAPE_RATE_BURST", 10),
		},
		Batch: BatchConfig{
			MaxURLs:     envIntOr("RECIPESCRAPE_BATCH_MAX_URLS", 100),
			Concurrency: envIntOr("RECIPESCRAPE_BATCH_CONCURRENCY", 5),
			JobTTL:      envDurationOr("RECIPESCRAPE_BATCH_JOB_TTL", time.Hour),
			MaxJobs:     envIntOr("RECIPESCRAPE_BATCH_MAX_JOBS", 1000),
		},
		Log: LogConfig{
			Level:  envOr("RECIPESCRAPE_LOG_LEVEL", "info"),
			Format: envOr("RECIPESCRAPE_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: envBoolOr("RECIPESCRAPE_METRICS", true),
		},
	}
}

// ErrNoCredentials is returned by Validate when authentication is enabled
// but no API key or token secret could ever satisfy it.
var ErrNoCredentials = errors.New("config: auth enabled but no API keys or token secret configured")

// Validate rejects configurations that would leave the protected routes
// unreachable or silently open.
func (c *Config) Validate() error {
	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 && c.Auth.TokenSecret == "" {
		return ErrNoCredentials
	}
	return nil
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
