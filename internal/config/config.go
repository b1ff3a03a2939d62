package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/pharmalink/gateway/pkg/config"
)

// Config holds all configuration for the portal gateway.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"GATEWAY_HTTP_PORT" envDefault:"8080"`

	// Upstream backend API. Every resource the portal shows lives behind it;
	// the gateway never stores data of record.
	TargetAPI string `env:"TARGET_API" envDefault:"http://localhost:9000/api"`

	// Auth cookie minted by the proxy on login.
	CookieName string        `env:"AUTH_COOKIE_NAME" envDefault:"token"`
	CookieTTL  time.Duration `env:"AUTH_COOKIE_TTL" envDefault:"24h"`

	// Session cache behavior.
	SessionStaleness time.Duration `env:"SESSION_STALENESS" envDefault:"30s"`
	SessionStore     string        `env:"SESSION_STORE" envDefault:"memory"` // memory | redis

	// Redis (only used when SessionStore is "redis").
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Auth audit events.
	AuditEnabled bool     `env:"AUDIT_EVENTS_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	AuditTopic   string   `env:"AUDIT_TOPIC" envDefault:"pharmalink.auth.events"`

	// Upstream HTTP behavior.
	UpstreamTimeout    time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`
	UpstreamMaxRetries int           `env:"UPSTREAM_MAX_RETRIES" envDefault:"3"`

	// Rate limiting.
	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"100"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"200"`

	// CORS.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	CORSAllowedMethods []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:""`
	CORSAllowedHeaders []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:""`
	CORSMaxAge         int      `env:"CORS_MAX_AGE" envDefault:"3600"`

	// Operational endpoints.
	MetricsAllowedCIDRs []string `env:"METRICS_ALLOWED_CIDRS" envSeparator:"," envDefault:"127.0.0.0/8,10.0.0.0/8"`
	PprofAllowedCIDRs   []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:"," envDefault:"127.0.0.0/8"`

	// Tracing.
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Static portal shell served behind the guard. Empty disables shell
	// serving (API-only deployment).
	ShellDir string `env:"SHELL_DIR" envDefault:""`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := pkgconfig.Load[Config]()
	if err != nil {
		return nil, fmt.Errorf("load gateway config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.TargetAPI == "" {
		return fmt.Errorf("TARGET_API must be set")
	}
	u, err := url.Parse(c.TargetAPI)
	if err != nil {
		return fmt.Errorf("TARGET_API is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("TARGET_API must be an http(s) URL, got %q", c.TargetAPI)
	}
	if u.Host == "" {
		return fmt.Errorf("TARGET_API must include a host, got %q", c.TargetAPI)
	}
	if c.SessionStore != "memory" && c.SessionStore != "redis" {
		return fmt.Errorf("SESSION_STORE must be memory or redis, got %q", c.SessionStore)
	}
	if c.CookieTTL <= 0 {
		return fmt.Errorf("AUTH_COOKIE_TTL must be positive")
	}
	return nil
}

// Production reports whether the gateway runs in the production environment.
// Controls the Secure attribute on the auth cookie.
func (c *Config) Production() bool {
	return c.Environment == "production"
}
