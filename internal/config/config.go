// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles,
// optionally seeded from a dotenv file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	AppPort    int    `env:"APP_PORT" envDefault:"8000"`
	DotenvFile string `env:"DOTENV_FILE" envDefault:".env"`

	// Database (PostgreSQL)
	DatabaseURL   string `env:"DATABASE_URL,required"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts. WriteTimeout must cover the completion upstream call.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// OAuth identity provider
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	OAuthIssuer        string `env:"OAUTH_ISSUER" envDefault:"https://accounts.google.com"`
	OAuthRedirectURL   string `env:"OAUTH_REDIRECT_URL" envDefault:"http://localhost:8000/auth"`

	// Session cookie
	SessionSecret     string        `env:"SESSION_SECRET"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"infomap_session"`

	// Frontend base URL used for post-login and post-logout redirects
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Users and quotas. AdminEmail is only read by the seed script.
	AdminEmail        string `env:"ADMIN_EMAIL"`
	DefaultDailyQuota int    `env:"DEFAULT_DAILY_QUOTA" envDefault:"5"`
	AdminDailyQuota   int    `env:"ADMIN_DAILY_QUOTA" envDefault:"15"`
	Timezone          string `env:"TIMEZONE" envDefault:"Europe/Paris"`

	// Response cache
	CacheTTL                 time.Duration `env:"CACHE_TTL" envDefault:"4h"`
	CacheRetention           time.Duration `env:"CACHE_RETENTION" envDefault:"24h"`
	CacheLegacyFallbackUntil string        `env:"CACHE_LEGACY_FALLBACK_UNTIL" envDefault:"2026-12-31"`

	// Completion upstream
	PerplexityAPIKey  string        `env:"PERPLEXITY_API_KEY"`
	PerplexityURL     string        `env:"PERPLEXITY_URL" envDefault:"https://api.perplexity.ai/chat/completions"`
	PerplexityModel   string        `env:"PERPLEXITY_MODEL" envDefault:"sonar-pro"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"30s"`

	// Stats upstream
	StatsURL     string        `env:"STATS_URL" envDefault:"https://restcountries.com"`
	StatsTimeout time.Duration `env:"STATS_TIMEOUT" envDefault:"10s"`

	// Rate limiting
	RateLimitNewsEnabled   bool `env:"RATE_LIMIT_NEWS_ENABLED" envDefault:"true"`
	RateLimitNewsPerMinute int  `env:"RATE_LIMIT_NEWS_PER_MINUTE" envDefault:"10"`

	// Query history
	HistoryWindow time.Duration `env:"HISTORY_WINDOW" envDefault:"4h"`
	HistoryLimit  int           `env:"HISTORY_LIMIT" envDefault:"20"`

	// Metrics
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	location       *time.Location
	legacyDeadline time.Time
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Location returns the civil-date timezone. Valid after Validate.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// LegacyFallbackDeadline returns the last instant at which the legacy cache key
// shim is consulted. Zero means the shim is disabled.
func (c *Config) LegacyFallbackDeadline() time.Time {
	return c.legacyDeadline
}

// CompletionConfigured reports whether a real completion upstream is configured.
func (c *Config) CompletionConfigured() bool {
	return c.PerplexityAPIKey != ""
}

// Validate checks cross-field constraints and resolves derived values.
func (c *Config) Validate() error {
	var errs []error

	if c.SessionSecret == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("SESSION_SECRET must be set outside development"))
	}
	if !c.CompletionConfigured() && !c.IsDevelopment() {
		errs = append(errs, errors.New("PERPLEXITY_API_KEY must be set outside development"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	if c.CacheRetention < c.CacheTTL {
		errs = append(errs, errors.New("CACHE_RETENTION must be at least CACHE_TTL"))
	}
	if c.DefaultDailyQuota < 0 || c.AdminDailyQuota < 0 {
		errs = append(errs, errors.New("daily quotas must not be negative"))
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, errors.New("HISTORY_LIMIT must be positive"))
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err))
	} else {
		c.location = loc
	}

	if c.CacheLegacyFallbackUntil != "" && loc != nil {
		day, err := time.ParseInLocation("2006-01-02", c.CacheLegacyFallbackUntil, loc)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid CACHE_LEGACY_FALLBACK_UNTIL: %w", err))
		} else {
			c.legacyDeadline = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	}

	return errors.Join(errs...)
}

// Load reads the optional dotenv file, parses environment variables and
// validates the result. Variables already set in the environment win over
// the dotenv file.
func Load() (*Config, error) {
	dotenv := os.Getenv("DOTENV_FILE")
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s: %w", dotenv, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
