// Package main is the entrypoint for the Infomap API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/infomap/infomap/internal/auth"
	"github.com/infomap/infomap/internal/cache"
	"github.com/infomap/infomap/internal/config"
	"github.com/infomap/infomap/internal/handler"
	"github.com/infomap/infomap/internal/metrics"
	"github.com/infomap/infomap/internal/middleware"
	"github.com/infomap/infomap/internal/quota"
	"github.com/infomap/infomap/internal/repository"
	"github.com/infomap/infomap/internal/server"
	"github.com/infomap/infomap/internal/service"
	"github.com/infomap/infomap/internal/upstream"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	if cfg.DBAutoMigrate {
		applied, err := repo.Migrate(ctx)
		if err != nil {
			logger.Error("failed to apply migrations", "error", sanitizeError(err, cfg.DatabaseURL))
			repo.Close()
			os.Exit(1)
		}
		logger.Info("migrations applied", "count", len(applied), "versions", applied)
	}

	// Cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	var recorder metrics.Recorder = metrics.NewNoop()
	if cfg.MetricsEnabled {
		recorder = metrics.NewPrometheus()
	}

	// Services
	ledger := quota.NewLedger(repo, cfg.Location())
	newsCache := cacheClient.NewNewsCache(cache.NewsCacheConfig{
		TTL:         cfg.CacheTTL,
		Retention:   cfg.CacheRetention,
		LegacyUntil: cfg.LegacyFallbackDeadline(),
	})

	httpClient := upstream.NewHTTPClient()
	stats := upstream.NewStatsClient(cfg.StatsURL, cfg.StatsTimeout, httpClient, logger)

	var completer upstream.Completer = upstream.PlaceholderCompleter{}
	if cfg.CompletionConfigured() {
		completer = upstream.NewCompletionClient(upstream.CompletionConfig{
			URL:     cfg.PerplexityURL,
			APIKey:  cfg.PerplexityAPIKey,
			Model:   cfg.PerplexityModel,
			Timeout: cfg.CompletionTimeout,
		}, httpClient, logger)
	} else {
		logger.Warn("completion upstream not configured, serving placeholder news")
	}

	newsService := service.NewNewsService(newsCache, ledger, stats, completer, recorder, logger)
	userService := service.NewUserService(repo, ledger, service.UserConfig{
		DefaultDailyQuota: cfg.DefaultDailyQuota,
		HistoryWindow:     cfg.HistoryWindow,
		HistoryLimit:      cfg.HistoryLimit,
	}, logger)

	// Sessions and identity provider
	secret := cfg.SessionSecret
	if secret == "" {
		secret, err = auth.GenerateState()
		if err != nil {
			logger.Error("failed to generate session secret", "error", err)
			os.Exit(1)
		}
		logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}
	sessions, err := auth.NewSessionManager(auth.SessionConfig{
		Secret:     secret,
		TTL:        cfg.SessionTTL,
		CookieName: cfg.SessionCookieName,
		Secure:     cfg.IsProduction(),
	})
	if err != nil {
		logger.Error("failed to create session manager", "error", err)
		os.Exit(1)
	}

	var provider auth.IdentityProvider
	if cfg.GoogleClientID != "" {
		oidcProvider, err := auth.NewOIDCProvider(ctx, auth.OIDCConfig{
			Issuer:       cfg.OAuthIssuer,
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
		})
		if err != nil {
			logger.Error("failed to initialize identity provider", "error", err, "issuer", cfg.OAuthIssuer)
			os.Exit(1)
		}
		provider = oidcProvider
	} else {
		logger.Warn("GOOGLE_CLIENT_ID not set, login is disabled")
	}

	deps := routerDeps{
		cfg:       cfg,
		logger:    logger,
		sessions:  sessions,
		users:     userService,
		limiter:   cacheClient,
		health:    handler.NewHealthHandler(repo, cacheClient),
		auth:      handler.NewAuthHandler(provider, cacheClient, sessions, userService, cfg.FrontendURL, logger),
		news:      handler.NewNewsHandler(newsService, logger),
		account:   handler.NewAccountHandler(userService, logger),
		admin:     handler.NewAdminHandler(userService, logger),
		metrics:   handler.NewMetricsHandler(recorder),
		fallbacks: handler.New(),
	}
	r := setupRouter(deps)

	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(ctx context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(ctx context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"timezone", cfg.Timezone,
		"completion", cfg.CompletionConfigured(),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
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

// routerDeps bundles everything setupRouter wires.
type routerDeps struct {
	cfg       *config.Config
	logger    *slog.Logger
	sessions  *auth.SessionManager
	users     middleware.UserResolver
	limiter   middleware.IPLimiter
	health    *handler.HealthHandler
	auth      *handler.AuthHandler
	news      *handler.NewsHandler
	account   *handler.AccountHandler
	admin     *handler.AdminHandler
	metrics   *handler.MetricsHandler
	fallbacks *handler.Handler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps) *chi.Mux {
	cfg := d.cfg
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Recoverer(d.logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Probes
	r.Get("/health", d.health.Health)
	r.Get("/readyz", d.health.Readyz)
	if cfg.MetricsEnabled {
		r.Get("/metrics", d.metrics.Metrics)
	}

	sessionCfg := middleware.SessionConfig{
		Logger:   d.logger,
		Sessions: d.sessions,
		Users:    d.users,
	}

	// Authentication flow
	r.Get("/login", d.auth.Login)
	r.Get("/auth", d.auth.Callback)
	r.Get("/logout", d.auth.Logout)
	r.With(middleware.OptionalSession(sessionCfg)).Get("/me", d.auth.Me)

	newsLimit := middleware.RateLimitConfig{
		Logger:        d.logger,
		Limiter:       d.limiter,
		Enabled:       cfg.RateLimitNewsEnabled,
		Scope:         "news",
		RatePerMinute: cfg.RateLimitNewsPerMinute,
	}

	// Signed-in users
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(sessionCfg))
		r.Use(middleware.RequireActive(d.sessions))

		r.Get("/quota", d.account.Quota)
		r.Get("/history", d.account.History)
		r.Delete("/history/{id}", d.account.DeleteHistory)
		r.With(middleware.RateLimitIP(newsLimit)).Get("/news/{country}", d.news.Get)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Get("/users", d.admin.ListUsers)
			r.Post("/users", d.admin.CreateUsers)
			r.Post("/quota", d.admin.SetQuota)
			r.Patch("/user/status", d.admin.SetStatus)
			r.Delete("/user/{email}", d.admin.DeleteUser)
		})
	})

	r.NotFound(d.fallbacks.NotFound)
	r.MethodNotAllowed(d.fallbacks.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
