// Package main runs the data-access layer's operational process: it owns the
// connection pool, forwards row changes when Redis is configured and serves
// health and metrics endpoints.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/config"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/events"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/handler"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/metrics"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/middleware"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/model"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/repository"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/server"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	recorder := metrics.NewInMemory()

	// Initialize database
	connString := cfg.ConnString()
	pool, err := database.Open(ctx, database.Options{
		URL:              connString,
		MaxConns:         cfg.DB.MaxConns,
		MinConns:         cfg.DB.MinConns,
		AcquireTimeout:   cfg.DB.AcquireTimeout,
		StatementTimeout: cfg.DB.StatementTimeout,
	}, logger, recorder)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, connString)),
			slog.String("database_url", redactURL(connString)),
		)
		os.Exit(1)
	}

	// Registered first so the pool closes after every component using it.
	srv := server.New(nil, cfg.AppPort, cfg.ReadTimeout, cfg.WriteTimeout, cfg.ShutdownTimeout, logger)
	srv.OnShutdown("database", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	// Change forwarding is optional
	var (
		forwarder   *events.Forwarder
		redisHealth handler.HealthChecker
	)
	if cfg.ChangeForwardingEnabled() {
		client, err := events.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			pool.Close()
			os.Exit(1)
		}
		srv.OnShutdown("redis", func(ctx context.Context) error {
			return client.Close()
		})
		redisHealth = events.Pinger{Client: client}
		logger.Info("connected to Redis", "stream", cfg.ChangeStream)

		forwarder = events.NewForwarder(events.NewStreamPublisher(client, cfg.ChangeStream), logger, recorder)
		srv.OnShutdown("change forwarder", forwarder.Shutdown)

		subscriber := events.NewSubscriber(client, cfg.ChangeStream, events.NewConsumerID(), logChange(logger), logger)
		subscriber.SetGroup(cfg.ChangeGroup)
		go func() {
			if err := subscriber.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("change subscriber stopped", "error", err)
			}
		}()
		srv.OnShutdown("change subscriber", subscriber.Shutdown)
	} else {
		logger.Info("change forwarding disabled")
	}

	repo := repository.New(pool, forwarder, logger, recorder)

	version, err := repo.ServerVersion(ctx)
	if err != nil {
		logger.Warn("failed to read server version", "error", err)
	}
	logger.Info("connected to database", "version", version, "max_conns", cfg.DB.MaxConns)

	h := handler.New("/healthz", "/readyz", "/metrics")
	healthHandler := handler.NewHealthHandler(repo, redisHealth)
	metricsHandler := handler.NewMetricsHandler(recorder, pool)

	srv.SetHandler(setupRouter(h, healthHandler, metricsHandler, logger))

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(cfg.LogLevel),
		AddSource: cfg.IsDevelopment(),
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
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with the operational routes.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	metricsHandler *handler.MetricsHandler,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

// logChange reports forwarded changes. Values are not part of a change, so
// nothing sensitive reaches the log.
func logChange(logger *slog.Logger) events.HandlerFunc {
	logger = logger.With("component", "changes")
	return func(ctx context.Context, change model.Change) error {
		logger.Info("row changed",
			"change_id", change.ID,
			"table", change.Table,
			"op", change.Op,
			"record_id", change.RecordID,
			"at", change.At,
		)
		return nil
	}
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
