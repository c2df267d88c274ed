package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/wd-ai-tools/ai-gateway/internal/api"
	"github.com/wd-ai-tools/ai-gateway/internal/config"
	"github.com/wd-ai-tools/ai-gateway/internal/database"
	"github.com/wd-ai-tools/ai-gateway/internal/llm"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
	"github.com/wd-ai-tools/ai-gateway/internal/metrics"
	"github.com/wd-ai-tools/ai-gateway/internal/observability"
)

const (
	sentryFlushTimeout = 2 * time.Second
	shutdownTimeout    = 15 * time.Second
	readHeaderTimeout  = 10 * time.Second
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	if err := logger.Initialize(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Sentry
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "ai-gateway@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
			Debug:            !cfg.IsProduction(),
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				// Filter out sensitive data
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			logger.Warn("Failed to initialize Sentry", logger.Fields{"error": err.Error()})
		} else {
			logger.Info("Sentry initialized", logger.Fields{"environment": cfg.Environment, "release": releaseVersion})
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		logger.Warn("Sentry not configured (SENTRY_DSN not set)", nil)
	}

	langfuse := observability.InitializeLangfuse(ctx, cfg)

	cloudwatch, err := metrics.NewClient(ctx, cfg.Environment)
	if err != nil {
		logger.Warn("CloudWatch metrics unavailable", logger.Fields{"error": err.Error()})
	}

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		sentry.CaptureException(err)
		logger.Error("Failed to connect to database", err, nil)
		log.Fatal("Failed to connect to database: ", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		sentry.CaptureException(err)
		logger.Error("Failed to run migrations", err, nil)
		log.Fatal("Failed to run migrations: ", err)
	}

	redisClient := connectRedis(ctx, cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	resolver := llm.NewResolver(cfg.ProviderKeys())

	// Image generation needs a server-side Google key.
	var images llm.ImageGenerator
	if cfg.GoogleAPIKey != "" {
		gemini, err := llm.NewGeminiImageGenerator(ctx, cfg.GoogleAPIKey)
		if err != nil {
			logger.Error("Failed to create image generator", err, nil)
		} else {
			images = gemini
		}
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := api.Deps{
		DB:         db,
		Config:     cfg,
		Version:    GetVersion(),
		Resolver:   resolver,
		Images:     images,
		Recorder:   observability.NewGenerationRecorder(cloudwatch, langfuse),
		CloudWatch: cloudwatch,
		Redis:      redisClient,
	}

	router, err := api.SetupRouter(deps)
	if err != nil {
		log.Fatal("Failed to set up router: ", err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		logger.Info("Starting server", logger.Fields{"port": cfg.Port, "version": releaseVersion})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sentry.CaptureException(err)
			log.Fatal("Failed to start server: ", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err, nil)
	}
}

// connectRedis returns nil when REDIS_URL is unset or unreachable, which
// disables rate limiting.
func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info("Rate limiting disabled (REDIS_URL not set)", nil)
		return nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("Invalid REDIS_URL, rate limiting disabled", err, nil)
		return nil
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("Redis unreachable, rate limiting disabled", err, nil)
		_ = client.Close()
		return nil
	}

	logger.Info("Rate limiting enabled", logger.Fields{"limit": cfg.RateLimit, "window": cfg.RateLimitWindow.String()})
	return client
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[strings.ToLower(k)] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
