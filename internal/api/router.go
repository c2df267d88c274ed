package api

import (
	"net/http"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/wd-ai-tools/ai-gateway/internal/api/handlers"
	apimiddleware "github.com/wd-ai-tools/ai-gateway/internal/api/middleware"
	"github.com/wd-ai-tools/ai-gateway/internal/api/response"
	"github.com/wd-ai-tools/ai-gateway/internal/config"
	"github.com/wd-ai-tools/ai-gateway/internal/knowledge"
	"github.com/wd-ai-tools/ai-gateway/internal/llm"
	"github.com/wd-ai-tools/ai-gateway/internal/metrics"
	"github.com/wd-ai-tools/ai-gateway/internal/middleware"
	"github.com/wd-ai-tools/ai-gateway/internal/observability"
	"github.com/wd-ai-tools/ai-gateway/internal/services"
	"github.com/wd-ai-tools/ai-gateway/internal/texttoimage"
	webhandlers "github.com/wd-ai-tools/ai-gateway/internal/web/handlers"
	"gorm.io/gorm"
)

const maxMultipartMemory = 8 << 20

// Deps are the long-lived services the router wires into handlers.
type Deps struct {
	DB         *gorm.DB
	Config     *config.Config
	Version    string
	Resolver   *llm.Resolver
	Images     llm.ImageGenerator // nil when no Google key is configured
	Recorder   observability.Recorder
	CloudWatch *metrics.Client
	Redis      *redis.Client // nil disables rate limiting

	// RateLimitStore overrides the Redis-backed store.
	RateLimitStore ratelimit.Store
}

func SetupRouter(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config
	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(deps.CloudWatch))

	// CORS middleware
	router.Use(apimiddleware.CORS(cfg.GetAllowedOrigins()))

	// Prometheus exposition
	router.GET("/metrics", gin.WrapH(metrics.PrometheusHandler()))

	// Dashboard
	webHandler := webhandlers.NewWebHandler(deps.Resolver, deps.Version)
	router.GET("/", webHandler.Home)

	principles, err := texttoimage.NewPrincipleGenerator(deps.Resolver, texttoimage.DefaultSelection(cfg), deps.Recorder)
	if err != nil {
		return nil, err
	}

	api := router.Group("/api")
	store := rateLimitStore(deps)

	// Public routes, limited per client IP
	public := api.Group("")
	if store != nil {
		public.Use(apimiddleware.RateLimit(store))
	}

	var healthRedis redis.UniversalClient
	if deps.Redis != nil {
		healthRedis = deps.Redis
	}
	healthHandler := handlers.NewHealthHandler(deps.DB, healthRedis, deps.Version)
	public.GET("/health", healthHandler.HealthCheck)

	metricsHandler := handlers.NewMetricsHandler(deps.Version, deps.Resolver)
	public.GET("/metrics", metricsHandler.GetMetrics)

	knowledgeHandler := handlers.NewKnowledgeHandler(
		knowledge.NewOutlineGenerator(deps.Resolver, deps.Recorder),
		knowledge.NewQuestionGenerator(deps.Resolver, deps.Recorder),
	)
	public.POST("/outline/generate", knowledgeHandler.GenerateOutline)
	public.POST("/questions/generate", knowledgeHandler.GenerateQuestions)

	textToImageHandler := handlers.NewTextToImageHandler(principles, texttoimage.NewImageService(deps.Images, cfg.ImageModel))
	tti := public.Group("/text-to-image")
	{
		tti.POST("/principle", textToImageHandler.Principle)
		tti.POST("/principle/stream", textToImageHandler.PrincipleStream)
		tti.POST("/generate", textToImageHandler.GenerateImage)
	}

	chatHandler := handlers.NewChatHandler(deps.Resolver)
	chat := public.Group("/chat")
	{
		chat.GET("/models", chatHandler.ListModels)
		chat.POST("/conversations", chatHandler.CreateConversation)
		chat.POST("/chat", chatHandler.Chat)
	}

	// Protected routes, limited per user once auth has run
	protected := api.Group("")
	protected.Use(authMiddleware(cfg))
	if store != nil {
		protected.Use(apimiddleware.RateLimit(store))
	}
	{
		userHandler := handlers.NewUserHandler(deps.DB)
		protected.GET("/users/:id", userHandler.GetUser)

		voice := handlers.NewVoiceCloneHandler(deps.DB, services.NewFileStore(cfg.UploadDir))
		vc := protected.Group("/voice-clone")
		vc.POST("/upload", voice.Upload)
		vc.GET("/recordings", voice.ListRecordings)
		vc.GET("/download/:id", voice.Download)
		vc.DELETE("/recordings/:id", voice.DeleteRecording)
		vc.POST("/models", voice.CreateVoiceModel)
		vc.GET("/models", voice.ListVoiceModels)
		vc.PATCH("/models/:id/status", voice.UpdateVoiceModelStatus)
		vc.DELETE("/models/:id", voice.DeleteVoiceModel)
		vc.POST("/generations", voice.CreateGeneration)
		vc.GET("/generations", voice.ListGenerations)
		vc.PATCH("/generations/:id/status", voice.UpdateGenerationStatus)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Not Found",
			"path":      c.Request.URL.Path,
			"requestId": response.RequestID(c),
		})
	})

	return router, nil
}

func rateLimitStore(deps Deps) ratelimit.Store {
	if deps.RateLimitStore != nil {
		return deps.RateLimitStore
	}
	if deps.Redis == nil {
		return nil
	}
	return apimiddleware.RedisRateLimitStore(deps.Redis, deps.Config.RateLimit, deps.Config.RateLimitWindow)
}

// authMiddleware picks the auth middleware for AUTH_MODE.
func authMiddleware(cfg *config.Config) gin.HandlerFunc {
	switch cfg.AuthMode {
	case config.AuthModeNone:
		return apimiddleware.NoAuth()
	case config.AuthModeGateway:
		return apimiddleware.GatewayAuth()
	default:
		return middleware.TokenAuth(cfg)
	}
}
