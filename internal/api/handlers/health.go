package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/wd-ai-tools/ai-gateway/internal/api/response"
	"github.com/wd-ai-tools/ai-gateway/internal/database"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
	"gorm.io/gorm"
)

const (
	healthStatusOK    = "ok"
	healthStatusError = "error"

	redisPingTimeout = 2 * time.Second
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Message   string            `json:"message,omitempty"`
	Checks    map[string]string `json:"checks"`
}

type HealthHandler struct {
	db      *gorm.DB
	redis   redis.UniversalClient
	version string
}

// NewHealthHandler creates the handler. redisClient may be nil when rate
// limiting is disabled.
func NewHealthHandler(db *gorm.DB, redisClient redis.UniversalClient, version string) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, version: version}
}

// HealthCheck reports the API as healthy only when the database answers.
// A Redis failure is reported but does not fail the check.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	body := HealthResponse{
		Status:    healthStatusOK,
		Timestamp: response.Now(),
		Version:   h.version,
		Checks:    map[string]string{},
	}
	status := http.StatusOK

	if err := database.Ping(ctx, h.db); err != nil {
		fields := logger.WithContext(c)
		logger.Error("Health check: database unreachable", err, fields)
		body.Status = healthStatusError
		body.Message = "database unreachable"
		body.Checks["database"] = healthStatusError
		status = http.StatusServiceUnavailable
	} else {
		body.Checks["database"] = healthStatusOK
	}

	if h.redis != nil {
		body.Checks["redis"] = h.pingRedis(ctx)
	}

	c.JSON(status, body)
}

func (h *HealthHandler) pingRedis(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := h.redis.Ping(ctx).Err(); err != nil {
		logger.Warn("Health check: redis unreachable", logger.Fields{"error": err.Error()})
		return healthStatusError
	}
	return healthStatusOK
}
