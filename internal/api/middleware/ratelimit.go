package middleware

import (
	"net/http"
	"strconv"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/wd-ai-tools/ai-gateway/internal/api/response"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
	"github.com/wd-ai-tools/ai-gateway/internal/metrics"
	authmw "github.com/wd-ai-tools/ai-gateway/internal/middleware"
)

// rateLimitBody is the 429 body; it extends the error envelope with retryAfter seconds.
type rateLimitBody struct {
	response.ErrorEnvelope
	RetryAfter int `json:"retryAfter"`
}

// RedisRateLimitStore keeps fixed-window counters in Redis.
func RedisRateLimitStore(client *redis.Client, limit int, window time.Duration) ratelimit.Store {
	return ratelimit.RedisStore(&ratelimit.RedisOptions{
		RedisClient: client,
		Rate:        window,
		Limit:       uint(limit),
	})
}

// MemoryRateLimitStore keeps counters in process memory.
func MemoryRateLimitStore(limit int, window time.Duration) ratelimit.Store {
	return ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  window,
		Limit: uint(limit),
	})
}

// RateLimit limits requests per user id, or per client IP when unauthenticated.
func RateLimit(store ratelimit.Store) gin.HandlerFunc {
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		KeyFunc: rateLimitKey,
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			retryAfter := int(time.Until(info.ResetTime).Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			fields := logger.WithContext(c)
			fields["client_ip"] = c.ClientIP()
			fields["retry_after_s"] = retryAfter
			logger.Warn("Rate limit exceeded", fields)
			metrics.ObserveRateLimited()

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, rateLimitBody{
				ErrorEnvelope: response.ErrorEnvelope{
					Error:     "Rate limit exceeded",
					Code:      string(apperrors.KindRateLimited),
					RequestID: response.RequestID(c),
					Timestamp: response.Now(),
				},
				RetryAfter: retryAfter,
			})
		},
	})
}

func rateLimitKey(c *gin.Context) string {
	if userID, ok := authmw.GetCurrentUserID(c); ok && userID != AnonymousUserID {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}
