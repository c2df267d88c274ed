package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/wd-ai-tools/ai-gateway/internal/api/response"
)

const corsMaxAge = 12 * time.Hour

// CORS allows the configured origins with credentials and exposes the request id.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", response.RequestIDHeader, gatewayUserHeader}
	corsConfig.ExposeHeaders = []string{response.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = corsMaxAge
	return cors.New(corsConfig)
}
