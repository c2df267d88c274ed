package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/wd-ai-tools/ai-gateway/internal/api/response"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	authmw "github.com/wd-ai-tools/ai-gateway/internal/middleware"
)

const (
	gatewayUserHeader  = "X-User-ID"
	gatewayEmailHeader = "X-User-Email"
)

// GatewayAuth trusts user info from gateway headers (X-User-ID, X-User-Email).
// The upstream gateway validates credentials; this must only run behind it.
func GatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(gatewayUserHeader)
		if userID == "" {
			response.Abort(c, apperrors.NewUnauthorized("missing "+gatewayUserHeader+" header from gateway"))
			return
		}

		authmw.SetUser(c, userID)
		if email := c.GetHeader(gatewayEmailHeader); email != "" {
			c.Set(authmw.ContextUserEmail, email)
		}
		c.Next()
	}
}
