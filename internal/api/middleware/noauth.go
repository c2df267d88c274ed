package middleware

import (
	"github.com/gin-gonic/gin"
	authmw "github.com/wd-ai-tools/ai-gateway/internal/middleware"
)

// AnonymousUserID is the user id assigned when AUTH_MODE=none.
const AnonymousUserID = "anonymous"

// NoAuth is a pass-through middleware for AUTH_MODE=none.
func NoAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authmw.SetUser(c, AnonymousUserID)
		c.Next()
	}
}
