package middleware

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/wd-ai-tools/ai-gateway/internal/api/response"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"github.com/wd-ai-tools/ai-gateway/internal/config"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

const (
	bearerPrefix = "Bearer"
	apiKeyPrefix = "sk-"

	// APIKeyUserID is the user id attached to requests authenticated by API key.
	APIKeyUserID = "api-user"

	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextAuthType  = "auth_type"
)

// Claims are the JWT claims accepted by TokenAuth. The subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenAuth accepts "Authorization: Bearer <token>" where the token is either
// an sk- API key or an HS256 JWT signed with JWT_SECRET.
func TokenAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "Authorization required")
			return
		}

		if strings.HasPrefix(token, apiKeyPrefix) {
			if !validAPIKey(cfg, token) {
				abortUnauthorized(c, "Invalid API key")
				return
			}
			SetUser(c, APIKeyUserID)
			c.Set(ContextAuthType, "api_key")
			c.Next()
			return
		}

		claims, err := ParseToken(cfg.JWTSecret, token)
		if err != nil {
			fields := logger.WithContext(c)
			fields["reason"] = err.Error()
			logger.Debug("JWT rejected", fields)
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		SetUser(c, claims.Subject)
		if claims.Email != "" {
			c.Set(ContextUserEmail, claims.Email)
		}
		c.Set(ContextAuthType, "jwt")
		c.Next()
	}
}

// ParseToken validates an HS256 token and returns its claims. A token
// without a subject is rejected.
func ParseToken(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not configured")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// SignToken issues an HS256 token for userID.
func SignToken(secret, userID, email string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = userID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Email: email, RegisteredClaims: claims})
	return token.SignedString([]byte(secret))
}

func validAPIKey(cfg *config.Config, key string) bool {
	if cfg.APIKeyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(cfg.APIKeyHash), []byte(key)) == nil
	}
	if cfg.APIKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cfg.APIKey), []byte(key)) == 1
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != bearerPrefix {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, message string) {
	response.Abort(c, apperrors.NewUnauthorized(message))
}

// SetUser attaches the authenticated user id to the context.
func SetUser(c *gin.Context, userID string) {
	c.Set(ContextUserID, userID)
}

// GetCurrentUserID retrieves the user ID from context
func GetCurrentUserID(c *gin.Context) (string, bool) {
	userIDVal, exists := c.Get(ContextUserID)
	if !exists {
		return "", false
	}
	userID, ok := userIDVal.(string)
	return userID, ok && userID != ""
}
