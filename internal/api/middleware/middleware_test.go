package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wd-ai-tools/ai-gateway/internal/api/response"
	authmw "github.com/wd-ai-tools/ai-gateway/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func echoUser(c *gin.Context) {
	userID, _ := authmw.GetCurrentUserID(c)
	c.JSON(http.StatusOK, gin.H{"user": userID, "requestId": response.RequestID(c)})
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequestTracking_GeneratesRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestTracking(nil))
	r.GET("/ping", echoUser)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	requestID := w.Header().Get(response.RequestIDHeader)
	assert.Len(t, requestID, 36)
	assert.Equal(t, requestID, decode(t, w)["requestId"])
}

func TestRequestTracking_KeepsInboundRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestTracking(nil))
	r.GET("/ping", echoUser)

	tests := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{"short id kept", "trace-abc", true},
		{"oversized id replaced", strings.Repeat("x", maxRequestIDLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set(response.RequestIDHeader, tt.inbound)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(response.RequestIDHeader)
			if tt.keep {
				assert.Equal(t, tt.inbound, got)
			} else {
				assert.NotEqual(t, tt.inbound, got)
				assert.NotEmpty(t, got)
			}
		})
	}
}

func TestRecoverWithSentry(t *testing.T) {
	r := gin.New()
	r.Use(RecoverWithSentry(), RequestTracking(nil))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Internal server error", body["error"])
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
}

func TestGatewayAuth(t *testing.T) {
	r := gin.New()
	r.Use(GatewayAuth())
	r.GET("/me", echoUser)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, w)["code"])

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(gatewayUserHeader, "user-9")
	req.Header.Set(gatewayEmailHeader, "u9@example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-9", decode(t, w)["user"])
}

func TestNoAuth(t *testing.T) {
	r := gin.New()
	r.Use(NoAuth())
	r.GET("/me", echoUser)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, AnonymousUserID, decode(t, w)["user"])
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RequestTracking(nil), RateLimit(MemoryRateLimitStore(2, time.Minute)))
	r.GET("/limited", echoUser)

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	w := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Rate limit exceeded", body["error"])
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.GreaterOrEqual(t, body["retryAfter"], float64(1))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code, "other clients have their own budget")
}

func TestRateLimitKey(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "192.0.2.1:5555"

	assert.Equal(t, "ip:192.0.2.1", rateLimitKey(c))

	authmw.SetUser(c, AnonymousUserID)
	assert.Equal(t, "ip:192.0.2.1", rateLimitKey(c))

	authmw.SetUser(c, "user-1")
	assert.Equal(t, "user:user-1", rateLimitKey(c))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://allowed.test"}))
	r.GET("/x", echoUser)

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://allowed.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://allowed.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
