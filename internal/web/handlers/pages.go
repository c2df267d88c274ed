package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wd-ai-tools/ai-gateway/internal/llm"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
	"github.com/wd-ai-tools/ai-gateway/internal/web/templates"
)

const dashboardTitle = "AI Tools Gateway"

// ProviderLister reports the registered providers and whether each has a server key.
type ProviderLister interface {
	Providers() []string
	HasKey(provider string) bool
}

var tools = []templates.Tool{
	{Name: "Outline", Method: http.MethodPost, Path: "/api/outline/generate", Description: "Structured learning outline, batch or NDJSON stream"},
	{Name: "Questions", Method: http.MethodPost, Path: "/api/questions/generate", Description: "Practice question collection"},
	{Name: "Principle", Method: http.MethodPost, Path: "/api/text-to-image/principle", Description: "Cause and effect breakdown of a topic"},
	{Name: "Principle stream", Method: http.MethodPost, Path: "/api/text-to-image/principle/stream", Description: "Streamed principle breakdown"},
	{Name: "Infographic", Method: http.MethodPost, Path: "/api/text-to-image/generate", Description: "5-panel infographic image (PNG)"},
	{Name: "Voice upload", Method: http.MethodPost, Path: "/api/voice-clone/upload", Description: "Upload a voice sample for cloning"},
	{Name: "Voice models", Method: http.MethodGet, Path: "/api/voice-clone/models", Description: "Cloned voice models"},
	{Name: "Health", Method: http.MethodGet, Path: "/api/health", Description: "Liveness and database status"},
}

type WebHandler struct {
	resolver ProviderLister
	version  string
}

func NewWebHandler(resolver ProviderLister, version string) *WebHandler {
	return &WebHandler{resolver: resolver, version: version}
}

// Home renders the dashboard.
func (h *WebHandler) Home(c *gin.Context) {
	names := h.resolver.Providers()
	providers := make([]templates.Provider, 0, len(names))
	for _, name := range names {
		providers = append(providers, templates.Provider{
			Name:         name,
			DefaultModel: llm.DefaultModels[name],
			Configured:   h.resolver.HasKey(name),
		})
	}

	component := templates.Dashboard(templates.DashboardData{
		Title:     dashboardTitle,
		Version:   h.version,
		Tools:     tools,
		Providers: providers,
	})

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := component.Render(c.Request.Context(), c.Writer); err != nil {
		logger.Error("Failed to render dashboard", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render template"})
	}
}
