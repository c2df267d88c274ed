package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wd-ai-tools/ai-gateway/internal/api/response"
	"github.com/wd-ai-tools/ai-gateway/internal/llm"
)

// ChatHandler exposes the chat surface. Only model listing is implemented;
// conversations are not persisted and multi-model chat answers 501.
type ChatHandler struct {
	resolver ProviderLister
}

func NewChatHandler(resolver ProviderLister) *ChatHandler {
	return &ChatHandler{resolver: resolver}
}

// ChatModel is one entry of GET /chat/models.
type ChatModel struct {
	Provider     string `json:"provider"`
	DefaultModel string `json:"defaultModel"`
	Configured   bool   `json:"configured"`
}

type chatRequest struct {
	Prompt string   `json:"prompt"`
	Models []string `json:"models"`
}

// ListModels handles GET /chat/models.
func (h *ChatHandler) ListModels(c *gin.Context) {
	providers := h.resolver.Providers()
	models := make([]ChatModel, 0, len(providers))
	for _, name := range providers {
		models = append(models, ChatModel{
			Provider:     name,
			DefaultModel: llm.DefaultModels[name],
			Configured:   h.resolver.HasKey(name),
		})
	}
	response.OK(c, gin.H{"models": models})
}

// CreateConversation handles POST /chat/conversations.
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	response.OK(c, gin.H{
		"conversationId": uuid.New().String(),
		"persisted":      false,
	})
}

// Chat handles POST /chat/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusNotImplemented, gin.H{
		"message":        "multi-model chat is not implemented",
		"receivedPrompt": req.Prompt,
		"selectedModels": req.Models,
	})
}
