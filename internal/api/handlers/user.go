package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/wd-ai-tools/ai-gateway/internal/api/response"
	"github.com/wd-ai-tools/ai-gateway/internal/services"
	"gorm.io/gorm"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{users: services.NewUserService(db)}
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

// GetUser handles GET /users/:id.
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := services.ParseID("id", c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt.UTC().Format(timeLayout),
	})
}
