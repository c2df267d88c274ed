package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"github.com/wd-ai-tools/ai-gateway/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntityGeneration names voice generations in errors.
const EntityGeneration = "voice generation"

type VoiceGenerationService struct {
	db *gorm.DB
}

func NewVoiceGenerationService(db *gorm.DB) *VoiceGenerationService {
	return &VoiceGenerationService{db: db}
}

func (s *VoiceGenerationService) Create(ctx context.Context, g *models.VoiceGeneration) error {
	if strings.TrimSpace(g.Text) == "" {
		return apperrors.NewValidation([]apperrors.FieldError{{Field: "text", Reason: "is required"}})
	}
	if g.Status == "" {
		g.Status = models.StatusProcessing
	}
	if err := checkStatus(g.Status, models.GenerationStatuses); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(g).Error; err != nil {
		return fmt.Errorf("failed to create voice generation: %w", err)
	}
	return nil
}

func (s *VoiceGenerationService) GetByID(ctx context.Context, id uuid.UUID) (*models.VoiceGeneration, error) {
	var g models.VoiceGeneration
	if err := s.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		return nil, notFound(err, EntityGeneration, id)
	}
	return &g, nil
}

func (s *VoiceGenerationService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.VoiceGeneration, error) {
	var list []models.VoiceGeneration
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list voice generations: %w", err)
	}
	return list, nil
}

// UpdateStatus sets the status and, when non-empty, the audio URL and error message.
func (s *VoiceGenerationService) UpdateStatus(ctx context.Context, id uuid.UUID, status, audioURL, errorMessage string) (*models.VoiceGeneration, error) {
	if err := checkStatus(status, models.GenerationStatuses); err != nil {
		return nil, err
	}
	updates := map[string]any{"status": status}
	if audioURL != "" {
		updates["audio_url"] = audioURL
	}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}

	result := s.db.WithContext(ctx).Model(&models.VoiceGeneration{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update voice generation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.NewNotFound(EntityGeneration, id.String())
	}
	return s.GetByID(ctx, id)
}
