package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"github.com/wd-ai-tools/ai-gateway/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntityVoiceModel names voice models in errors.
const EntityVoiceModel = "voice model"

type VoiceModelService struct {
	db *gorm.DB
}

func NewVoiceModelService(db *gorm.DB) *VoiceModelService {
	return &VoiceModelService{db: db}
}

func (s *VoiceModelService) Create(ctx context.Context, m *models.VoiceModel) error {
	if m.VoiceName == "" {
		return apperrors.NewValidation([]apperrors.FieldError{{Field: "voiceName", Reason: "is required"}})
	}
	if m.Status == "" {
		m.Status = models.ModelStatusTraining
	}
	if err := checkStatus(m.Status, models.VoiceModelStatuses); err != nil {
		return err
	}
	m.IsActive = true
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create voice model: %w", err)
	}
	return nil
}

func (s *VoiceModelService) GetByID(ctx context.Context, id uuid.UUID) (*models.VoiceModel, error) {
	var m models.VoiceModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, EntityVoiceModel, id)
	}
	return &m, nil
}

func (s *VoiceModelService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.VoiceModel, error) {
	var list []models.VoiceModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list voice models: %w", err)
	}
	return list, nil
}

// UpdateStatus sets status, training progress (0..100) and, when non-empty, the vendor voice id.
func (s *VoiceModelService) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress *int, falVoiceID string) (*models.VoiceModel, error) {
	if err := checkStatus(status, models.VoiceModelStatuses); err != nil {
		return nil, err
	}
	updates := map[string]any{"status": status}
	if progress != nil {
		if *progress < 0 || *progress > 100 {
			return nil, apperrors.NewValidation([]apperrors.FieldError{{Field: "trainingProgress", Reason: "must be between 0 and 100"}})
		}
		updates["training_progress"] = *progress
	}
	if falVoiceID != "" {
		updates["fal_voice_id"] = falVoiceID
	}

	result := s.db.WithContext(ctx).Model(&models.VoiceModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update voice model: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.NewNotFound(EntityVoiceModel, id.String())
	}
	return s.GetByID(ctx, id)
}

// Delete removes the voice model if userID owns it.
func (s *VoiceModelService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := CheckOwner(EntityVoiceModel, m.UserID, userID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(m).Error; err != nil {
		return fmt.Errorf("failed to delete voice model: %w", err)
	}
	return nil
}
