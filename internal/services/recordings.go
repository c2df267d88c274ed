package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"github.com/wd-ai-tools/ai-gateway/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntityRecording names audio recordings in errors.
const EntityRecording = "audio recording"

type AudioRecordingService struct {
	db *gorm.DB
}

func NewAudioRecordingService(db *gorm.DB) *AudioRecordingService {
	return &AudioRecordingService{db: db}
}

// Create inserts a recording. Empty format and status get their defaults.
func (s *AudioRecordingService) Create(ctx context.Context, rec *models.AudioRecording) error {
	if rec.Format == "" {
		rec.Format = "wav"
	}
	if rec.Channels == 0 {
		rec.Channels = 1
	}
	if rec.Status == "" {
		rec.Status = models.StatusProcessing
	}
	if err := checkStatus(rec.Status, models.RecordingStatuses); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create audio recording: %w", err)
	}
	return nil
}

func (s *AudioRecordingService) GetByID(ctx context.Context, id uuid.UUID) (*models.AudioRecording, error) {
	var rec models.AudioRecording
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err, EntityRecording, id)
	}
	return &rec, nil
}

// ListByUser returns the user's recordings, newest first.
func (s *AudioRecordingService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.AudioRecording, error) {
	var recs []models.AudioRecording
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audio recordings: %w", err)
	}
	return recs, nil
}

// UpdateStatus sets the status and, when given, replaces the metadata.
func (s *AudioRecordingService) UpdateStatus(ctx context.Context, id uuid.UUID, status string, metadata datatypes.JSON) (*models.AudioRecording, error) {
	if err := checkStatus(status, models.RecordingStatuses); err != nil {
		return nil, err
	}
	updates := map[string]any{"status": status}
	if metadata != nil {
		updates["metadata"] = metadata
	}
	return s.update(ctx, id, updates)
}

// MetadataUpdate holds the optional fields of UpdateMetadata.
type MetadataUpdate struct {
	Duration   *float64
	SampleRate *int
	BitRate    *int
	Channels   *int
	Metadata   datatypes.JSON
}

// UpdateMetadata sets the fields of u that are non-nil.
func (s *AudioRecordingService) UpdateMetadata(ctx context.Context, id uuid.UUID, u MetadataUpdate) (*models.AudioRecording, error) {
	updates := map[string]any{}
	if u.Duration != nil {
		updates["duration"] = *u.Duration
	}
	if u.SampleRate != nil {
		updates["sample_rate"] = *u.SampleRate
	}
	if u.BitRate != nil {
		updates["bit_rate"] = *u.BitRate
	}
	if u.Channels != nil {
		updates["channels"] = *u.Channels
	}
	if u.Metadata != nil {
		updates["metadata"] = u.Metadata
	}
	if len(updates) == 0 {
		return s.GetByID(ctx, id)
	}
	return s.update(ctx, id, updates)
}

// Delete removes the recording if userID owns it and returns the removed row.
func (s *AudioRecordingService) Delete(ctx context.Context, id, userID uuid.UUID) (*models.AudioRecording, error) {
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckOwner(EntityRecording, rec.UserID, userID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(rec).Error; err != nil {
		return nil, fmt.Errorf("failed to delete audio recording: %w", err)
	}
	return rec, nil
}

func (s *AudioRecordingService) update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.AudioRecording, error) {
	result := s.db.WithContext(ctx).Model(&models.AudioRecording{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update audio recording: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.NewNotFound(EntityRecording, id.String())
	}
	return s.GetByID(ctx, id)
}
