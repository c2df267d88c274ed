package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recording and generation statuses
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Voice model statuses
const (
	ModelStatusTraining = "training"
	ModelStatusReady    = "ready"
	ModelStatusFailed   = "failed"
)

// RecordingStatuses is the closed vocabulary of AudioRecording.Status.
var RecordingStatuses = []string{StatusProcessing, StatusCompleted, StatusFailed}

// VoiceModelStatuses is the closed vocabulary of VoiceModel.Status.
var VoiceModelStatuses = []string{ModelStatusTraining, ModelStatusReady, ModelStatusFailed}

// GenerationStatuses is the closed vocabulary of VoiceGeneration.Status.
var GenerationStatuses = []string{StatusProcessing, StatusCompleted, StatusFailed}

// AudioRecording is an uploaded voice sample.
type AudioRecording struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	User         User           `gorm:"foreignKey:UserID" json:"-"`
	FileName     string         `gorm:"type:varchar(255);not null" json:"fileName"`
	OriginalName string         `gorm:"type:varchar(255)" json:"originalName"`
	FilePath     string         `gorm:"type:text;not null" json:"-"`
	FileSize     int64          `gorm:"not null" json:"fileSize"`
	Duration     *float64       `gorm:"type:decimal(10,2)" json:"duration,omitempty"`
	Format       string         `gorm:"type:varchar(50);not null;default:wav" json:"format"`
	SampleRate   *int           `json:"sampleRate,omitempty"`
	BitRate      *int           `json:"bitRate,omitempty"`
	Channels     int            `gorm:"default:1" json:"channels"`
	Status       string         `gorm:"type:varchar(50);not null;default:processing;index" json:"status"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"`
}

func (r *AudioRecording) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// VoiceModel is a cloned voice trained from a recording.
type VoiceModel struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	User             User           `gorm:"foreignKey:UserID" json:"-"`
	AudioRecordingID *uuid.UUID     `gorm:"type:uuid;index" json:"audioRecordingId,omitempty"`
	AudioRecording   AudioRecording `gorm:"foreignKey:AudioRecordingID" json:"-"`
	VoiceName        string         `gorm:"type:varchar(255);not null" json:"voiceName"`
	Description      string         `gorm:"type:text" json:"description"`
	Status           string         `gorm:"type:varchar(50);not null;default:training;index" json:"status"`
	FalVoiceID       string         `gorm:"type:varchar(255)" json:"falVoiceId,omitempty"`
	TrainingProgress int            `gorm:"default:0" json:"trainingProgress"`
	IsActive         bool           `gorm:"default:true" json:"isActive"`
}

func (m *VoiceModel) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// VoiceGeneration is one text-to-speech request against a voice model.
type VoiceGeneration struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	User         User           `gorm:"foreignKey:UserID" json:"-"`
	VoiceModelID uuid.UUID      `gorm:"type:uuid;not null;index" json:"voiceModelId"`
	VoiceModel   VoiceModel     `gorm:"foreignKey:VoiceModelID" json:"-"`
	Text         string         `gorm:"type:text;not null" json:"text"`
	AudioURL     string         `gorm:"type:text" json:"audioUrl,omitempty"`
	Duration     *float64       `gorm:"type:decimal(10,2)" json:"duration,omitempty"`
	Status       string         `gorm:"type:varchar(50);not null;default:processing;index" json:"status"`
	FalRequestID string         `gorm:"type:varchar(255)" json:"falRequestId,omitempty"`
	ErrorMessage string         `gorm:"type:text" json:"errorMessage,omitempty"`
}

func (g *VoiceGeneration) BeforeCreate(_ *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// All returns every model in migration order.
func All() []any {
	return []any{&User{}, &AudioRecording{}, &VoiceModel{}, &VoiceGeneration{}}
}
