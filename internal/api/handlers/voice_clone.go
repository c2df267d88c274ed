package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wd-ai-tools/ai-gateway/internal/api/response"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
	authmw "github.com/wd-ai-tools/ai-gateway/internal/middleware"
	"github.com/wd-ai-tools/ai-gateway/internal/models"
	"github.com/wd-ai-tools/ai-gateway/internal/services"
	"gorm.io/gorm"
)

// VoiceCloneHandler serves voice sample uploads and the voice model and
// generation bookkeeping.
type VoiceCloneHandler struct {
	recordings  *services.AudioRecordingService
	voiceModels *services.VoiceModelService
	generations *services.VoiceGenerationService
	store       *services.FileStore
}

func NewVoiceCloneHandler(db *gorm.DB, store *services.FileStore) *VoiceCloneHandler {
	return &VoiceCloneHandler{
		recordings:  services.NewAudioRecordingService(db),
		voiceModels: services.NewVoiceModelService(db),
		generations: services.NewVoiceGenerationService(db),
		store:       store,
	}
}

// RecordingResponse is the public view of an audio recording.
type RecordingResponse struct {
	ID           string   `json:"id"`
	FileName     string   `json:"fileName"`
	OriginalName string   `json:"originalName"`
	FileSize     int64    `json:"fileSize"`
	Duration     *float64 `json:"duration"`
	Format       string   `json:"format"`
	Status       string   `json:"status"`
	CreatedAt    string   `json:"createdAt"`
}

func newRecordingResponse(rec *models.AudioRecording) RecordingResponse {
	return RecordingResponse{
		ID:           rec.ID.String(),
		FileName:     rec.FileName,
		OriginalName: rec.OriginalName,
		FileSize:     rec.FileSize,
		Duration:     rec.Duration,
		Format:       rec.Format,
		Status:       rec.Status,
		CreatedAt:    rec.CreatedAt.UTC().Format(timeLayout),
	}
}

type createVoiceModelRequest struct {
	UserID           string `json:"userId"`
	AudioRecordingID string `json:"audioRecordingId"`
	VoiceName        string `json:"voiceName"`
	Description      string `json:"description"`
}

type updateVoiceModelStatusRequest struct {
	Status           string `json:"status"`
	TrainingProgress *int   `json:"trainingProgress"`
	FalVoiceID       string `json:"falVoiceId"`
}

type createGenerationRequest struct {
	UserID       string `json:"userId"`
	VoiceModelID string `json:"voiceModelId"`
	Text         string `json:"text"`
}

type updateGenerationStatusRequest struct {
	Status       string `json:"status"`
	AudioURL     string `json:"audioUrl"`
	ErrorMessage string `json:"errorMessage"`
}

func invalidField(field, reason string) error {
	return apperrors.NewValidation([]apperrors.FieldError{{Field: field, Reason: reason}})
}

// owner resolves the user that owns the records of this request: the
// authenticated user when its id is a UUID, else the explicit userId.
func owner(c *gin.Context, explicit string) (uuid.UUID, error) {
	if userID, ok := authmw.GetCurrentUserID(c); ok {
		if id, err := uuid.Parse(userID); err == nil {
			return id, nil
		}
	}
	if explicit == "" {
		explicit = c.Query(userIDFormField)
	}
	if explicit == "" {
		return uuid.Nil, invalidField(userIDFormField, "is required when the caller has no user id")
	}
	return services.ParseID(userIDFormField, explicit)
}

// Upload handles POST /voice-clone/upload (multipart: audio, duration, userId).
func (h *VoiceCloneHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()

	if c.Request.ContentLength > maxUploadBody {
		response.Error(c, invalidField(audioFormField, "maximum file size is 50MB"))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)
	if _, err := c.MultipartForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, invalidField(audioFormField, "maximum file size is 50MB"))
			return
		}
		response.Error(c, invalidField(audioFormField, "audio file is required"))
		return
	}

	userID, err := owner(c, c.PostForm(userIDFormField))
	if err != nil {
		response.Error(c, err)
		return
	}

	header, err := c.FormFile(audioFormField)
	if err != nil || header.Size == 0 {
		response.Error(c, invalidField(audioFormField, "audio file is required"))
		return
	}
	if !strings.HasPrefix(header.Header.Get("Content-Type"), audioContentPrefix) {
		response.Error(c, invalidField(audioFormField, "only audio files are allowed"))
		return
	}
	if header.Size > maxAudioSize {
		response.Error(c, invalidField(audioFormField, "maximum file size is 50MB"))
		return
	}

	duration, err := strconv.ParseFloat(c.PostForm(durationFormField), 64)
	if err != nil || duration < minAudioDuration {
		response.Error(c, invalidField(durationFormField, "audio duration must be at least 10 seconds"))
		return
	}

	originalName := header.Filename
	if filepath.Ext(originalName) == "" {
		originalName += defaultAudioExt
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, apperrors.NewInternal("failed to read upload", err))
		return
	}
	defer file.Close()

	stored, err := h.store.Save(file, originalName)
	if err != nil {
		response.Error(c, apperrors.NewInternal("failed to store upload", err))
		return
	}

	rec := &models.AudioRecording{
		UserID:       userID,
		FileName:     stored.FileName,
		OriginalName: header.Filename,
		FilePath:     stored.Path,
		FileSize:     stored.Size,
		Duration:     &duration,
		Format:       strings.TrimPrefix(strings.ToLower(filepath.Ext(stored.FileName)), "."),
		Status:       models.StatusCompleted,
	}
	if err := h.recordings.Create(ctx, rec); err != nil {
		if rmErr := h.store.Remove(stored.Path); rmErr != nil {
			logger.Warn("Failed to remove orphaned upload", logger.Fields{"path": stored.Path, "error": rmErr.Error()})
		}
		response.Error(c, err)
		return
	}

	fields := logger.WithContext(c)
	fields["recording_id"] = rec.ID.String()
	fields["file_size"] = rec.FileSize
	fields["duration_s"] = duration
	logger.Info("Audio file uploaded", fields)

	response.OK(c, newRecordingResponse(rec))
}

// ListRecordings handles GET /voice-clone/recordings.
func (h *VoiceCloneHandler) ListRecordings(c *gin.Context) {
	userID, err := owner(c, "")
	if err != nil {
		response.Error(c, err)
		return
	}

	recs, err := h.recordings.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]RecordingResponse, 0, len(recs))
	for i := range recs {
		out = append(out, newRecordingResponse(&recs[i]))
	}
	response.OK(c, out)
}

// Download handles GET /voice-clone/download/:id and streams the stored file.
func (h *VoiceCloneHandler) Download(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := services.ParseID("id", c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	userID, err := owner(c, "")
	if err != nil {
		response.Error(c, err)
		return
	}

	rec, err := h.recordings.GetByID(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := services.CheckOwner(services.EntityRecording, rec.UserID, userID); err != nil {
		response.Error(c, err)
		return
	}

	f, err := h.store.Open(rec.FilePath)
	if err != nil {
		response.Error(c, apperrors.NewNotFound("audio file", id.String()))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		response.Error(c, apperrors.NewInternal("failed to stat audio file", err))
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(rec.FileName))
	if contentType == "" {
		contentType = "audio/wav"
	}
	name := rec.OriginalName
	if name == "" {
		name = rec.FileName
	}

	c.DataFromReader(http.StatusOK, info.Size(), contentType, f, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", name),
	})
}

// DeleteRecording handles DELETE /voice-clone/recordings/:id.
func (h *VoiceCloneHandler) DeleteRecording(c *gin.Context) {
	id, err := services.ParseID("id", c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	userID, err := owner(c, "")
	if err != nil {
		response.Error(c, err)
		return
	}

	rec, err := h.recordings.Delete(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Remove(rec.FilePath); err != nil {
		fields := logger.WithContext(c)
		fields["recording_id"] = id.String()
		logger.Error("Failed to remove audio file", err, fields)
	}

	response.OK(c, gin.H{"id": id.String(), "deleted": true})
}

// CreateVoiceModel handles POST /voice-clone/models.
func (h *VoiceCloneHandler) CreateVoiceModel(c *gin.Context) {
	ctx := c.Request.Context()

	var req createVoiceModelRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	userID, err := owner(c, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	m := &models.VoiceModel{
		UserID:      userID,
		VoiceName:   strings.TrimSpace(req.VoiceName),
		Description: req.Description,
	}
	if req.AudioRecordingID != "" {
		recID, err := services.ParseID("audioRecordingId", req.AudioRecordingID)
		if err != nil {
			response.Error(c, err)
			return
		}
		rec, err := h.recordings.GetByID(ctx, recID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if err := services.CheckOwner(services.EntityRecording, rec.UserID, userID); err != nil {
			response.Error(c, err)
			return
		}
		m.AudioRecordingID = &recID
	}

	if err := h.voiceModels.Create(ctx, m); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, m)
}

// ListVoiceModels handles GET /voice-clone/models.
func (h *VoiceCloneHandler) ListVoiceModels(c *gin.Context) {
	userID, err := owner(c, "")
	if err != nil {
		response.Error(c, err)
		return
	}

	list, err := h.voiceModels.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// UpdateVoiceModelStatus handles PATCH /voice-clone/models/:id/status.
func (h *VoiceCloneHandler) UpdateVoiceModelStatus(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := services.ParseID("id", c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var req updateVoiceModelStatusRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	userID, err := owner(c, "")
	if err != nil {
		response.Error(c, err)
		return
	}

	current, err := h.voiceModels.GetByID(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := services.CheckOwner(services.EntityVoiceModel, current.UserID, userID); err != nil {
		response.Error(c, err)
		return
	}

	updated, err := h.voiceModels.UpdateStatus(ctx, id, req.Status, req.TrainingProgress, req.FalVoiceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// DeleteVoiceModel handles DELETE /voice-clone/models/:id.
func (h *VoiceCloneHandler) DeleteVoiceModel(c *gin.Context) {
	id, err := services.ParseID("id", c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	userID, err := owner(c, "")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.voiceModels.Delete(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": id.String(), "deleted": true})
}

// CreateGeneration handles POST /voice-clone/generations. The voice model
// must belong to the caller and be ready.
func (h *VoiceCloneHandler) CreateGeneration(c *gin.Context) {
	ctx := c.Request.Context()

	var req createGenerationRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	userID, err := owner(c, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	modelID, err := services.ParseID("voiceModelId", req.VoiceModelID)
	if err != nil {
		response.Error(c, err)
		return
	}

	voiceModel, err := h.voiceModels.GetByID(ctx, modelID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := services.CheckOwner(services.EntityVoiceModel, voiceModel.UserID, userID); err != nil {
		response.Error(c, err)
		return
	}
	if voiceModel.Status != models.ModelStatusReady {
		response.Error(c, invalidField("voiceModelId", "voice model is not ready (status "+voiceModel.Status+")"))
		return
	}

	g := &models.VoiceGeneration{
		UserID:       userID,
		VoiceModelID: modelID,
		Text:         req.Text,
	}
	if err := h.generations.Create(ctx, g); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, g)
}

// ListGenerations handles GET /voice-clone/generations.
func (h *VoiceCloneHandler) ListGenerations(c *gin.Context) {
	userID, err := owner(c, "")
	if err != nil {
		response.Error(c, err)
		return
	}

	list, err := h.generations.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// UpdateGenerationStatus handles PATCH /voice-clone/generations/:id/status.
func (h *VoiceCloneHandler) UpdateGenerationStatus(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := services.ParseID("id", c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var req updateGenerationStatusRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	userID, err := owner(c, "")
	if err != nil {
		response.Error(c, err)
		return
	}

	current, err := h.generations.GetByID(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := services.CheckOwner(services.EntityGeneration, current.UserID, userID); err != nil {
		response.Error(c, err)
		return
	}

	updated, err := h.generations.UpdateStatus(ctx, id, req.Status, req.AudioURL, req.ErrorMessage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}
