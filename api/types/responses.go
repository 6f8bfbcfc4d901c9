package types

import (
	"time"

	"github.com/openscribe/consult-api/internal/models"
)

// Status constants for API responses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// UploadTargetDTO is the time-limited destination for audio bytes
type UploadTargetDTO struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RecordingResponse for a single recording
type RecordingResponse struct {
	BaseResponse
	Recording    *models.Recording `json:"recording"`
	UploadTarget *UploadTargetDTO  `json:"upload_target,omitempty"`
}

// RecordingsResponse for recording lists
type RecordingsResponse struct {
	BaseResponse
	Recordings []*models.Recording `json:"recordings"`
	Count      int                 `json:"count"`
}

// TranscriptResponse for transcript retrieval
type TranscriptResponse struct {
	BaseResponse
	Transcript *models.Transcript `json:"transcript"`
}

// AudioResponse for audio download URLs
type AudioResponse struct {
	BaseResponse
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuditTrailResponse for a recording's audit trail
type AuditTrailResponse struct {
	BaseResponse
	Events []*models.AuditEvent `json:"events"`
	Count  int                  `json:"count"`
}

// WebhookAckResponse acknowledges a provider callback
type WebhookAckResponse struct {
	BaseResponse
	Duplicate bool `json:"duplicate,omitempty"`
}

// ErrorResponse for detailed error information
type ErrorResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}
