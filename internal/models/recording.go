package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordingStatus represents the lifecycle state of a recording
type RecordingStatus string

const (
	RecordingStatusUploading    RecordingStatus = "UPLOADING"
	RecordingStatusUploaded     RecordingStatus = "UPLOADED"
	RecordingStatusTranscribing RecordingStatus = "TRANSCRIBING"
	RecordingStatusTranscribed  RecordingStatus = "TRANSCRIBED"
	RecordingStatusFailed       RecordingStatus = "FAILED"
)

// CaptureMode represents how the consultation audio was captured
type CaptureMode string

const (
	CaptureModeAmbient   CaptureMode = "AMBIENT"
	CaptureModeDictation CaptureMode = "DICTATION"
)

// ConsentBasis represents the patient's consent basis for recording
type ConsentBasis string

const (
	ConsentBasisVerbal   ConsentBasis = "VERBAL"
	ConsentBasisWritten  ConsentBasis = "WRITTEN"
	ConsentBasisStanding ConsentBasis = "STANDING"
)

// Recording is the canonical entity for one captured consultation audio
// session. Status only moves along the lifecycle graph; every mutation goes
// through a conditional update keyed on the current status.
type Recording struct {
	ID             string          `json:"id" gorm:"primaryKey;size:36"`
	OwnerID        string          `json:"owner_id" gorm:"size:36;not null;index"`
	PatientID      string          `json:"patient_id,omitempty" gorm:"size:36;index"`
	ConsultationID string          `json:"consultation_id,omitempty" gorm:"size:36"`
	ClientRef      string          `json:"client_ref" gorm:"size:36;not null;uniqueIndex"`
	CaptureMode    CaptureMode     `json:"capture_mode" gorm:"size:16;not null"`
	ConsentBasis   ConsentBasis    `json:"consent_basis" gorm:"size:16;not null"`
	Status         RecordingStatus `json:"status" gorm:"size:16;not null;default:'UPLOADING';index"`

	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int64   `json:"size_bytes"`
	// StorageKey is set exactly once, when the upload is confirmed.
	StorageKey string `json:"storage_key,omitempty"`

	// ErrorCode/ErrorMessage are set only in FAILED state and are mutually
	// exclusive with a persisted transcript.
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// validTransitions is the lifecycle graph. A webhook outcome is accepted from
// UPLOADED as well as TRANSCRIBING: the provider callback can race ahead of
// the dispatch-confirmation write.
var validTransitions = map[RecordingStatus][]RecordingStatus{
	RecordingStatusUploading:    {RecordingStatusUploaded},
	RecordingStatusUploaded:     {RecordingStatusTranscribing, RecordingStatusTranscribed, RecordingStatusFailed},
	RecordingStatusTranscribing: {RecordingStatusTranscribed, RecordingStatusFailed},
	RecordingStatusTranscribed:  {},
	RecordingStatusFailed:       {},
}

// CanTransitionTo reports whether the lifecycle graph allows moving to next.
func (r *Recording) CanTransitionTo(next RecordingStatus) bool {
	for _, allowed := range validTransitions[r.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the recording reached a terminal state
func (r *Recording) IsTerminal() bool {
	return r.Status == RecordingStatusTranscribed || r.Status == RecordingStatusFailed
}

// Deletable reports whether the recording may be removed. Recordings that are
// mid-transcription or successfully transcribed are retained.
func (r *Recording) Deletable() bool {
	switch r.Status {
	case RecordingStatusUploading, RecordingStatusUploaded, RecordingStatusFailed:
		return true
	default:
		return false
	}
}

// BeforeCreate assigns an id when the caller did not provide one
func (r *Recording) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// TableName specifies the table name for GORM
func (Recording) TableName() string {
	return "recordings"
}
