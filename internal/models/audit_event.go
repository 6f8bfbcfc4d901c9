package models

import "time"

// AuditAction identifies the kind of lifecycle event being recorded
type AuditAction string

const (
	AuditActionCreated             AuditAction = "recording.created"
	AuditActionUploadConfirmed     AuditAction = "recording.upload_confirmed"
	AuditActionTranscriptionQueued AuditAction = "recording.transcription_queued"
	AuditActionTranscribed         AuditAction = "recording.transcribed"
	AuditActionFailed              AuditAction = "recording.failed"
	AuditActionDeleted             AuditAction = "recording.deleted"
	AuditActionDispatched          AuditAction = "recording.letter_dispatched"
	AuditActionWebhookRejected     AuditAction = "webhook.rejected"
)

// AuditEvent is an append-only record of a lifecycle event. Rows are never
// updated or deleted.
type AuditEvent struct {
	ID          uint        `json:"id" gorm:"primarykey"`
	RecordingID string      `json:"recording_id" gorm:"size:36;index"`
	Actor       string      `json:"actor" gorm:"size:64"`
	Action      AuditAction `json:"action" gorm:"size:64;not null;index"`
	Detail      string      `json:"detail,omitempty" gorm:"type:text"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TableName specifies the table name for AuditEvent
func (AuditEvent) TableName() string {
	return "audit_events"
}
