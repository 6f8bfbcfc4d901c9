package models

import "time"

// PendingStatus is the local status of a queued recording on the client
type PendingStatus string

const (
	PendingStatusPending PendingStatus = "pending"
	// PendingStatusFailed marks an entry that exceeded the retry ceiling.
	// Failed entries are retained for manual inspection, never auto-deleted.
	PendingStatusFailed PendingStatus = "failed"
)

// PendingRecording is a captured consultation awaiting upload, persisted in
// the client-local queue so nothing is lost across app restarts. ClientRef is
// generated once at capture time and reused on every retry; the server
// deduplicates on it.
type PendingRecording struct {
	ID              uint          `json:"id" gorm:"primarykey"`
	ClientRef       string        `json:"client_ref" gorm:"size:36;not null;uniqueIndex"`
	CaptureMode     CaptureMode   `json:"capture_mode" gorm:"size:16;not null"`
	ConsentBasis    ConsentBasis  `json:"consent_basis" gorm:"size:16;not null"`
	PatientID       string        `json:"patient_id,omitempty" gorm:"size:36"`
	AudioData       []byte        `json:"-" gorm:"type:blob;not null"`
	DurationSeconds float64       `json:"duration_seconds"`
	Status          PendingStatus `json:"status" gorm:"size:16;not null;default:'pending';index"`
	RetryCount      int           `json:"retry_count" gorm:"default:0"`
	EnqueuedAt      time.Time     `json:"enqueued_at" gorm:"index"`
}

// TableName specifies the table name for PendingRecording
func (PendingRecording) TableName() string {
	return "pending_recordings"
}
