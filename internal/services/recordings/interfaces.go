package recordings

import (
	"context"
	"time"

	"github.com/openscribe/consult-api/internal/models"
	"github.com/openscribe/consult-api/internal/services/jobs"
)

// CreateParams is the input for creating a recording at capture-intent time
type CreateParams struct {
	ClientRef       string
	CaptureMode     models.CaptureMode
	ConsentBasis    models.ConsentBasis
	PatientID       string
	ConsultationID  string
	DurationSeconds float64
}

// UploadTarget is a time-limited destination for the audio bytes
type UploadTarget struct {
	URL       string
	ExpiresAt time.Time
}

// TranscriptResult is the structured payload extracted from a provider
// success callback
type TranscriptResult struct {
	Text           string
	Language       string
	Turns          models.SpeakerTurns
	WordCount      int
	MeanConfidence float64
}

// Service is the lifecycle authority for recordings. Every mutation is a
// validated state-machine transition.
type Service interface {
	// Create registers a recording in UPLOADING state and issues an upload
	// target. ClientRef is the idempotency key: a replayed create returns the
	// existing recording instead of a duplicate.
	Create(ctx context.Context, ownerID string, params CreateParams) (*models.Recording, *UploadTarget, error)

	// ConfirmUpload verifies the stored object and moves UPLOADING to
	// UPLOADED, then queues transcription dispatch. Confirming an
	// already-uploaded recording returns it unchanged.
	ConfirmUpload(ctx context.Context, ownerID, id string, sizeBytes int64) (*models.Recording, error)

	// MarkTranscribing moves UPLOADED to TRANSCRIBING with at-most-once
	// semantics; the loser of a concurrent transition observes
	// ErrAlreadyHandled when the recording already moved on.
	MarkTranscribing(ctx context.Context, id string) error

	// CompleteFromWebhook persists the transcript and moves the recording to
	// TRANSCRIBED, then fires the post-completion dispatcher. Safe to call
	// more than once; only the first caller applies the transition.
	CompleteFromWebhook(ctx context.Context, id string, result TranscriptResult) error

	// FailFromWebhook records the provider error and moves the recording to
	// FAILED.
	FailFromWebhook(ctx context.Context, id, errorCode, errorMessage string) error

	GetByID(ctx context.Context, ownerID, id string) (*models.Recording, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Recording, error)

	// DownloadTarget issues a time-limited download URL for the stored audio
	DownloadTarget(ctx context.Context, ownerID, id string) (*UploadTarget, error)

	// Delete soft-deletes a recording, guarded by status: recordings that are
	// transcribing or transcribed are retained.
	Delete(ctx context.Context, ownerID, id string) error
}

// BlobStore issues time-limited upload/download URLs and verifies stored
// objects. Implemented by the S3 client; faked in tests.
type BlobStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, time.Time, error)
	PresignDownload(ctx context.Context, key string) (string, time.Time, error)
	// Verify confirms the object exists and returns its size in bytes
	Verify(ctx context.Context, key string) (int64, error)
}

// TranscriptStore persists structured transcripts
type TranscriptStore interface {
	Save(ctx context.Context, transcript *models.Transcript) error
	DeleteByRecordingID(ctx context.Context, recordingID string) error
}

// AuditLog is the append-only audit sink
type AuditLog interface {
	Record(ctx context.Context, recordingID, actor string, action models.AuditAction, detail string)
}

// Dispatcher fires downstream triggers after a successful transcription
type Dispatcher interface {
	DispatchCompleted(ctx context.Context, recording *models.Recording) error
}

// JobQueue enqueues background work with a uniqueness guarantee
type JobQueue interface {
	EnqueueUniqueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, uniqueKey string, opts ...jobs.JobOption) (*models.Job, error)
}
