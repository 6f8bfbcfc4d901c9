package jobs

import (
	"context"

	"github.com/openscribe/consult-api/internal/models"
)

// Service defines the interface for job queue operations
type Service interface {
	// EnqueueJob adds a job to the queue
	EnqueueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, opts ...JobOption) (*models.Job, error)

	// EnqueueUniqueJob adds a job only when no job of the same type exists for
	// the payload value under uniqueKey; otherwise the existing job is
	// returned, even when it already finished. This is what makes downstream
	// dispatch exactly-once per recording.
	EnqueueUniqueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, uniqueKey string, opts ...JobOption) (*models.Job, error)

	// GetJob retrieves a job by ID
	GetJob(ctx context.Context, jobID uint) (*models.Job, error)

	// GetJobForRecording finds a job of the given type for a recording
	GetJobForRecording(ctx context.Context, jobType models.JobType, recordingID string) (*models.Job, error)

	// ClaimNextJob atomically claims the next available job for a worker
	ClaimNextJob(ctx context.Context, workerID string, jobTypes []models.JobType) (*models.Job, error)

	// CompleteJob marks a job as completed
	CompleteJob(ctx context.Context, jobID uint) error

	// FailJob marks a job as failed, moving it to permanently_failed once the
	// retry ceiling is reached
	FailJob(ctx context.Context, jobID uint, err error) error

	// ReleaseJob returns a processing job to pending (e.g. worker shutdown)
	ReleaseJob(ctx context.Context, jobID uint) error
}

// jobConfig holds per-job options
type jobConfig struct {
	MaxRetries int
}

// JobOption configures job creation
type JobOption func(*jobConfig)

// WithMaxRetries sets the retry ceiling for a job
func WithMaxRetries(n int) JobOption {
	return func(cfg *jobConfig) {
		if n > 0 {
			cfg.MaxRetries = n
		}
	}
}
