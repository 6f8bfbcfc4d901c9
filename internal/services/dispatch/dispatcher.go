package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openscribe/consult-api/internal/models"
	"github.com/openscribe/consult-api/internal/services/jobs"
)

// JobQueue enqueues background work with a uniqueness guarantee
type JobQueue interface {
	EnqueueUniqueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, uniqueKey string, opts ...jobs.JobOption) (*models.Job, error)
}

// Dispatcher fires downstream side effects after a recording completes
// transcription. Enqueueing is keyed on the recording, so a redelivered
// success webhook lands on the same job instead of creating a second one.
type Dispatcher struct {
	queue  JobQueue
	logger *zap.Logger
}

// NewDispatcher creates a post-completion dispatcher
func NewDispatcher(queue JobQueue, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:  queue,
		logger: logger,
	}
}

// DispatchCompleted queues letter generation for a transcribed recording
func (d *Dispatcher) DispatchCompleted(ctx context.Context, recording *models.Recording) error {
	if recording.Status != models.RecordingStatusTranscribed {
		return fmt.Errorf("recording %s is %s, expected transcribed", recording.ID, recording.Status)
	}

	job, err := d.queue.EnqueueUniqueJob(ctx, models.JobTypeLetterGeneration,
		models.JobPayload{"recording_id": recording.ID}, "recording_id")
	if err != nil {
		return fmt.Errorf("enqueueing letter generation for recording %s: %w", recording.ID, err)
	}

	d.logger.Info("queued letter generation",
		zap.String("recording_id", recording.ID),
		zap.Uint("job_id", job.ID))

	return nil
}
