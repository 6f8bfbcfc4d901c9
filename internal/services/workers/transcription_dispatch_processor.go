package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/openscribe/consult-api/internal/models"
	"github.com/openscribe/consult-api/internal/services/provider"
	"github.com/openscribe/consult-api/internal/services/recordings"
)

// RecordingLookup reads recordings without owner scoping; background
// processors act as the system, not on behalf of a clinician.
type RecordingLookup interface {
	GetByID(ctx context.Context, id string) (*models.Recording, error)
}

// Lifecycle covers the state transitions background processors drive
type Lifecycle interface {
	MarkTranscribing(ctx context.Context, id string) error
}

// AudioPresigner issues time-limited download URLs for stored audio
type AudioPresigner interface {
	PresignDownload(ctx context.Context, key string) (string, time.Time, error)
}

// TranscriptionSubmitter submits jobs to the transcription provider
type TranscriptionSubmitter interface {
	Submit(ctx context.Context, req provider.SubmitRequest) (*provider.SubmitResponse, error)
}

// TranscriptionDispatchProcessor hands uploaded recordings to the
// transcription provider and flips them to transcribing
type TranscriptionDispatchProcessor struct {
	lookup    RecordingLookup
	lifecycle Lifecycle
	presigner AudioPresigner
	submitter TranscriptionSubmitter
}

// NewTranscriptionDispatchProcessor creates a transcription dispatch processor
func NewTranscriptionDispatchProcessor(lookup RecordingLookup, lifecycle Lifecycle, presigner AudioPresigner, submitter TranscriptionSubmitter) *TranscriptionDispatchProcessor {
	return &TranscriptionDispatchProcessor{
		lookup:    lookup,
		lifecycle: lifecycle,
		presigner: presigner,
		submitter: submitter,
	}
}

func (p *TranscriptionDispatchProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypeTranscriptionDispatch
}

func (p *TranscriptionDispatchProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	recordingID, ok := job.GetPayloadString("recording_id")
	if !ok {
		return fmt.Errorf("job %d has no recording_id in payload", job.ID)
	}

	recording, err := p.lookup.GetByID(ctx, recordingID)
	if err != nil {
		if errors.Is(err, recordings.ErrRecordingNotFound) {
			// Recording deleted between enqueue and claim; nothing to dispatch
			log.Printf("[DEBUG] Recording %s no longer exists, skipping dispatch", recordingID)
			return nil
		}
		return fmt.Errorf("loading recording %s: %w", recordingID, err)
	}

	// A retried job can find the recording already past UPLOADED
	if recording.Status != models.RecordingStatusUploaded {
		log.Printf("[DEBUG] Recording %s is %s, dispatch already handled", recordingID, recording.Status)
		return nil
	}

	audioURL, _, err := p.presigner.PresignDownload(ctx, recording.StorageKey)
	if err != nil {
		return fmt.Errorf("presigning audio for recording %s: %w", recordingID, err)
	}

	resp, err := p.submitter.Submit(ctx, provider.SubmitRequest{
		RecordingID: recordingID,
		AudioURL:    audioURL,
	})
	if err != nil {
		return fmt.Errorf("submitting recording %s to provider: %w", recordingID, err)
	}

	if err := p.lifecycle.MarkTranscribing(ctx, recordingID); err != nil {
		// The provider's callback can land before this write; the recording
		// having moved on means the dispatch succeeded.
		if errors.Is(err, recordings.ErrAlreadyHandled) {
			return nil
		}
		return fmt.Errorf("marking recording %s transcribing: %w", recordingID, err)
	}

	log.Printf("[DEBUG] Recording %s submitted to provider (job %s)", recordingID, resp.JobID)
	return nil
}
