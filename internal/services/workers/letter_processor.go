package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/openscribe/consult-api/internal/models"
	"github.com/openscribe/consult-api/internal/services/recordings"
	apperrors "github.com/openscribe/consult-api/pkg/errors"
)

// TranscriptLookup reads persisted transcripts
type TranscriptLookup interface {
	GetByRecordingID(ctx context.Context, recordingID string) (*models.Transcript, error)
}

// AuditSink records letter dispatch outcomes
type AuditSink interface {
	Record(ctx context.Context, recordingID, actor string, action models.AuditAction, detail string)
}

// letterPayload is the document-generation request sent downstream
type letterPayload struct {
	RecordingID    string  `json:"recording_id"`
	PatientID      string  `json:"patient_id"`
	ConsultationID string  `json:"consultation_id,omitempty"`
	CaptureMode    string  `json:"capture_mode"`
	Language       string  `json:"language,omitempty"`
	Transcript     string  `json:"transcript"`
	WordCount      int     `json:"word_count"`
	MeanConfidence float64 `json:"mean_confidence"`
}

// LetterGenerationProcessor forwards completed transcripts to the downstream
// letter-generation service. When no downstream URL is configured the job
// completes as a no-op so the pipeline still drains in minimal deployments.
type LetterGenerationProcessor struct {
	lookup        RecordingLookup
	transcripts   TranscriptLookup
	audit         AuditSink
	downstreamURL string
	httpClient    *http.Client
}

// NewLetterGenerationProcessor creates a letter generation processor
func NewLetterGenerationProcessor(lookup RecordingLookup, transcripts TranscriptLookup, audit AuditSink, downstreamURL string) *LetterGenerationProcessor {
	return &LetterGenerationProcessor{
		lookup:        lookup,
		transcripts:   transcripts,
		audit:         audit,
		downstreamURL: downstreamURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (p *LetterGenerationProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypeLetterGeneration
}

func (p *LetterGenerationProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	recordingID, ok := job.GetPayloadString("recording_id")
	if !ok {
		return fmt.Errorf("job %d has no recording_id in payload", job.ID)
	}

	recording, err := p.lookup.GetByID(ctx, recordingID)
	if err != nil {
		if errors.Is(err, recordings.ErrRecordingNotFound) {
			log.Printf("[DEBUG] Recording %s no longer exists, skipping letter generation", recordingID)
			return nil
		}
		return fmt.Errorf("loading recording %s: %w", recordingID, err)
	}

	if recording.Status != models.RecordingStatusTranscribed {
		return fmt.Errorf("recording %s is %s, expected transcribed", recordingID, recording.Status)
	}

	transcript, err := p.transcripts.GetByRecordingID(ctx, recordingID)
	if err != nil {
		return fmt.Errorf("loading transcript for recording %s: %w", recordingID, err)
	}

	if p.downstreamURL == "" {
		log.Printf("[DEBUG] No downstream URL configured, skipping letter generation for recording %s", recordingID)
		return nil
	}

	body, err := json.Marshal(letterPayload{
		RecordingID:    recording.ID,
		PatientID:      recording.PatientID,
		ConsultationID: recording.ConsultationID,
		CaptureMode:    string(recording.CaptureMode),
		Language:       transcript.Language,
		Transcript:     transcript.Text,
		WordCount:      transcript.WordCount,
		MeanConfidence: transcript.MeanConfidence,
	})
	if err != nil {
		return fmt.Errorf("marshaling letter payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.downstreamURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building letter request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperrors.UpstreamUnavailable("letter-service", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.UpstreamUnavailable("letter-service",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	p.audit.Record(ctx, recordingID, "system", models.AuditActionDispatched, "")
	log.Printf("[DEBUG] Letter generation dispatched for recording %s", recordingID)
	return nil
}
