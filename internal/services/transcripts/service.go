package transcripts

import (
	"context"
	"errors"

	"github.com/openscribe/consult-api/internal/models"
)

// Service provides transcript persistence with upsert-by-recording semantics
type Service struct {
	repo Repository
}

// NewService creates a new transcript service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Save stores the transcript, replacing any existing one for the same
// recording. A replayed webhook delivery therefore cannot produce a second
// transcript row.
func (s *Service) Save(ctx context.Context, transcript *models.Transcript) error {
	if transcript == nil {
		return errors.New("transcript cannot be nil")
	}

	existing, err := s.repo.GetByRecordingID(ctx, transcript.RecordingID)
	if err != nil && !errors.Is(err, ErrTranscriptNotFound) {
		return err
	}

	if existing != nil {
		existing.Text = transcript.Text
		existing.Language = transcript.Language
		existing.Turns = transcript.Turns
		existing.WordCount = transcript.WordCount
		existing.MeanConfidence = transcript.MeanConfidence
		return s.repo.Update(ctx, existing)
	}

	return s.repo.Create(ctx, transcript)
}

// GetByRecordingID retrieves the transcript for a recording
func (s *Service) GetByRecordingID(ctx context.Context, recordingID string) (*models.Transcript, error) {
	return s.repo.GetByRecordingID(ctx, recordingID)
}

// DeleteByRecordingID removes the transcript for a recording
func (s *Service) DeleteByRecordingID(ctx context.Context, recordingID string) error {
	return s.repo.Delete(ctx, recordingID)
}
