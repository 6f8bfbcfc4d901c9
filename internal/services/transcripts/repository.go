package transcripts

import (
	"context"
	"errors"
	"fmt"

	"github.com/openscribe/consult-api/internal/models"
	"gorm.io/gorm"
)

// ErrTranscriptNotFound is returned when no transcript exists for a recording
var ErrTranscriptNotFound = errors.New("transcript not found")

// Repository defines the interface for transcript persistence
type Repository interface {
	Create(ctx context.Context, transcript *models.Transcript) error
	GetByRecordingID(ctx context.Context, recordingID string) (*models.Transcript, error)
	Update(ctx context.Context, transcript *models.Transcript) error
	Delete(ctx context.Context, recordingID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new transcript repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, transcript *models.Transcript) error {
	if err := r.db.WithContext(ctx).Create(transcript).Error; err != nil {
		return fmt.Errorf("creating transcript: %w", err)
	}
	return nil
}

func (r *repository) GetByRecordingID(ctx context.Context, recordingID string) (*models.Transcript, error) {
	var transcript models.Transcript
	err := r.db.WithContext(ctx).First(&transcript, "recording_id = ?", recordingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("getting transcript: %w", err)
	}
	return &transcript, nil
}

func (r *repository) Update(ctx context.Context, transcript *models.Transcript) error {
	if err := r.db.WithContext(ctx).Save(transcript).Error; err != nil {
		return fmt.Errorf("updating transcript: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, recordingID string) error {
	if err := r.db.WithContext(ctx).Where("recording_id = ?", recordingID).Delete(&models.Transcript{}).Error; err != nil {
		return fmt.Errorf("deleting transcript: %w", err)
	}
	return nil
}
