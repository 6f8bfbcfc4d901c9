package audit

import (
	"context"
	"fmt"
	"log"

	"github.com/openscribe/consult-api/internal/models"
	"gorm.io/gorm"
)

// Repository defines the interface for audit event persistence. Events are
// append-only.
type Repository interface {
	Create(ctx context.Context, event *models.AuditEvent) error
	ListByRecording(ctx context.Context, recordingID string) ([]*models.AuditEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new audit repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, event *models.AuditEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("creating audit event: %w", err)
	}
	return nil
}

func (r *repository) ListByRecording(ctx context.Context, recordingID string) ([]*models.AuditEvent, error) {
	var events []*models.AuditEvent
	err := r.db.WithContext(ctx).
		Where("recording_id = ?", recordingID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	return events, nil
}

// Service is the audit log sink. Recording never fails the caller: an audit
// write error is logged, not propagated, so a lifecycle transition cannot be
// rolled back by its own audit trail.
type Service struct {
	repo Repository
}

// NewService creates a new audit service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an audit event
func (s *Service) Record(ctx context.Context, recordingID, actor string, action models.AuditAction, detail string) {
	event := &models.AuditEvent{
		RecordingID: recordingID,
		Actor:       actor,
		Action:      action,
		Detail:      detail,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		log.Printf("[ERROR] Failed to write audit event %s for recording %s: %v", action, recordingID, err)
	}
}

// ListByRecording returns the audit trail for a recording, oldest first
func (s *Service) ListByRecording(ctx context.Context, recordingID string) ([]*models.AuditEvent, error) {
	return s.repo.ListByRecording(ctx, recordingID)
}
