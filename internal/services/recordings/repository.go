package recordings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openscribe/consult-api/internal/models"
	"gorm.io/gorm"
)

// Repository errors
var (
	ErrRecordingNotFound  = errors.New("recording not found")
	ErrDuplicateClientRef = errors.New("recording already exists for client ref")
	// ErrStateConflict means a conditional update found the recording in a
	// different state than expected. Callers re-read and decide whether the
	// intended outcome already holds.
	ErrStateConflict = errors.New("recording state conflict")
)

// Repository defines the interface for recording persistence. All status
// mutations are compare-and-set on the current status so concurrent writers
// cannot both apply a transition.
type Repository interface {
	Create(ctx context.Context, recording *models.Recording) error
	GetByID(ctx context.Context, id string) (*models.Recording, error)
	GetByClientRef(ctx context.Context, clientRef string) (*models.Recording, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Recording, error)

	// UpdateStatusIf applies updates only when the recording's current status
	// is one of from. Returns ErrStateConflict when the guard fails.
	UpdateStatusIf(ctx context.Context, id string, from []models.RecordingStatus, updates map[string]interface{}) error

	// SoftDeleteIf removes the recording only when its status is one of from
	SoftDeleteIf(ctx context.Context, id string, from []models.RecordingStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new recording repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, recording *models.Recording) error {
	if err := r.db.WithContext(ctx).Create(recording).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateClientRef
		}
		return fmt.Errorf("creating recording: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Recording, error) {
	var recording models.Recording
	err := r.db.WithContext(ctx).First(&recording, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordingNotFound
		}
		return nil, fmt.Errorf("getting recording: %w", err)
	}
	return &recording, nil
}

func (r *repository) GetByClientRef(ctx context.Context, clientRef string) (*models.Recording, error) {
	var recording models.Recording
	err := r.db.WithContext(ctx).First(&recording, "client_ref = ?", clientRef).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordingNotFound
		}
		return nil, fmt.Errorf("getting recording by client ref: %w", err)
	}
	return &recording, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Recording, error) {
	var recordings []*models.Recording
	query := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&recordings).Error; err != nil {
		return nil, fmt.Errorf("listing recordings: %w", err)
	}
	return recordings, nil
}

func (r *repository) UpdateStatusIf(ctx context.Context, id string, from []models.RecordingStatus, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Recording{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("updating recording status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// Distinguish a missing row from a guard failure
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrStateConflict
	}

	return nil
}

func (r *repository) SoftDeleteIf(ctx context.Context, id string, from []models.RecordingStatus) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status IN ?", id, from).
		Delete(&models.Recording{})

	if result.Error != nil {
		return fmt.Errorf("deleting recording: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrStateConflict
	}

	return nil
}

// isUniqueViolation detects a SQLite unique index violation
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
