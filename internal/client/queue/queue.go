package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/openscribe/consult-api/internal/database"
	"github.com/openscribe/consult-api/internal/models"
	apperrors "github.com/openscribe/consult-api/pkg/errors"
)

// Queue errors
var (
	ErrEntryNotFound  = errors.New("queue entry not found")
	ErrDuplicateEntry = errors.New("queue entry already exists for client ref")
)

// Queue is the durable client-side recording queue. Entries survive process
// restarts; a capture is only lost if the device storage itself is lost.
type Queue struct {
	db           *database.DB
	retryCeiling int
}

// Option configures the queue
type Option func(*Queue)

// WithRetryCeiling sets the per-entry retry ceiling
func WithRetryCeiling(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.retryCeiling = n
		}
	}
}

// Open opens (or creates) the queue database at path
func Open(path string, opts ...Option) (*Queue, error) {
	db, err := database.Initialize(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening queue database: %w", err)
	}

	if err := db.AutoMigrate(&models.PendingRecording{}); err != nil {
		return nil, fmt.Errorf("migrating queue schema: %w", err)
	}

	q := &Queue{
		db:           db,
		retryCeiling: 5,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Close closes the queue database
func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue durably persists a captured recording before anything else happens
// to it. Fsync-backed commit: once this returns, the capture survives a crash.
func (q *Queue) Enqueue(ctx context.Context, entry *models.PendingRecording) error {
	if entry.ClientRef == "" {
		return fmt.Errorf("client ref is required")
	}
	if len(entry.AudioData) == 0 {
		return fmt.Errorf("audio data is required")
	}

	entry.Status = models.PendingStatusPending
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now().UTC()
	}

	if err := q.db.DB.WithContext(ctx).Create(entry).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEntry
		}
		if isDiskFull(err) {
			return apperrors.StorageFull(err)
		}
		return fmt.Errorf("enqueueing recording: %w", err)
	}

	log.Printf("[DEBUG] Enqueued recording %s (%d bytes)", entry.ClientRef, len(entry.AudioData))
	return nil
}

// PeekPending returns pending entries in FIFO order. Entries past the retry
// ceiling are excluded; they stay on disk with status failed.
func (q *Queue) PeekPending(ctx context.Context, limit int) ([]*models.PendingRecording, error) {
	var entries []*models.PendingRecording
	query := q.db.DB.WithContext(ctx).
		Where("status = ?", models.PendingStatusPending).
		Order("enqueued_at ASC, id ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("reading pending entries: %w", err)
	}
	return entries, nil
}

// MarkSynced removes a successfully uploaded entry. Idempotent: removing an
// entry that is already gone is not an error.
func (q *Queue) MarkSynced(ctx context.Context, clientRef string) error {
	err := q.db.DB.WithContext(ctx).
		Where("client_ref = ?", clientRef).
		Delete(&models.PendingRecording{}).Error
	if err != nil {
		return fmt.Errorf("removing synced entry: %w", err)
	}

	log.Printf("[DEBUG] Recording %s synced and removed from queue", clientRef)
	return nil
}

// IncrementRetry bumps an entry's retry count. When the ceiling is reached
// the entry flips to failed and a retry-ceiling error is returned; the entry
// is retained for inspection, never deleted.
func (q *Queue) IncrementRetry(ctx context.Context, clientRef string) error {
	// Atomic in-place increment: two writers bumping the same entry both land
	res := q.db.DB.WithContext(ctx).
		Model(&models.PendingRecording{}).
		Where("client_ref = ?", clientRef).
		Update("retry_count", gorm.Expr("retry_count + 1"))
	if res.Error != nil {
		return fmt.Errorf("updating retry count: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrEntryNotFound
	}

	var entry models.PendingRecording
	if err := q.db.DB.WithContext(ctx).
		First(&entry, "client_ref = ?", clientRef).Error; err != nil {
		return fmt.Errorf("reading updated entry: %w", err)
	}

	if entry.RetryCount >= q.retryCeiling {
		err := q.db.DB.WithContext(ctx).
			Model(&models.PendingRecording{}).
			Where("client_ref = ?", clientRef).
			Update("status", models.PendingStatusFailed).Error
		if err != nil {
			return fmt.Errorf("marking entry failed: %w", err)
		}
		log.Printf("[ERROR] Recording %s exceeded retry ceiling (%d attempts), retained as failed", clientRef, entry.RetryCount)
		return apperrors.RetryCeilingExceeded(clientRef, entry.RetryCount)
	}

	log.Printf("[DEBUG] Recording %s retry %d/%d", clientRef, entry.RetryCount, q.retryCeiling)
	return nil
}

// Failed returns entries that exceeded the retry ceiling
func (q *Queue) Failed(ctx context.Context) ([]*models.PendingRecording, error) {
	var entries []*models.PendingRecording
	err := q.db.DB.WithContext(ctx).
		Where("status = ?", models.PendingStatusFailed).
		Order("enqueued_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("reading failed entries: %w", err)
	}
	return entries, nil
}

// PendingCount returns the number of entries awaiting sync
func (q *Queue) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.DB.WithContext(ctx).
		Model(&models.PendingRecording{}).
		Where("status = ?", models.PendingStatusPending).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting pending entries: %w", err)
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isDiskFull detects SQLite disk exhaustion
func isDiskFull(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database or disk is full") ||
		strings.Contains(msg, "no space left on device")
}
