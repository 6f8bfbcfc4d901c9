package recordings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/openscribe/consult-api/internal/models"
)

const audioContentType = "audio/ogg"

// ErrAlreadyHandled signals a transition attempt whose intended outcome was
// already applied by a concurrent writer. Callers treat it as success.
var ErrAlreadyHandled = errors.New("transition already applied")

// ErrUploadTooLarge signals a confirmed size above the configured ceiling
var ErrUploadTooLarge = errors.New("upload exceeds configured size ceiling")

type service struct {
	repo        Repository
	blobs       BlobStore
	transcripts TranscriptStore
	audit       AuditLog
	dispatcher  Dispatcher
	queue       JobQueue

	maxUploadBytes int64
}

// Option configures the service
type Option func(*service)

// WithMaxUploadBytes sets the upload size ceiling
func WithMaxUploadBytes(n int64) Option {
	return func(s *service) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// NewService creates the recording lifecycle service
func NewService(repo Repository, blobs BlobStore, transcripts TranscriptStore, audit AuditLog, dispatcher Dispatcher, queue JobQueue, opts ...Option) Service {
	s := &service{
		repo:           repo,
		blobs:          blobs,
		transcripts:    transcripts,
		audit:          audit,
		dispatcher:     dispatcher,
		queue:          queue,
		maxUploadBytes: 512 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, ownerID string, params CreateParams) (*models.Recording, *UploadTarget, error) {
	if params.ClientRef == "" {
		return nil, nil, fmt.Errorf("client ref is required")
	}

	existing, err := s.repo.GetByClientRef(ctx, params.ClientRef)
	if err == nil {
		return s.reuseExisting(ctx, ownerID, existing)
	}
	if !errors.Is(err, ErrRecordingNotFound) {
		return nil, nil, fmt.Errorf("checking client ref: %w", err)
	}

	recording := &models.Recording{
		OwnerID:         ownerID,
		PatientID:       params.PatientID,
		ConsultationID:  params.ConsultationID,
		ClientRef:       params.ClientRef,
		CaptureMode:     params.CaptureMode,
		ConsentBasis:    params.ConsentBasis,
		Status:          models.RecordingStatusUploading,
		DurationSeconds: params.DurationSeconds,
	}

	if err := s.repo.Create(ctx, recording); err != nil {
		if errors.Is(err, ErrDuplicateClientRef) {
			// Lost a create race against a retried request for the same
			// client ref; reuse the winner's row.
			winner, getErr := s.repo.GetByClientRef(ctx, params.ClientRef)
			if getErr != nil {
				return nil, nil, fmt.Errorf("resolving duplicate client ref: %w", getErr)
			}
			return s.reuseExisting(ctx, ownerID, winner)
		}
		return nil, nil, err
	}

	target, err := s.presignUpload(ctx, recording)
	if err != nil {
		return nil, nil, err
	}

	s.audit.Record(ctx, recording.ID, ownerID, models.AuditActionCreated, string(recording.CaptureMode))
	log.Printf("[DEBUG] Created recording %s for owner %s (client ref %s)", recording.ID, ownerID, recording.ClientRef)

	return recording, target, nil
}

// reuseExisting recognizes a retried create for an already-registered
// recording: the caller gets the existing row and, while it is still
// awaiting bytes, a fresh upload target.
func (s *service) reuseExisting(ctx context.Context, ownerID string, existing *models.Recording) (*models.Recording, *UploadTarget, error) {
	if existing.OwnerID != ownerID {
		return nil, nil, ErrRecordingNotFound
	}

	var target *UploadTarget
	if existing.Status == models.RecordingStatusUploading {
		var err error
		target, err = s.presignUpload(ctx, existing)
		if err != nil {
			return nil, nil, err
		}
	}

	log.Printf("[DEBUG] Reusing recording %s for retried create (status %s)", existing.ID, existing.Status)
	return existing, target, nil
}

func (s *service) ConfirmUpload(ctx context.Context, ownerID, id string, sizeBytes int64) (*models.Recording, error) {
	recording, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if recording.OwnerID != ownerID {
		return nil, ErrRecordingNotFound
	}

	// Retried confirm after a successful one: same recording, unchanged
	if recording.Status != models.RecordingStatusUploading {
		if recording.StorageKey != "" {
			log.Printf("[DEBUG] Recording %s already confirmed (status %s), treating as replay", id, recording.Status)
			return recording, nil
		}
		return nil, ErrStateConflict
	}

	if sizeBytes <= 0 {
		return nil, fmt.Errorf("size must be positive")
	}
	if sizeBytes > s.maxUploadBytes {
		return nil, ErrUploadTooLarge
	}

	key := s.storageKey(recording)
	storedSize, err := s.blobs.Verify(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("verifying stored object: %w", err)
	}
	if storedSize > s.maxUploadBytes {
		return nil, ErrUploadTooLarge
	}

	err = s.repo.UpdateStatusIf(ctx, id,
		[]models.RecordingStatus{models.RecordingStatusUploading},
		map[string]interface{}{
			"status":      models.RecordingStatusUploaded,
			"storage_key": key,
			"size_bytes":  storedSize,
		})
	if err != nil {
		if errors.Is(err, ErrStateConflict) {
			// A concurrent confirm won; if the intended outcome holds, this
			// call is a benign replay.
			current, getErr := s.repo.GetByID(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			if current.Status != models.RecordingStatusUploading && current.StorageKey != "" {
				return current, nil
			}
			return nil, ErrStateConflict
		}
		return nil, err
	}

	s.audit.Record(ctx, id, ownerID, models.AuditActionUploadConfirmed, fmt.Sprintf("%d bytes", storedSize))

	if _, err := s.queue.EnqueueUniqueJob(ctx, models.JobTypeTranscriptionDispatch,
		models.JobPayload{"recording_id": id}, "recording_id"); err != nil {
		// The upload is confirmed either way; dispatch will be re-queued by
		// an operator retry rather than failing the confirm.
		log.Printf("[ERROR] Failed to enqueue transcription dispatch for recording %s: %v", id, err)
	} else {
		s.audit.Record(ctx, id, "system", models.AuditActionTranscriptionQueued, "")
	}

	return s.repo.GetByID(ctx, id)
}

func (s *service) MarkTranscribing(ctx context.Context, id string) error {
	err := s.repo.UpdateStatusIf(ctx, id,
		[]models.RecordingStatus{models.RecordingStatusUploaded},
		map[string]interface{}{"status": models.RecordingStatusTranscribing})
	if err == nil {
		log.Printf("[DEBUG] Recording %s dispatched for transcription", id)
		return nil
	}
	if !errors.Is(err, ErrStateConflict) {
		return err
	}

	current, getErr := s.repo.GetByID(ctx, id)
	if getErr != nil {
		return getErr
	}
	// The webhook can race ahead of this write; a recording that already
	// moved past UPLOADED needs no dispatch confirmation.
	if current.Status == models.RecordingStatusTranscribing || current.IsTerminal() {
		log.Printf("[DEBUG] Recording %s already at %s, dispatch confirmation is a no-op", id, current.Status)
		return ErrAlreadyHandled
	}
	return ErrStateConflict
}

func (s *service) CompleteFromWebhook(ctx context.Context, id string, result TranscriptResult) error {
	recording, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if recording.IsTerminal() {
		// The redelivery may follow a dispatch failure on the first delivery;
		// the unique-key enqueue makes re-firing a no-op when the letter job
		// already exists, and a recovery when it does not.
		if recording.Status == models.RecordingStatusTranscribed {
			if err := s.dispatcher.DispatchCompleted(ctx, recording); err != nil {
				return fmt.Errorf("dispatching completion: %w", err)
			}
		}
		log.Printf("[DEBUG] Recording %s already terminal (%s), webhook success is a duplicate", id, recording.Status)
		return ErrAlreadyHandled
	}
	// Rejected deliveries must not mutate state, so the guard runs before
	// anything is written. No bytes were confirmed for an UPLOADING
	// recording; the provider cannot have transcribed it.
	if recording.Status == models.RecordingStatusUploading {
		return ErrStateConflict
	}

	// Transcript is persisted before the status flip so a TRANSCRIBED
	// recording always has its transcript on disk.
	transcript := &models.Transcript{
		RecordingID:    id,
		Text:           result.Text,
		Language:       result.Language,
		Turns:          result.Turns,
		WordCount:      result.WordCount,
		MeanConfidence: result.MeanConfidence,
	}
	if err := s.transcripts.Save(ctx, transcript); err != nil {
		return fmt.Errorf("persisting transcript: %w", err)
	}

	now := time.Now().UTC()
	err = s.repo.UpdateStatusIf(ctx, id,
		[]models.RecordingStatus{models.RecordingStatusUploaded, models.RecordingStatusTranscribing},
		map[string]interface{}{
			"status":        models.RecordingStatusTranscribed,
			"error_code":    "",
			"error_message": "",
			"processed_at":  &now,
		})
	if err != nil {
		if errors.Is(err, ErrStateConflict) {
			current, getErr := s.repo.GetByID(ctx, id)
			if getErr != nil {
				return getErr
			}
			if current.Status == models.RecordingStatusTranscribed {
				return ErrAlreadyHandled
			}
			if current.Status == models.RecordingStatusFailed {
				// A failure outcome won the race; a failed recording never
				// carries a transcript.
				if delErr := s.transcripts.DeleteByRecordingID(ctx, id); delErr != nil {
					log.Printf("[ERROR] Failed to remove transcript for failed recording %s: %v", id, delErr)
				}
				return ErrAlreadyHandled
			}
			// The transition did not land; a recording that was never
			// transcribed must not keep the transcript.
			if delErr := s.transcripts.DeleteByRecordingID(ctx, id); delErr != nil {
				log.Printf("[ERROR] Failed to remove transcript for recording %s: %v", id, delErr)
			}
			return ErrStateConflict
		}
		return err
	}

	s.audit.Record(ctx, id, "webhook", models.AuditActionTranscribed, fmt.Sprintf("%d words", result.WordCount))

	recording, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.dispatcher.DispatchCompleted(ctx, recording); err != nil {
		// Transition is committed; the dispatcher's unique-key enqueue means
		// a provider redelivery cannot fire it twice, so surface the error
		// for the provider to retry the delivery.
		return fmt.Errorf("dispatching completion: %w", err)
	}

	log.Printf("[DEBUG] Recording %s transcribed (%d words)", id, result.WordCount)
	return nil
}

func (s *service) FailFromWebhook(ctx context.Context, id, errorCode, errorMessage string) error {
	recording, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if recording.IsTerminal() {
		log.Printf("[DEBUG] Recording %s already terminal (%s), webhook failure is a duplicate", id, recording.Status)
		return ErrAlreadyHandled
	}

	now := time.Now().UTC()
	err = s.repo.UpdateStatusIf(ctx, id,
		[]models.RecordingStatus{models.RecordingStatusUploaded, models.RecordingStatusTranscribing},
		map[string]interface{}{
			"status":        models.RecordingStatusFailed,
			"error_code":    errorCode,
			"error_message": errorMessage,
			"processed_at":  &now,
		})
	if err != nil {
		if errors.Is(err, ErrStateConflict) {
			current, getErr := s.repo.GetByID(ctx, id)
			if getErr != nil {
				return getErr
			}
			if current.IsTerminal() {
				return ErrAlreadyHandled
			}
			return ErrStateConflict
		}
		return err
	}

	s.audit.Record(ctx, id, "webhook", models.AuditActionFailed, fmt.Sprintf("%s: %s", errorCode, errorMessage))
	log.Printf("[ERROR] Recording %s failed transcription: %s (%s)", id, errorMessage, errorCode)
	return nil
}

func (s *service) GetByID(ctx context.Context, ownerID, id string) (*models.Recording, error) {
	recording, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if recording.OwnerID != ownerID {
		return nil, ErrRecordingNotFound
	}
	return recording, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Recording, error) {
	return s.repo.ListByOwner(ctx, ownerID, limit)
}

func (s *service) DownloadTarget(ctx context.Context, ownerID, id string) (*UploadTarget, error) {
	recording, err := s.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if recording.StorageKey == "" {
		return nil, fmt.Errorf("recording %s has no stored audio", id)
	}

	url, expiresAt, err := s.blobs.PresignDownload(ctx, recording.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("presigning download: %w", err)
	}
	return &UploadTarget{URL: url, ExpiresAt: expiresAt}, nil
}

func (s *service) Delete(ctx context.Context, ownerID, id string) error {
	recording, err := s.GetByID(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !recording.Deletable() {
		return ErrStateConflict
	}

	err = s.repo.SoftDeleteIf(ctx, id, []models.RecordingStatus{
		models.RecordingStatusUploading,
		models.RecordingStatusUploaded,
		models.RecordingStatusFailed,
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, id, ownerID, models.AuditActionDeleted, string(recording.Status))
	log.Printf("[DEBUG] Recording %s deleted by owner %s", id, ownerID)
	return nil
}

// presignUpload issues a fresh time-limited upload URL for the recording's
// storage key
func (s *service) presignUpload(ctx context.Context, recording *models.Recording) (*UploadTarget, error) {
	url, expiresAt, err := s.blobs.PresignUpload(ctx, s.storageKey(recording), audioContentType)
	if err != nil {
		return nil, fmt.Errorf("presigning upload: %w", err)
	}
	return &UploadTarget{URL: url, ExpiresAt: expiresAt}, nil
}

// storageKey is deterministic per recording so retried uploads land on the
// same object
func (s *service) storageKey(recording *models.Recording) string {
	return path.Join("recordings", recording.OwnerID, recording.ID+".ogg")
}
