package syncer

import (
	"context"
	"log"
	"sync"
	"time"

	apitypes "github.com/openscribe/consult-api/api/types"
	"github.com/openscribe/consult-api/internal/client/netmon"
	"github.com/openscribe/consult-api/internal/models"
	apperrors "github.com/openscribe/consult-api/pkg/errors"
)

// PendingQueue is the durable local queue the syncer drains
type PendingQueue interface {
	PeekPending(ctx context.Context, limit int) ([]*models.PendingRecording, error)
	MarkSynced(ctx context.Context, clientRef string) error
	IncrementRetry(ctx context.Context, clientRef string) error
}

// ServerAPI is the server surface the syncer talks to
type ServerAPI interface {
	CreateRecording(ctx context.Context, entry *models.PendingRecording) (*apitypes.RecordingResponse, error)
	UploadAudio(ctx context.Context, url string, data []byte) error
	ConfirmUpload(ctx context.Context, recordingID string, sizeBytes int64) error
}

// StatusSource reports network condition changes
type StatusSource interface {
	Status() netmon.Status
	Subscribe() (<-chan netmon.Status, func())
}

// Config holds syncer settings
type Config struct {
	SyncInterval time.Duration
	// RetryDelay is the base of the per-entry exponential backoff
	RetryDelay time.Duration
	// LargePayloadBytes is the size above which entries wait for a fast
	// connection instead of syncing over a slow one
	LargePayloadBytes int64
	BatchLimit        int
}

// Syncer drains the local queue to the server whenever the network allows.
// Each entry moves through create, upload, confirm; every step is idempotent
// on the server side, so a sync interrupted anywhere restarts cleanly.
type Syncer struct {
	queue   PendingQueue
	api     ServerAPI
	monitor StatusSource
	cfg     Config

	syncNow  chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once

	mu          sync.Mutex
	drainCancel context.CancelFunc
	lastAttempt map[string]time.Time
}

// NewSyncer creates a sync manager
func NewSyncer(queue PendingQueue, api ServerAPI, monitor StatusSource, cfg Config) *Syncer {
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 15 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 20
	}

	return &Syncer{
		queue:       queue,
		api:         api,
		monitor:     monitor,
		cfg:         cfg,
		syncNow:     make(chan struct{}, 1),
		stopChan:    make(chan struct{}),
		lastAttempt: make(map[string]time.Time),
	}
}

// SyncNow requests an immediate drain. Coalesced: requesting while a request
// is already queued is a no-op.
func (s *Syncer) SyncNow() {
	select {
	case s.syncNow <- struct{}{}:
	default:
	}
}

// Abort cancels the in-flight drain without counting the interrupted entry
// as a failed attempt
func (s *Syncer) Abort() {
	s.mu.Lock()
	cancel := s.drainCancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Stop ends the run loop
func (s *Syncer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Run drains on startup, on every reconnect, on explicit SyncNow requests,
// and on a steady interval. Blocks until the context ends or Stop is called.
func (s *Syncer) Run(ctx context.Context) {
	statusCh, unsubscribe := s.monitor.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(s.cfg.SyncInterval)
	defer ticker.Stop()

	// Startup drain covers captures left over from the previous run
	s.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case status, ok := <-statusCh:
			if !ok {
				return
			}
			if status.Reachable() {
				log.Printf("[DEBUG] Network reachable (%s), draining queue", status)
				s.drain(ctx)
			}
		case <-s.syncNow:
			s.drain(ctx)
		case <-ticker.C:
			s.drain(ctx)
		}
	}
}

// drain pushes every eligible pending entry through the upload pipeline
func (s *Syncer) drain(ctx context.Context) {
	status := s.monitor.Status()
	if !status.Reachable() {
		return
	}

	drainCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.drainCancel = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		s.drainCancel = nil
		s.mu.Unlock()
	}()

	entries, err := s.queue.PeekPending(drainCtx, s.cfg.BatchLimit)
	if err != nil {
		log.Printf("[ERROR] Reading pending queue: %v", err)
		return
	}

	for _, entry := range entries {
		if drainCtx.Err() != nil {
			return
		}

		if status == netmon.StatusSlow && s.cfg.LargePayloadBytes > 0 &&
			int64(len(entry.AudioData)) > s.cfg.LargePayloadBytes {
			log.Printf("[DEBUG] Deferring large recording %s (%d bytes) on slow connection",
				entry.ClientRef, len(entry.AudioData))
			continue
		}

		if !s.attemptDue(entry) {
			continue
		}

		if err := s.syncEntry(drainCtx, entry); err != nil {
			if drainCtx.Err() != nil {
				// Aborted mid-entry; not a failed attempt
				log.Printf("[DEBUG] Sync aborted during recording %s", entry.ClientRef)
				return
			}

			log.Printf("[ERROR] Syncing recording %s: %v", entry.ClientRef, err)
			s.noteAttempt(entry.ClientRef)
			if retryErr := s.queue.IncrementRetry(drainCtx, entry.ClientRef); retryErr != nil &&
				apperrors.GetCode(retryErr) != apperrors.ErrCodeRetryCeilingExceeded {
				log.Printf("[ERROR] Recording retry bookkeeping for %s: %v", entry.ClientRef, retryErr)
			}
			continue
		}

		s.forgetAttempt(entry.ClientRef)
	}
}

// syncEntry runs one entry through create, upload, confirm, dequeue
func (s *Syncer) syncEntry(ctx context.Context, entry *models.PendingRecording) error {
	resp, err := s.api.CreateRecording(ctx, entry)
	if err != nil {
		return err
	}
	recording := resp.Recording

	// No upload target means the server already has the bytes; a crash
	// between confirm and dequeue replays as just the removal.
	if resp.UploadTarget != nil {
		if err := s.api.UploadAudio(ctx, resp.UploadTarget.URL, entry.AudioData); err != nil {
			return err
		}
	}

	if recording.Status == models.RecordingStatusUploading {
		if err := s.api.ConfirmUpload(ctx, recording.ID, int64(len(entry.AudioData))); err != nil {
			return err
		}
	}

	if err := s.queue.MarkSynced(ctx, entry.ClientRef); err != nil {
		return err
	}

	log.Printf("[DEBUG] Recording %s synced as %s", entry.ClientRef, recording.ID)
	return nil
}

// attemptDue applies the per-entry exponential backoff gate
func (s *Syncer) attemptDue(entry *models.PendingRecording) bool {
	s.mu.Lock()
	last, seen := s.lastAttempt[entry.ClientRef]
	s.mu.Unlock()

	if !seen || entry.RetryCount == 0 {
		return true
	}

	delay := s.cfg.RetryDelay * time.Duration(1<<uint(entry.RetryCount-1))
	if max := 5 * time.Minute; delay > max {
		delay = max
	}
	return time.Since(last) >= delay
}

func (s *Syncer) noteAttempt(clientRef string) {
	s.mu.Lock()
	s.lastAttempt[clientRef] = time.Now()
	s.mu.Unlock()
}

func (s *Syncer) forgetAttempt(clientRef string) {
	s.mu.Lock()
	delete(s.lastAttempt, clientRef)
	s.mu.Unlock()
}
