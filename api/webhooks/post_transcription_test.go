package webhooks_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openscribe/consult-api/api/webhooks"
	"github.com/openscribe/consult-api/internal/models"
	"github.com/openscribe/consult-api/internal/services/audit"
	"github.com/openscribe/consult-api/internal/services/jobs"
	"github.com/openscribe/consult-api/internal/services/recordings"
	"github.com/openscribe/consult-api/internal/services/transcripts"
	webhooksvc "github.com/openscribe/consult-api/internal/services/webhooks"
)

const testSecret = "webhook-test-secret"

type fakeBlobStore struct{}

func (f *fakeBlobStore) PresignUpload(ctx context.Context, key, contentType string) (string, time.Time, error) {
	return "https://blobs.test/upload/" + key, time.Now().Add(15 * time.Minute), nil
}

func (f *fakeBlobStore) PresignDownload(ctx context.Context, key string) (string, time.Time, error) {
	return "https://blobs.test/download/" + key, time.Now().Add(15 * time.Minute), nil
}

func (f *fakeBlobStore) Verify(ctx context.Context, key string) (int64, error) {
	return 4096, nil
}

// fakeDispatcher mirrors the real dispatcher's unique-enqueue behavior:
// repeat dispatches for the same recording land on the same entry
type fakeDispatcher struct {
	dispatched []string
}

func (f *fakeDispatcher) DispatchCompleted(ctx context.Context, recording *models.Recording) error {
	for _, id := range f.dispatched {
		if id == recording.ID {
			return nil
		}
	}
	f.dispatched = append(f.dispatched, recording.ID)
	return nil
}

type fakeQueue struct{}

func (f *fakeQueue) EnqueueUniqueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, uniqueKey string, opts ...jobs.JobOption) (*models.Job, error) {
	return &models.Job{Type: jobType, Payload: payload}, nil
}

type webhookFixture struct {
	db          *gorm.DB
	engine      *gin.Engine
	repo        recordings.Repository
	transcripts *transcripts.Service
	audit       *audit.Service
	dispatcher  *fakeDispatcher
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Recording{},
		&models.Transcript{},
		&models.AuditEvent{},
		&models.WebhookDelivery{},
	))

	repo := recordings.NewRepository(db)
	transcriptService := transcripts.NewService(transcripts.NewRepository(db))
	auditService := audit.NewService(audit.NewRepository(db))
	dispatcher := &fakeDispatcher{}

	recordingService := recordings.NewService(repo, &fakeBlobStore{}, transcriptService,
		auditService, dispatcher, &fakeQueue{})

	handler := webhooks.NewHandler(recordingService, webhooksvc.NewRepository(db),
		auditService, testSecret, nil)

	engine := gin.New()
	webhooks.RegisterRoutes(engine.Group("/webhooks"), handler)

	return &webhookFixture{
		db:          db,
		engine:      engine,
		repo:        repo,
		transcripts: transcriptService,
		audit:       auditService,
		dispatcher:  dispatcher,
	}
}

func (f *webhookFixture) seedRecording(t *testing.T, status models.RecordingStatus) *models.Recording {
	t.Helper()

	recording := &models.Recording{
		OwnerID:      "owner-1",
		PatientID:    "patient-1",
		ClientRef:    uuid.NewString(),
		CaptureMode:  models.CaptureModeAmbient,
		ConsentBasis: models.ConsentBasisVerbal,
		Status:       status,
		StorageKey:   "recordings/owner-1/audio.ogg",
	}
	require.NoError(t, f.repo.Create(context.Background(), recording))
	return recording
}

func (f *webhookFixture) post(t *testing.T, body string, sign bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/transcription",
		bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if sign {
		req.Header.Set(webhooks.SignatureHeader, webhooks.Sign(testSecret, []byte(body)))
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func successCallback(deliveryID, recordingID string) string {
	return `{
		"delivery_id": "` + deliveryID + `",
		"recording_id": "` + recordingID + `",
		"status": "completed",
		"transcript": {
			"text": "Patient reports intermittent headaches over two weeks.",
			"language": "en",
			"word_count": 7,
			"mean_confidence": 0.94,
			"turns": [
				{"speaker": "clinician", "start_time": 0, "end_time": 2.5, "text": "How long?", "confidence": 0.97},
				{"speaker": "patient", "start_time": 2.6, "end_time": 6.1, "text": "About two weeks.", "confidence": 0.92}
			]
		}
	}`
}

func failureCallback(deliveryID, recordingID string) string {
	return `{
		"delivery_id": "` + deliveryID + `",
		"recording_id": "` + recordingID + `",
		"status": "failed",
		"error": {"code": "AUDIO_UNREADABLE", "message": "could not decode audio stream"}
	}`
}

func TestPostTranscriptionSuccess(t *testing.T) {
	f := newWebhookFixture(t)
	recording := f.seedRecording(t, models.RecordingStatusTranscribing)

	w := f.post(t, successCallback("dlv-1", recording.ID), true)
	require.Equal(t, http.StatusOK, w.Code)

	current, err := f.repo.GetByID(context.Background(), recording.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordingStatusTranscribed, current.Status)

	transcript, err := f.transcripts.GetByRecordingID(context.Background(), recording.ID)
	require.NoError(t, err)
	assert.Equal(t, "Patient reports intermittent headaches over two weeks.", transcript.Text)
	assert.Len(t, transcript.Turns, 2)

	assert.Equal(t, []string{recording.ID}, f.dispatcher.dispatched)
}

func TestPostTranscriptionFailure(t *testing.T) {
	f := newWebhookFixture(t)
	recording := f.seedRecording(t, models.RecordingStatusTranscribing)

	w := f.post(t, failureCallback("dlv-1", recording.ID), true)
	require.Equal(t, http.StatusOK, w.Code)

	current, err := f.repo.GetByID(context.Background(), recording.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordingStatusFailed, current.Status)
	assert.Equal(t, "AUDIO_UNREADABLE", current.ErrorCode)
	assert.Empty(t, f.dispatcher.dispatched)
}

func TestPostTranscriptionRejectsBadSignature(t *testing.T) {
	f := newWebhookFixture(t)
	recording := f.seedRecording(t, models.RecordingStatusTranscribing)

	w := f.post(t, successCallback("dlv-1", recording.ID), false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	current, err := f.repo.GetByID(context.Background(), recording.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordingStatusTranscribing, current.Status)
}

func TestPostTranscriptionRejectsMalformedBody(t *testing.T) {
	f := newWebhookFixture(t)

	w := f.post(t, `{"delivery_id": `, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostTranscriptionRejectsIncompletePayload(t *testing.T) {
	f := newWebhookFixture(t)
	recording := f.seedRecording(t, models.RecordingStatusTranscribing)

	// A completed callback with no transcript body fails validation
	body := `{
		"delivery_id": "dlv-1",
		"recording_id": "` + recording.ID + `",
		"status": "completed"
	}`
	w := f.post(t, body, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostTranscriptionDuplicateDelivery(t *testing.T) {
	f := newWebhookFixture(t)
	recording := f.seedRecording(t, models.RecordingStatusTranscribing)

	first := f.post(t, successCallback("dlv-1", recording.ID), true)
	require.Equal(t, http.StatusOK, first.Code)

	second := f.post(t, successCallback("dlv-1", recording.ID), true)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), `"duplicate":true`)

	// Side effects applied exactly once
	assert.Equal(t, []string{recording.ID}, f.dispatcher.dispatched)
}

func TestPostTranscriptionRedeliveryWithNewDeliveryID(t *testing.T) {
	f := newWebhookFixture(t)
	recording := f.seedRecording(t, models.RecordingStatusTranscribing)

	first := f.post(t, successCallback("dlv-1", recording.ID), true)
	require.Equal(t, http.StatusOK, first.Code)

	// Same outcome under a fresh delivery id is a benign replay
	second := f.post(t, successCallback("dlv-2", recording.ID), true)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, []string{recording.ID}, f.dispatcher.dispatched)
}

func TestPostTranscriptionUnknownRecording(t *testing.T) {
	f := newWebhookFixture(t)

	w := f.post(t, successCallback("dlv-1", uuid.NewString()), true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The released claim lets the provider retry the same delivery id later
	recording := f.seedRecording(t, models.RecordingStatusTranscribing)
	retry := f.post(t, successCallback("dlv-1", recording.ID), true)
	assert.Equal(t, http.StatusOK, retry.Code)
}
