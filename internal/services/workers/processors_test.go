package workers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openscribe/consult-api/internal/models"
	"github.com/openscribe/consult-api/internal/services/provider"
	"github.com/openscribe/consult-api/internal/services/recordings"
	"github.com/openscribe/consult-api/internal/services/workers"
)

type fakeLookup struct {
	recording *models.Recording
	err       error
}

func (f *fakeLookup) GetByID(ctx context.Context, id string) (*models.Recording, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recording, nil
}

type fakeLifecycle struct {
	marked []string
	err    error
}

func (f *fakeLifecycle) MarkTranscribing(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.marked = append(f.marked, id)
	return nil
}

type fakePresigner struct{}

func (f *fakePresigner) PresignDownload(ctx context.Context, key string) (string, time.Time, error) {
	return "https://blobs.test/download/" + key, time.Now().Add(15 * time.Minute), nil
}

type fakeSubmitter struct {
	submitted []provider.SubmitRequest
	err       error
}

func (f *fakeSubmitter) Submit(ctx context.Context, req provider.SubmitRequest) (*provider.SubmitResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, req)
	return &provider.SubmitResponse{JobID: "prov-job-1"}, nil
}

type fakeAudit struct {
	actions []models.AuditAction
}

func (f *fakeAudit) Record(ctx context.Context, recordingID, actor string, action models.AuditAction, detail string) {
	f.actions = append(f.actions, action)
}

type fakeTranscripts struct {
	transcript *models.Transcript
	err        error
}

func (f *fakeTranscripts) GetByRecordingID(ctx context.Context, recordingID string) (*models.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.transcript, nil
}

func dispatchJob(recordingID string) *models.Job {
	return &models.Job{
		Type:    models.JobTypeTranscriptionDispatch,
		Payload: models.JobPayload{"recording_id": recordingID},
	}
}

func TestTranscriptionDispatchSubmitsAndMarks(t *testing.T) {
	lookup := &fakeLookup{recording: &models.Recording{
		ID:         "rec-1",
		Status:     models.RecordingStatusUploaded,
		StorageKey: "recordings/owner-1/rec-1.ogg",
	}}
	lifecycle := &fakeLifecycle{}
	submitter := &fakeSubmitter{}

	p := workers.NewTranscriptionDispatchProcessor(lookup, lifecycle, &fakePresigner{}, submitter)
	require.True(t, p.CanProcess(models.JobTypeTranscriptionDispatch))
	require.False(t, p.CanProcess(models.JobTypeLetterGeneration))

	err := p.ProcessJob(context.Background(), dispatchJob("rec-1"))
	require.NoError(t, err)

	require.Len(t, submitter.submitted, 1)
	assert.Equal(t, "rec-1", submitter.submitted[0].RecordingID)
	assert.Contains(t, submitter.submitted[0].AudioURL, "rec-1.ogg")
	assert.Equal(t, []string{"rec-1"}, lifecycle.marked)
}

func TestTranscriptionDispatchRejectsEmptyPayload(t *testing.T) {
	submitter := &fakeSubmitter{}
	p := workers.NewTranscriptionDispatchProcessor(&fakeLookup{}, &fakeLifecycle{}, &fakePresigner{}, submitter)

	err := p.ProcessJob(context.Background(), &models.Job{Type: models.JobTypeTranscriptionDispatch})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording_id")
	assert.Empty(t, submitter.submitted)
}

func TestTranscriptionDispatchSkipsMovedOnRecording(t *testing.T) {
	lookup := &fakeLookup{recording: &models.Recording{
		ID:     "rec-1",
		Status: models.RecordingStatusTranscribing,
	}}
	submitter := &fakeSubmitter{}

	p := workers.NewTranscriptionDispatchProcessor(lookup, &fakeLifecycle{}, &fakePresigner{}, submitter)

	err := p.ProcessJob(context.Background(), dispatchJob("rec-1"))
	require.NoError(t, err)
	assert.Empty(t, submitter.submitted)
}

func TestTranscriptionDispatchSkipsDeletedRecording(t *testing.T) {
	lookup := &fakeLookup{err: recordings.ErrRecordingNotFound}

	p := workers.NewTranscriptionDispatchProcessor(lookup, &fakeLifecycle{}, &fakePresigner{}, &fakeSubmitter{})

	err := p.ProcessJob(context.Background(), dispatchJob("rec-1"))
	assert.NoError(t, err)
}

func TestTranscriptionDispatchToleratesWebhookRace(t *testing.T) {
	lookup := &fakeLookup{recording: &models.Recording{
		ID:         "rec-1",
		Status:     models.RecordingStatusUploaded,
		StorageKey: "recordings/owner-1/rec-1.ogg",
	}}
	// The callback completed the recording between submit and mark
	lifecycle := &fakeLifecycle{err: recordings.ErrAlreadyHandled}

	p := workers.NewTranscriptionDispatchProcessor(lookup, lifecycle, &fakePresigner{}, &fakeSubmitter{})

	err := p.ProcessJob(context.Background(), dispatchJob("rec-1"))
	assert.NoError(t, err)
}

func TestTranscriptionDispatchPropagatesSubmitError(t *testing.T) {
	lookup := &fakeLookup{recording: &models.Recording{
		ID:         "rec-1",
		Status:     models.RecordingStatusUploaded,
		StorageKey: "recordings/owner-1/rec-1.ogg",
	}}
	submitter := &fakeSubmitter{err: errors.New("provider down")}
	lifecycle := &fakeLifecycle{}

	p := workers.NewTranscriptionDispatchProcessor(lookup, lifecycle, &fakePresigner{}, submitter)

	err := p.ProcessJob(context.Background(), dispatchJob("rec-1"))
	require.Error(t, err)
	assert.Empty(t, lifecycle.marked)
}

func TestLetterGenerationPostsDownstream(t *testing.T) {
	var received map[string]interface{}
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer downstream.Close()

	lookup := &fakeLookup{recording: &models.Recording{
		ID:        "rec-1",
		PatientID: "patient-1",
		Status:    models.RecordingStatusTranscribed,
	}}
	transcripts := &fakeTranscripts{transcript: &models.Transcript{
		RecordingID: "rec-1",
		Text:        "Patient reports chest pain.",
		WordCount:   4,
	}}
	audit := &fakeAudit{}

	p := workers.NewLetterGenerationProcessor(lookup, transcripts, audit, downstream.URL)
	require.True(t, p.CanProcess(models.JobTypeLetterGeneration))

	job := &models.Job{
		Type:    models.JobTypeLetterGeneration,
		Payload: models.JobPayload{"recording_id": "rec-1"},
	}
	require.NoError(t, p.ProcessJob(context.Background(), job))

	assert.Equal(t, "rec-1", received["recording_id"])
	assert.Equal(t, "Patient reports chest pain.", received["transcript"])
	assert.Equal(t, []models.AuditAction{models.AuditActionDispatched}, audit.actions)
}

func TestLetterGenerationRejectsEmptyPayload(t *testing.T) {
	audit := &fakeAudit{}
	p := workers.NewLetterGenerationProcessor(&fakeLookup{}, &fakeTranscripts{}, audit, "")

	err := p.ProcessJob(context.Background(), &models.Job{Type: models.JobTypeLetterGeneration})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording_id")
	assert.Empty(t, audit.actions)
}

func TestLetterGenerationNoDownstreamConfigured(t *testing.T) {
	lookup := &fakeLookup{recording: &models.Recording{
		ID:     "rec-1",
		Status: models.RecordingStatusTranscribed,
	}}
	transcripts := &fakeTranscripts{transcript: &models.Transcript{RecordingID: "rec-1", Text: "note"}}
	audit := &fakeAudit{}

	p := workers.NewLetterGenerationProcessor(lookup, transcripts, audit, "")

	job := &models.Job{
		Type:    models.JobTypeLetterGeneration,
		Payload: models.JobPayload{"recording_id": "rec-1"},
	}
	require.NoError(t, p.ProcessJob(context.Background(), job))
	assert.Empty(t, audit.actions)
}

func TestLetterGenerationRequiresTranscribedState(t *testing.T) {
	lookup := &fakeLookup{recording: &models.Recording{
		ID:     "rec-1",
		Status: models.RecordingStatusFailed,
	}}

	p := workers.NewLetterGenerationProcessor(lookup, &fakeTranscripts{}, &fakeAudit{}, "http://localhost:1")

	job := &models.Job{
		Type:    models.JobTypeLetterGeneration,
		Payload: models.JobPayload{"recording_id": "rec-1"},
	}
	assert.Error(t, p.ProcessJob(context.Background(), job))
}

func TestLetterGenerationDownstreamFailure(t *testing.T) {
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer downstream.Close()

	lookup := &fakeLookup{recording: &models.Recording{
		ID:     "rec-1",
		Status: models.RecordingStatusTranscribed,
	}}
	transcripts := &fakeTranscripts{transcript: &models.Transcript{RecordingID: "rec-1", Text: "note"}}
	audit := &fakeAudit{}

	p := workers.NewLetterGenerationProcessor(lookup, transcripts, audit, downstream.URL)

	job := &models.Job{
		Type:    models.JobTypeLetterGeneration,
		Payload: models.JobPayload{"recording_id": "rec-1"},
	}
	assert.Error(t, p.ProcessJob(context.Background(), job))
	assert.Empty(t, audit.actions)
}
