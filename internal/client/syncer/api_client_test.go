package syncer_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apitypes "github.com/openscribe/consult-api/api/types"
	"github.com/openscribe/consult-api/internal/client/syncer"
	"github.com/openscribe/consult-api/internal/models"
	apperrors "github.com/openscribe/consult-api/pkg/errors"
)

func TestCreateRecordingRequest(t *testing.T) {
	var gotAuth string
	var gotReq apitypes.CreateRecordingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/recordings", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(apitypes.RecordingResponse{
			Recording: &models.Recording{ID: "rec-1", Status: models.RecordingStatusUploading},
			UploadTarget: &apitypes.UploadTargetDTO{
				URL: "https://blobs.test/upload/rec-1",
			},
		})
	}))
	defer srv.Close()

	client := syncer.NewAPIClient(srv.URL, "agent-token")

	entry := pendingEntry(uuid.NewString(), 64)
	entry.PatientID = "patient-1"
	resp, err := client.CreateRecording(context.Background(), entry)
	require.NoError(t, err)

	assert.Equal(t, "Bearer agent-token", gotAuth)
	assert.Equal(t, entry.ClientRef, gotReq.ClientRef)
	assert.Equal(t, "AMBIENT", gotReq.CaptureMode)
	assert.Equal(t, "rec-1", resp.Recording.ID)
	require.NotNil(t, resp.UploadTarget)
}

func TestCreateRecordingServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := syncer.NewAPIClient(srv.URL, "agent-token")

	_, err := client.CreateRecording(context.Background(), pendingEntry(uuid.NewString(), 64))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUpstreamUnavailable, apperrors.GetCode(err))
}

func TestUploadAudio(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "audio/ogg", r.Header.Get("Content-Type"))
		var err error
		gotBody, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := syncer.NewAPIClient("http://unused", "")

	require.NoError(t, client.UploadAudio(context.Background(), srv.URL, []byte("opus-frames")))
	assert.Equal(t, []byte("opus-frames"), gotBody)
}

func TestConfirmUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/recordings/rec-1/confirm", r.URL.Path)

		var req apitypes.ConfirmUploadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(2048), req.SizeBytes)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := syncer.NewAPIClient(srv.URL, "agent-token")
	require.NoError(t, client.ConfirmUpload(context.Background(), "rec-1", 2048))
}
