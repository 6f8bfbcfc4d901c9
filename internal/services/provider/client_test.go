package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openscribe/consult-api/internal/services/provider"
	apperrors "github.com/openscribe/consult-api/pkg/errors"
)

func TestSubmit(t *testing.T) {
	var received provider.SubmitRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transcriptions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(provider.SubmitResponse{JobID: "prov-42"})
	}))
	defer srv.Close()

	client := provider.NewClient(provider.Config{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		CallbackURL: "https://api.test/webhooks/transcription",
	})

	resp, err := client.Submit(context.Background(), provider.SubmitRequest{
		RecordingID: "rec-1",
		AudioURL:    "https://blobs.test/rec-1.ogg",
	})
	require.NoError(t, err)

	assert.Equal(t, "prov-42", resp.JobID)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "rec-1", received.RecordingID)
	// The configured callback fills in when the request leaves it empty
	assert.Equal(t, "https://api.test/webhooks/transcription", received.CallbackURL)
}

func TestSubmitProviderRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := provider.NewClient(provider.Config{BaseURL: srv.URL, APIKey: "test-key"})

	_, err := client.Submit(context.Background(), provider.SubmitRequest{
		RecordingID: "rec-1",
		AudioURL:    "https://blobs.test/rec-1.ogg",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUpstreamUnavailable, apperrors.GetCode(err))
}

func TestSubmitTransportFailure(t *testing.T) {
	client := provider.NewClient(provider.Config{BaseURL: "http://127.0.0.1:1", APIKey: "test-key"})

	_, err := client.Submit(context.Background(), provider.SubmitRequest{
		RecordingID: "rec-1",
		AudioURL:    "https://blobs.test/rec-1.ogg",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUpstreamUnavailable, apperrors.GetCode(err))
}
