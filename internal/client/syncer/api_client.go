package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apitypes "github.com/openscribe/consult-api/api/types"
	"github.com/openscribe/consult-api/internal/models"
	apperrors "github.com/openscribe/consult-api/pkg/errors"
)

// APIClient is the typed HTTP client the sync agent uses against the server
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClient creates a server API client
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// CreateRecording registers the capture intent. The server deduplicates on
// client_ref, so calling this again for the same entry returns the existing
// recording.
func (c *APIClient) CreateRecording(ctx context.Context, entry *models.PendingRecording) (*apitypes.RecordingResponse, error) {
	body, err := json.Marshal(apitypes.CreateRecordingRequest{
		ClientRef:       entry.ClientRef,
		CaptureMode:     string(entry.CaptureMode),
		ConsentBasis:    string(entry.ConsentBasis),
		PatientID:       entry.PatientID,
		DurationSeconds: entry.DurationSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/recordings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("consult-api", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, apperrors.UpstreamUnavailable("consult-api",
			fmt.Errorf("create returned status %d", resp.StatusCode))
	}

	var recResp apitypes.RecordingResponse
	if err := json.NewDecoder(resp.Body).Decode(&recResp); err != nil {
		return nil, fmt.Errorf("decoding create response: %w", err)
	}
	if recResp.Recording == nil {
		return nil, fmt.Errorf("create response missing recording")
	}
	return &recResp, nil
}

// UploadAudio PUTs the audio bytes to the pre-signed URL
func (c *APIClient) UploadAudio(ctx context.Context, url string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/ogg")
	req.ContentLength = int64(len(data))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.UpstreamUnavailable("blob-storage", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.UpstreamUnavailable("blob-storage",
			fmt.Errorf("upload returned status %d", resp.StatusCode))
	}
	return nil
}

// ConfirmUpload tells the server the bytes are in place
func (c *APIClient) ConfirmUpload(ctx context.Context, recordingID string, sizeBytes int64) error {
	body, err := json.Marshal(apitypes.ConfirmUploadRequest{SizeBytes: sizeBytes})
	if err != nil {
		return fmt.Errorf("marshaling confirm request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/recordings/%s/confirm", c.baseURL, recordingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building confirm request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.UpstreamUnavailable("consult-api", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apperrors.UpstreamUnavailable("consult-api",
			fmt.Errorf("confirm returned status %d", resp.StatusCode))
	}
	return nil
}

func (c *APIClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
