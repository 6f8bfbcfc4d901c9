package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/openscribe/consult-api/pkg/errors"
)

// SubmitRequest asks the transcription provider to process a stored
// recording. Results come back asynchronously on the callback URL.
type SubmitRequest struct {
	RecordingID string `json:"recording_id"`
	AudioURL    string `json:"audio_url"`
	CallbackURL string `json:"callback_url"`
	Language    string `json:"language,omitempty"`
}

// SubmitResponse is the provider's acknowledgement of an accepted job
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// Config holds transcription provider client settings
type Config struct {
	BaseURL     string
	APIKey      string
	CallbackURL string
	Timeout     time.Duration
}

// Client calls the external transcription provider
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a transcription provider client
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Submit dispatches a transcription job. A non-2xx response or transport
// failure is reported as upstream-unavailable so the job machinery retries
// with backoff.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if req.CallbackURL == "" {
		req.CallbackURL = c.config.CallbackURL
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling submit request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/transcriptions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("transcription-provider", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.UpstreamUnavailable("transcription-provider",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var submitResp SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return nil, fmt.Errorf("decoding submit response: %w", err)
	}

	return &submitResp, nil
}
