package webhooks

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openscribe/consult-api/api/types"
	"github.com/openscribe/consult-api/internal/models"
	"github.com/openscribe/consult-api/internal/services/recordings"
	"github.com/openscribe/consult-api/internal/services/webhooks"
)

// ProviderName identifies the transcription provider in delivery claims
const ProviderName = "scribe-stt"

// TurnPayload is one diarized segment in a provider callback
type TurnPayload struct {
	Speaker    string  `json:"speaker"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// TranscriptPayload is the transcript body of a success callback
type TranscriptPayload struct {
	Text           string        `json:"text" validate:"required"`
	Language       string        `json:"language"`
	Turns          []TurnPayload `json:"turns"`
	WordCount      int           `json:"word_count"`
	MeanConfidence float64       `json:"mean_confidence"`
}

// ErrorPayload is the error body of a failure callback
type ErrorPayload struct {
	Code    string `json:"code" validate:"required"`
	Message string `json:"message"`
}

// TranscriptionCallback is the provider's async outcome delivery. DeliveryID
// is provider-assigned and unique per delivery attempt group; redeliveries
// reuse it.
type TranscriptionCallback struct {
	DeliveryID  string             `json:"delivery_id" validate:"required"`
	RecordingID string             `json:"recording_id" validate:"required,uuid"`
	Status      string             `json:"status" validate:"required,oneof=completed failed"`
	Transcript  *TranscriptPayload `json:"transcript" validate:"required_if=Status completed"`
	Error       *ErrorPayload      `json:"error" validate:"required_if=Status failed"`
}

// Handler ingests transcription outcome callbacks
type Handler struct {
	recordings recordings.Service
	deliveries webhooks.Repository
	audit      recordings.AuditLog
	secret     string
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewHandler creates a webhook handler
func NewHandler(recordingService recordings.Service, deliveries webhooks.Repository, audit recordings.AuditLog, secret string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		recordings: recordingService,
		deliveries: deliveries,
		audit:      audit,
		secret:     secret,
		validate:   validator.New(),
		logger:     logger,
	}
}

// PostTranscription handles POST /webhooks/transcription. The provider
// delivers at least once; the delivery claim makes reapplication impossible
// and a duplicate is acknowledged with 200 so the provider stops retrying.
func (h *Handler) PostTranscription(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		types.SendBadRequest(c, "Unable to read request body")
		return
	}

	if !VerifySignature(h.secret, body, c.GetHeader(SignatureHeader)) {
		h.logger.Warn("webhook signature rejected", zap.String("remote", c.ClientIP()))
		h.audit.Record(c.Request.Context(), "", "webhook", models.AuditActionWebhookRejected, "bad signature")
		types.SendUnauthorized(c, "Invalid signature")
		return
	}

	var callback TranscriptionCallback
	if err := json.Unmarshal(body, &callback); err != nil {
		types.SendBadRequest(c, "Malformed callback payload")
		return
	}
	if err := h.validate.Struct(&callback); err != nil {
		h.logger.Warn("webhook payload invalid", zap.Error(err))
		h.audit.Record(c.Request.Context(), callback.RecordingID, "webhook", models.AuditActionWebhookRejected, err.Error())
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Status:  types.StatusError,
			Message: "Invalid callback payload",
			Details: err.Error(),
		})
		return
	}

	outcome := "success"
	if callback.Status == "failed" {
		outcome = "failure"
	}

	err = h.deliveries.ClaimDelivery(c.Request.Context(), &models.WebhookDelivery{
		Provider:    ProviderName,
		DeliveryID:  callback.DeliveryID,
		RecordingID: callback.RecordingID,
		Outcome:     outcome,
	})
	if err != nil {
		if errors.Is(err, webhooks.ErrDuplicateDelivery) {
			h.logger.Info("duplicate webhook delivery acknowledged",
				zap.String("delivery_id", callback.DeliveryID),
				zap.String("recording_id", callback.RecordingID))
			c.JSON(http.StatusOK, types.WebhookAckResponse{
				BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: "Already processed"},
				Duplicate:    true,
			})
			return
		}
		h.logger.Error("claiming webhook delivery failed", zap.Error(err))
		types.SendInternalError(c, "Failed to record delivery")
		return
	}

	if err := h.apply(c, &callback); err != nil {
		// The claim only stands when the side effects were applied; releasing
		// it lets the provider's redelivery retry the whole operation.
		if relErr := h.deliveries.ReleaseDelivery(c.Request.Context(), ProviderName, callback.DeliveryID); relErr != nil {
			h.logger.Error("releasing webhook delivery failed", zap.Error(relErr),
				zap.String("delivery_id", callback.DeliveryID))
		}

		switch {
		case errors.Is(err, recordings.ErrRecordingNotFound):
			types.SendNotFound(c, "Recording not found")
		case errors.Is(err, recordings.ErrStateConflict):
			types.SendConflict(c, "Recording is not ready for a transcription outcome")
		default:
			h.logger.Error("applying webhook outcome failed", zap.Error(err),
				zap.String("recording_id", callback.RecordingID))
			types.SendInternalError(c, "Failed to apply transcription outcome")
		}
		return
	}

	h.logger.Info("webhook delivery applied",
		zap.String("delivery_id", callback.DeliveryID),
		zap.String("recording_id", callback.RecordingID),
		zap.String("outcome", outcome))

	c.JSON(http.StatusOK, types.WebhookAckResponse{
		BaseResponse: types.BaseResponse{Status: types.StatusOK},
	})
}

// apply routes the callback to the matching lifecycle transition. A benign
// replay (the outcome already holds) counts as applied.
func (h *Handler) apply(c *gin.Context, callback *TranscriptionCallback) error {
	ctx := c.Request.Context()

	var err error
	if callback.Status == "completed" {
		turns := make(models.SpeakerTurns, 0, len(callback.Transcript.Turns))
		for _, t := range callback.Transcript.Turns {
			turns = append(turns, models.SpeakerTurn{
				Speaker:    t.Speaker,
				StartTime:  t.StartTime,
				EndTime:    t.EndTime,
				Text:       t.Text,
				Confidence: t.Confidence,
			})
		}
		err = h.recordings.CompleteFromWebhook(ctx, callback.RecordingID, recordings.TranscriptResult{
			Text:           callback.Transcript.Text,
			Language:       callback.Transcript.Language,
			Turns:          turns,
			WordCount:      callback.Transcript.WordCount,
			MeanConfidence: callback.Transcript.MeanConfidence,
		})
	} else {
		err = h.recordings.FailFromWebhook(ctx, callback.RecordingID, callback.Error.Code, callback.Error.Message)
	}

	if errors.Is(err, recordings.ErrAlreadyHandled) {
		return nil
	}
	return err
}
