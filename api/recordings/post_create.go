package recordings

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/openscribe/consult-api/api/types"
	"github.com/openscribe/consult-api/internal/models"
	"github.com/openscribe/consult-api/internal/services/recordings"
)

// PostCreate registers a recording in UPLOADING state and returns a
// pre-signed upload URL. Replaying the same client_ref returns the existing
// recording instead of creating a duplicate.
func PostCreate(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := types.OwnerID(c)
		if !ok {
			return
		}

		var req types.CreateRecordingRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		recording, target, err := deps.RecordingService.Create(c.Request.Context(), ownerID, recordings.CreateParams{
			ClientRef:       req.ClientRef,
			CaptureMode:     models.CaptureMode(req.CaptureMode),
			ConsentBasis:    models.ConsentBasis(req.ConsentBasis),
			PatientID:       req.PatientID,
			ConsultationID:  req.ConsultationID,
			DurationSeconds: req.DurationSeconds,
		})
		if err != nil {
			// The ref resolves to another owner's recording
			if errors.Is(err, recordings.ErrRecordingNotFound) {
				types.SendConflict(c, "Client reference already in use")
				return
			}
			types.SendInternalError(c, "Failed to create recording")
			return
		}

		resp := types.RecordingResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Recording:    recording,
		}
		if target != nil {
			resp.UploadTarget = &types.UploadTargetDTO{
				URL:       target.URL,
				ExpiresAt: target.ExpiresAt,
			}
		}

		types.SendCreated(c, resp)
	}
}
