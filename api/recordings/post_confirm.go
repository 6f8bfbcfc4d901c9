package recordings

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openscribe/consult-api/api/types"
	"github.com/openscribe/consult-api/internal/services/recordings"
)

// PostConfirm moves a recording from UPLOADING to UPLOADED once the audio
// bytes are in object storage, and queues transcription dispatch. Confirming
// an already-uploaded recording is a no-op returning the current state.
func PostConfirm(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := types.OwnerID(c)
		if !ok {
			return
		}

		var req types.ConfirmUploadRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		recording, err := deps.RecordingService.ConfirmUpload(c.Request.Context(), ownerID, c.Param("id"), req.SizeBytes)
		if err != nil {
			switch {
			case errors.Is(err, recordings.ErrRecordingNotFound):
				types.SendNotFound(c, "Recording not found")
			case errors.Is(err, recordings.ErrUploadTooLarge):
				c.JSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{
					Status:  types.StatusError,
					Message: "Upload exceeds the size ceiling",
				})
			case errors.Is(err, recordings.ErrStateConflict):
				types.SendConflict(c, "Recording is not awaiting upload confirmation")
			default:
				types.SendInternalError(c, "Failed to confirm upload")
			}
			return
		}

		types.SendSuccess(c, types.RecordingResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Recording:    recording,
		})
	}
}
