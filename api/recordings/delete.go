package recordings

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/openscribe/consult-api/api/types"
	"github.com/openscribe/consult-api/internal/services/recordings"
)

// Delete removes a recording. Recordings that are mid-transcription or
// successfully transcribed are retained and the delete is rejected.
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := types.OwnerID(c)
		if !ok {
			return
		}

		err := deps.RecordingService.Delete(c.Request.Context(), ownerID, c.Param("id"))
		if err != nil {
			switch {
			case errors.Is(err, recordings.ErrRecordingNotFound):
				types.SendNotFound(c, "Recording not found")
			case errors.Is(err, recordings.ErrStateConflict):
				types.SendConflict(c, "Recording cannot be deleted in its current state")
			default:
				types.SendInternalError(c, "Failed to delete recording")
			}
			return
		}

		types.SendSuccess(c, types.BaseResponse{
			Status:  types.StatusOK,
			Message: "Recording deleted",
		})
	}
}
