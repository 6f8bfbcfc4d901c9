package recordings

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openscribe/consult-api/api/types"
	"github.com/openscribe/consult-api/internal/services/recordings"
	"github.com/openscribe/consult-api/internal/services/transcripts"
)

// GetByID returns a single recording owned by the caller
func GetByID(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := types.OwnerID(c)
		if !ok {
			return
		}

		recording, err := deps.RecordingService.GetByID(c.Request.Context(), ownerID, c.Param("id"))
		if err != nil {
			if errors.Is(err, recordings.ErrRecordingNotFound) {
				types.SendNotFound(c, "Recording not found")
				return
			}
			types.SendInternalError(c, "Failed to get recording")
			return
		}

		types.SendSuccess(c, types.RecordingResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Recording:    recording,
		})
	}
}

// GetList returns the caller's recordings, newest first
func GetList(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := types.OwnerID(c)
		if !ok {
			return
		}

		limit := 50
		if limitStr := c.Query("limit"); limitStr != "" {
			parsed, err := strconv.Atoi(limitStr)
			if err != nil || parsed <= 0 || parsed > 200 {
				types.SendBadRequest(c, "Invalid limit")
				return
			}
			limit = parsed
		}

		list, err := deps.RecordingService.ListByOwner(c.Request.Context(), ownerID, limit)
		if err != nil {
			types.SendInternalError(c, "Failed to list recordings")
			return
		}

		types.SendSuccess(c, types.RecordingsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Recordings:   list,
			Count:        len(list),
		})
	}
}

// GetTranscript returns the transcript for a transcribed recording
func GetTranscript(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := types.OwnerID(c)
		if !ok {
			return
		}

		// Ownership check happens on the recording, not the transcript
		recording, err := deps.RecordingService.GetByID(c.Request.Context(), ownerID, c.Param("id"))
		if err != nil {
			if errors.Is(err, recordings.ErrRecordingNotFound) {
				types.SendNotFound(c, "Recording not found")
				return
			}
			types.SendInternalError(c, "Failed to get recording")
			return
		}

		transcript, err := deps.TranscriptService.GetByRecordingID(c.Request.Context(), recording.ID)
		if err != nil {
			if errors.Is(err, transcripts.ErrTranscriptNotFound) {
				types.SendNotFound(c, "No transcript for this recording")
				return
			}
			types.SendInternalError(c, "Failed to get transcript")
			return
		}

		types.SendSuccess(c, types.TranscriptResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Transcript:   transcript,
		})
	}
}

// GetAudio returns a time-limited download URL for the stored audio
func GetAudio(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := types.OwnerID(c)
		if !ok {
			return
		}

		target, err := deps.RecordingService.DownloadTarget(c.Request.Context(), ownerID, c.Param("id"))
		if err != nil {
			if errors.Is(err, recordings.ErrRecordingNotFound) {
				types.SendNotFound(c, "Recording not found")
				return
			}
			types.SendInternalError(c, "Failed to get audio URL")
			return
		}

		types.SendSuccess(c, types.AudioResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			URL:          target.URL,
			ExpiresAt:    target.ExpiresAt,
		})
	}
}

// GetAuditTrail returns the recording's audit trail, oldest first
func GetAuditTrail(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := types.OwnerID(c)
		if !ok {
			return
		}

		recording, err := deps.RecordingService.GetByID(c.Request.Context(), ownerID, c.Param("id"))
		if err != nil {
			if errors.Is(err, recordings.ErrRecordingNotFound) {
				types.SendNotFound(c, "Recording not found")
				return
			}
			types.SendInternalError(c, "Failed to get recording")
			return
		}

		events, err := deps.AuditService.ListByRecording(c.Request.Context(), recording.ID)
		if err != nil {
			types.SendInternalError(c, "Failed to get audit trail")
			return
		}

		types.SendSuccess(c, types.AuditTrailResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Events:       events,
			Count:        len(events),
		})
	}
}
