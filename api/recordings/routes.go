package recordings

import (
	"github.com/gin-gonic/gin"
	"github.com/openscribe/consult-api/api/types"
)

// RegisterRoutes registers recording lifecycle routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	// POST /api/v1/recordings - Register a capture intent and get an upload URL
	router.POST("", PostCreate(deps))

	// POST /api/v1/recordings/:id/confirm - Confirm the upload completed
	router.POST("/:id/confirm", PostConfirm(deps))

	// GET /api/v1/recordings - List the caller's recordings
	router.GET("", GetList(deps))

	// GET /api/v1/recordings/:id - Get recording details
	router.GET("/:id", GetByID(deps))

	// GET /api/v1/recordings/:id/transcript - Get the transcript
	router.GET("/:id/transcript", GetTranscript(deps))

	// GET /api/v1/recordings/:id/audio - Get a time-limited audio download URL
	router.GET("/:id/audio", GetAudio(deps))

	// GET /api/v1/recordings/:id/audit - Get the audit trail
	router.GET("/:id/audit", GetAuditTrail(deps))

	// DELETE /api/v1/recordings/:id - Delete a recording
	router.DELETE("/:id", Delete(deps))
}
