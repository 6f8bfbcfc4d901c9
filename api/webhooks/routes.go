package webhooks

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers provider webhook routes
func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	// POST /webhooks/transcription - Transcription outcome callback
	router.POST("/transcription", handler.PostTranscription)
}
