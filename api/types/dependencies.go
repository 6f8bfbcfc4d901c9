package types

import (
	"go.uber.org/zap"

	"github.com/openscribe/consult-api/internal/auth"
	"github.com/openscribe/consult-api/internal/database"
	"github.com/openscribe/consult-api/internal/services/audit"
	"github.com/openscribe/consult-api/internal/services/jobs"
	"github.com/openscribe/consult-api/internal/services/recordings"
	"github.com/openscribe/consult-api/internal/services/transcripts"
	"github.com/openscribe/consult-api/internal/services/workers"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB                *database.DB
	RecordingService  recordings.Service
	BlobStore         recordings.BlobStore
	TranscriptService *transcripts.Service
	AuditService      *audit.Service
	JobService        jobs.Service
	WorkerPool        *workers.WorkerPool
	JWTService        *auth.JWTService
	WebhookSecret     string
	Logger            *zap.Logger
}
