package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/openscribe/consult-api/api/health"
	apirecordings "github.com/openscribe/consult-api/api/recordings"
	"github.com/openscribe/consult-api/api/types"
	"github.com/openscribe/consult-api/api/version"
	apiwebhooks "github.com/openscribe/consult-api/api/webhooks"
	"github.com/openscribe/consult-api/internal/auth"
	"github.com/openscribe/consult-api/internal/services/audit"
	"github.com/openscribe/consult-api/internal/services/dispatch"
	"github.com/openscribe/consult-api/internal/services/jobs"
	"github.com/openscribe/consult-api/internal/services/recordings"
	"github.com/openscribe/consult-api/internal/services/storage"
	"github.com/openscribe/consult-api/internal/services/transcripts"
	"github.com/openscribe/consult-api/internal/services/webhooks"
	"github.com/openscribe/consult-api/pkg/config"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if deps == nil {
		deps = &types.Dependencies{}
	}

	if deps.JWTService == nil {
		deps.JWTService = auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpire)
	}
	if deps.WebhookSecret == "" {
		deps.WebhookSecret = cfg.Provider.WebhookSecret
	}

	if deps.DB == nil || deps.DB.DB == nil {
		return nil
	}

	if deps.RecordingService == nil {
		if err := initializeRecordingService(deps, cfg); err != nil {
			return fmt.Errorf("failed to initialize recording service: %w", err)
		}
	}

	// Provider callbacks authenticate by signature, not bearer token.
	// Rate limited generously: redeliveries arrive in bursts.
	webhookHandler := apiwebhooks.NewHandler(
		deps.RecordingService,
		webhooks.NewRepository(deps.DB.DB),
		deps.AuditService,
		deps.WebhookSecret,
		deps.Logger,
	)
	webhookGroup := engine.Group("/webhooks")
	webhookGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, 20, 40))
	apiwebhooks.RegisterRoutes(webhookGroup, webhookHandler)

	// API v1 routes
	v1 := engine.Group("/api/v1")

	// Register recording routes behind auth with general rate limiting
	// (10 req/s, burst of 20)
	recordingGroup := v1.Group("/recordings")
	recordingGroup.Use(RequireAuth(deps.JWTService))
	recordingGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, 10, 20))
	apirecordings.RegisterRoutes(recordingGroup, deps)

	return nil
}

// initializeRecordingService creates and wires the recording lifecycle
// service and its collaborators
func initializeRecordingService(deps *types.Dependencies, cfg *config.Config) error {
	blobs, err := storage.NewS3(context.Background(), storage.Config{
		Region:          cfg.Storage.Region,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		PresignExpire:   cfg.Storage.PresignExpire,
	}, deps.Logger)
	if err != nil {
		return err
	}
	deps.BlobStore = blobs

	if deps.TranscriptService == nil {
		deps.TranscriptService = transcripts.NewService(transcripts.NewRepository(deps.DB.DB))
	}
	if deps.AuditService == nil {
		deps.AuditService = audit.NewService(audit.NewRepository(deps.DB.DB))
	}
	if deps.JobService == nil {
		deps.JobService = jobs.NewService(jobs.NewRepository(deps.DB.DB))
	}

	dispatcher := dispatch.NewDispatcher(deps.JobService, deps.Logger)

	deps.RecordingService = recordings.NewService(
		recordings.NewRepository(deps.DB.DB),
		blobs,
		deps.TranscriptService,
		deps.AuditService,
		dispatcher,
		deps.JobService,
		recordings.WithMaxUploadBytes(cfg.Recordings.MaxUploadBytes),
	)

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(404, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
