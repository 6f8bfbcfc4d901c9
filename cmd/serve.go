package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openscribe/consult-api/api"
	"github.com/openscribe/consult-api/api/types"
	"github.com/openscribe/consult-api/internal/database"
	"github.com/openscribe/consult-api/internal/models"
	"github.com/openscribe/consult-api/internal/services/provider"
	"github.com/openscribe/consult-api/internal/services/recordings"
	"github.com/openscribe/consult-api/internal/services/workers"
	"github.com/openscribe/consult-api/pkg/config"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Consult Recording API server with the configured settings.

The server accepts recording registrations, confirms uploads, ingests
transcription provider callbacks and runs the background workers that
dispatch transcription and letter generation.

Example:
  consult-api serve
  consult-api serve --port 9090
  consult-api serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server flags
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Use config values if flags not provided
	if serverHost == "" {
		serverHost = cfg.Server.Host
	}
	if serverPort == 0 {
		serverPort = cfg.Server.Port
	}

	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	defer func() { _ = logger.Sync() }()

	// Initialize database and migrate the schema
	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	deps := &types.Dependencies{
		DB:     db,
		Logger: logger,
	}

	server := api.NewServer(fmt.Sprintf("%s:%d", serverHost, serverPort))
	server.SetDependencies(deps)

	// Initialize wires services into deps as routes are registered
	if err := server.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	// Background workers claim jobs from the same database the handlers
	// enqueue into
	pool, err := startWorkerPool(cmd.Context(), deps, cfg)
	if err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer pool.Stop()

	fmt.Printf("Starting Consult Recording API server on %s:%d\n", serverHost, serverPort)

	// Channel to listen for interrupt signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	fmt.Printf("Server is ready to handle requests at %s:%d\n", serverHost, serverPort)

	select {
	case <-stop:
		fmt.Println("\nShutting down server...")
	case err := <-serverErr:
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
		fmt.Println("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Server forced to shutdown: %v\n", err)
		return err
	}

	fmt.Println("Server gracefully stopped")
	return nil
}

// startWorkerPool registers the job processors and starts the pool
func startWorkerPool(ctx context.Context, deps *types.Dependencies, cfg *config.Config) (*workers.WorkerPool, error) {
	if deps.JobService == nil || deps.RecordingService == nil {
		return nil, fmt.Errorf("services not initialized")
	}

	recordingRepo := recordings.NewRepository(deps.DB.DB)

	providerClient := provider.NewClient(provider.Config{
		BaseURL:     cfg.Provider.BaseURL,
		APIKey:      cfg.Provider.APIKey,
		CallbackURL: cfg.Provider.CallbackURL,
		Timeout:     cfg.Provider.Timeout,
	})

	pool := workers.NewWorkerPool(deps.JobService, cfg.Processing.Workers, cfg.Processing.PollInterval)
	pool.RegisterProcessor(workers.NewTranscriptionDispatchProcessor(
		recordingRepo,
		deps.RecordingService,
		deps.BlobStore,
		providerClient,
	))
	pool.RegisterProcessor(workers.NewLetterGenerationProcessor(
		recordingRepo,
		deps.TranscriptService,
		deps.AuditService,
		cfg.Recordings.DownstreamURL,
	))

	if err := pool.Start(ctx); err != nil {
		return nil, err
	}
	return pool, nil
}
