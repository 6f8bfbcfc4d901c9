package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openscribe/consult-api/internal/client/netmon"
	"github.com/openscribe/consult-api/internal/client/queue"
	"github.com/openscribe/consult-api/internal/client/syncer"
	"github.com/openscribe/consult-api/pkg/config"
)

// syncAgentCmd represents the sync-agent command
var syncAgentCmd = &cobra.Command{
	Use:   "sync-agent",
	Short: "Run the client-side sync agent",
	Long: `Run the sync agent that drains the durable local recording queue.

The agent watches network status by probing the server's health endpoint and
uploads queued recordings whenever the server is reachable: on startup, on
reconnect and on a steady interval. Entries that keep failing are retained
locally once they hit the retry ceiling.

Example:
  consult-api sync-agent
  consult-api sync-agent --queue ./data/pending.db`,
	RunE: runSyncAgent,
}

var syncQueuePath string

func init() {
	rootCmd.AddCommand(syncAgentCmd)

	syncAgentCmd.Flags().StringVar(&syncQueuePath, "queue", "", "queue database path (overrides config)")
}

func runSyncAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	queuePath := syncQueuePath
	if queuePath == "" {
		queuePath = cfg.Client.QueuePath
	}

	q, err := queue.Open(queuePath, queue.WithRetryCeiling(cfg.Client.RetryCeiling))
	if err != nil {
		return fmt.Errorf("failed to open queue: %w", err)
	}
	defer func() { _ = q.Close() }()

	monitor := netmon.NewMonitor(netmon.Config{
		ProbeURL:      cfg.Client.ServerURL + "/health",
		ProbeInterval: cfg.Client.ProbeInterval,
		ProbeTimeout:  cfg.Client.ProbeTimeout,
		SlowThreshold: cfg.Client.SlowThreshold,
	})

	apiClient := syncer.NewAPIClient(cfg.Client.ServerURL, cfg.Client.Token)

	sync := syncer.NewSyncer(q, apiClient, monitor, syncer.Config{
		SyncInterval:      cfg.Client.SyncInterval,
		RetryDelay:        cfg.Client.RetryDelay,
		LargePayloadBytes: cfg.Client.LargePayloadBytes,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	monitor.Start(ctx)
	defer monitor.Stop()

	fmt.Printf("Sync agent running (queue: %s, server: %s)\n", queuePath, cfg.Client.ServerURL)

	done := make(chan struct{})
	go func() {
		sync.Run(ctx)
		close(done)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	fmt.Println("\nStopping sync agent...")

	sync.Abort()
	sync.Stop()
	cancel()
	<-done

	fmt.Println("Sync agent stopped")
	return nil
}
