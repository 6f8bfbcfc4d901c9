package cmd

import (
	"fmt"
	"os"

	"github.com/openscribe/consult-api/pkg/config"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "consult-api",
	Short: "Clinical consultation recording pipeline",
	Long: `Consult Recording API - the server and sync agent for the clinical
consultation recording pipeline.

The server accepts recording registrations from clinician devices, hands out
pre-signed upload URLs, drives the transcription lifecycle and ingests
provider callbacks. The sync agent runs on the capture device and drains the
durable local queue whenever the network allows.

Commands:
  serve       - Run the API server
  sync-agent  - Run the client-side sync agent
  migrate     - Manage the database schema
  version     - Print version information`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Set up configuration loading with lazy initialization
	cobra.OnInitialize(loadConfig)
}

// loadConfig loads the configuration when a command needs it
// This is called lazily only when a command that needs config runs
func loadConfig() {
	// Skip config loading for commands that don't need it
	cmd, _, _ := rootCmd.Find(os.Args[1:])
	if cmd != nil && (cmd.Name() == "version" || cmd.Name() == "help") {
		return
	}

	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}
