package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "lanequeue",
		Short: "5v5 lane-aware matchmaking queue",
		Long: `lanequeue runs the matchmaking queue service and talks to a running one.

"serve" and "tick" run in-process against the backends selected by the
environment (STORAGE_TYPE, REDIS_URL, DATABASE_URL, ...). The remaining
commands call the HTTP API of a running server.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: LANEQUEUE_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.EnvFile, "env-file", cfg.EnvFile, "Optional .env file for in-process commands")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")

	// In-process
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTickCmd())

	// API client
	rootCmd.AddCommand(newQueueCmd())
	rootCmd.AddCommand(newStateCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newPassCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
