package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"iot-ingest-backend/internal/config"
)

var (
	configPath string
	verbose    bool
)

// rootCmd serves the API when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "iot-ingest",
	Short: "Device registry and reading ingestion service",
	Long: `Registers devices, ingests batches of timestamped readings with
duplicate suppression, and serves the latest and historical readings over HTTP.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the command tree with a context cancelled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")
}

// loadConfig reads the configuration and installs the default logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		setupLogger(slog.LevelInfo)
		return config.Config{}, err
	}
	level, _ := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	setupLogger(level)
	return cfg, nil
}

func setupLogger(level slog.Level) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
