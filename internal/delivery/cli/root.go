package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/goldwatch/internal/usecase"
	"github.com/user/goldwatch/pkg/config"
	"github.com/user/goldwatch/pkg/logger"
	"github.com/user/goldwatch/pkg/metrics"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagConfig   string
	flagLogLevel string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "goldwatch",
	Short: "Gold price monitoring pipeline",
	Long: `goldwatch captures vendor price pages with a headless browser, recovers
their text with a vision model, extracts one structured price record and
appends it to the configured sinks.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", ".env", "path to env config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		loaded.LogLevel = flagLogLevel
	}
	cfg = loaded

	logger.Init(os.Stdout, logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	metrics.Init()
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// SetVersionInfo is called from main with build-time values.
func SetVersionInfo(v, c string) {
	version = v
	commit = c
}

// commandContext is cancelled on SIGINT or SIGTERM and carries the parent
// run id when this process was started by an orchestrator.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	if id := os.Getenv(usecase.RunIDEnv); id != "" {
		ctx = usecase.WithRunID(ctx, id)
	}
	return ctx, stop
}

func pushMetrics() {
	if cfg.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(cfg.PushgatewayURL, "goldwatch"); err != nil {
		slog.Warn("Failed to push metrics", "error", err)
	}
}
