package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/goldwatch/internal/delivery/http/handler"
	"github.com/user/goldwatch/internal/delivery/http/router"
	"github.com/user/goldwatch/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run the pipeline on a schedule",
	Long: `Starts the HTTP API (health, run trigger, run history, metrics) and
triggers a run every RUN_INTERVAL. A RUN_INTERVAL of 0 disables the schedule.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	interval, err := cfg.Interval()
	if err != nil {
		return err
	}

	ctx, stop := commandContext(cmd)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("Failed to release resources", "error", err)
		}
	}()

	orchestrator, err := a.orchestrator(ctx)
	if err != nil {
		return err
	}
	lock, history := a.runCoordination()
	manager := usecase.NewRunManager(orchestrator, lock, history, cfg.RunLockTTL())

	// No WriteTimeout: POST /api/runs holds the connection for a whole run.
	server := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     router.New(handler.NewHandler(manager)),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if interval > 0 {
		go usecase.Schedule(ctx, manager, interval)
	}

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("Server exited")
	return nil
}
