package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/usecase"
	"github.com/user/goldwatch/pkg/config"
)

var flagExec bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole pipeline once",
	Long: `Runs capture, text recovery, extraction and persistence in order and
stops at the first failing stage. With --exec every stage runs as a child
process of this binary.`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().BoolVar(&flagExec, "exec", false, "run each stage as a separate process")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()
	defer pushMetrics()

	var orchestrator *usecase.Orchestrator
	if flagExec {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
		if orchestrator, err = execOrchestrator(cfg, self, flagConfig, flagLogLevel); err != nil {
			return err
		}
	} else {
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				slog.Warn("Failed to release resources", "error", err)
			}
		}()
		if orchestrator, err = a.orchestrator(ctx); err != nil {
			return err
		}
	}

	report, err := orchestrator.Run(ctx)
	if report != nil {
		printReport(cmd, report)
	}
	var stageErr *usecase.StageError
	if errors.As(err, &stageErr) {
		return fmt.Errorf("stage %s failed: %w", stageErr.Stage, stageErr.Err)
	}
	return err
}

// execOrchestrator fails on missing settings for any stage before the first
// child starts.
func execOrchestrator(c *config.Config, self, configPath, logLevel string) (*usecase.Orchestrator, error) {
	for _, check := range []func() error{c.RequireStore, c.RequireOpenAI, c.RequireSinks} {
		if err := check(); err != nil {
			return nil, err
		}
	}
	return usecase.NewOrchestrator(execStages(self, configPath, logLevel)...)
}

// execStages builds one child-process stage per pipeline step.
func execStages(self, configPath, logLevel string) []usecase.Stage {
	stages := make([]usecase.Stage, 0, len(entity.StageOrder))
	for _, name := range entity.StageOrder {
		args := []string{stageCommands[name], "--config", configPath}
		if logLevel != "" {
			args = append(args, "--log-level", logLevel)
		}
		stages = append(stages, usecase.NewExecStage(name, self, args...))
	}
	return stages
}

func printReport(cmd *cobra.Command, report *entity.RunReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %s\n", report.RunID, report.State)
	for _, s := range report.Stages {
		status := "ok"
		if !s.Success {
			status = "FAILED: " + s.Error
		}
		fmt.Fprintf(out, "  %-14s %8s  %s\n", s.Stage, s.Duration.Round(time.Millisecond), status)
	}
}
