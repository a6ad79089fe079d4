package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/user/goldwatch/internal/entity"
)

// stageCommands maps each stage to its sub-command name. run --exec starts
// the current binary with these names.
var stageCommands = map[entity.StageName]string{
	entity.StageCapture:      "capture",
	entity.StageTextRecovery: "recover",
	entity.StageExtraction:   "extract",
	entity.StagePersistence:  "persist",
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Screenshot every target page",
	Args:  cobra.NoArgs,
	RunE:  stageRunner(entity.StageCapture),
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Recover text from the stored screenshots",
	Args:  cobra.NoArgs,
	RunE:  stageRunner(entity.StageTextRecovery),
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract one price record from the recovered texts",
	Args:  cobra.NoArgs,
	RunE:  stageRunner(entity.StageExtraction),
}

var persistCmd = &cobra.Command{
	Use:   "persist",
	Short: "Append the extracted record to the configured sinks",
	Args:  cobra.NoArgs,
	RunE:  stageRunner(entity.StagePersistence),
}

func init() {
	rootCmd.AddCommand(captureCmd, recoverCmd, extractCmd, persistCmd)
}

func stageRunner(name entity.StageName) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, stop := commandContext(cmd)
		defer stop()
		defer pushMetrics()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				slog.Warn("Failed to release resources", "error", err)
			}
		}()

		stage, err := a.stage(ctx, name)
		if err != nil {
			return err
		}
		return stage.Run(ctx)
	}
}
