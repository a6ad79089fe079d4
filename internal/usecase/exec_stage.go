package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/user/goldwatch/internal/entity"
)

// RunIDEnv carries the orchestrator's run id into child stage processes.
const RunIDEnv = "GOLDWATCH_RUN_ID"

// ExecStage runs a stage as a child process, for example the current binary
// with the stage's sub-command. Only the exit status is observed.
type ExecStage struct {
	name   entity.StageName
	path   string
	args   []string
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecStage creates a stage that runs path with args. Output goes to the
// parent's stdout and stderr unless overridden.
func NewExecStage(name entity.StageName, path string, args ...string) *ExecStage {
	return &ExecStage{
		name:   name,
		path:   path,
		args:   args,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (s *ExecStage) Name() entity.StageName { return s.name }

func (s *ExecStage) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.path, s.args...)
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if id := RunIDFrom(ctx); id != "" {
		cmd.Env = append(os.Environ(), RunIDEnv+"="+id)
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", s.path, s.args, err)
	}
	return nil
}
