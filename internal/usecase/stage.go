package usecase

import (
	"context"
	"log/slog"

	"github.com/user/goldwatch/internal/entity"
)

// Stage is one unit of pipeline work. The orchestrator only sees whether
// Run returned an error, so in-process and out-of-process stages are
// interchangeable.
type Stage interface {
	Name() entity.StageName
	Run(ctx context.Context) error
}

type runIDKey struct{}

// WithRunID tags ctx so stage logs carry the orchestrator's run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFrom returns the run id stored in ctx, if any.
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

func stageLogger(ctx context.Context, stage entity.StageName) *slog.Logger {
	l := slog.Default().With("stage", string(stage))
	if id := RunIDFrom(ctx); id != "" {
		l = l.With("run_id", id)
	}
	return l
}
