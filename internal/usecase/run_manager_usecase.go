package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
)

// RunManager is the serve-mode entry point: it triggers runs from HTTP and
// from the schedule and answers history queries.
type RunManager interface {
	Trigger(ctx context.Context) (*entity.RunReport, error)
	Latest(ctx context.Context) (*entity.RunReport, error)
	History(ctx context.Context, n int) ([]*entity.RunReport, error)
}

type runManagerUseCase struct {
	runner  PipelineRunner
	lock    repository.RunLock
	history repository.RunHistory
	lockTTL time.Duration
}

// NewRunManager wraps runner. lock and history may be nil for a single
// replica without shared state.
func NewRunManager(runner PipelineRunner, lock repository.RunLock, history repository.RunHistory, lockTTL time.Duration) RunManager {
	return &runManagerUseCase{
		runner:  runner,
		lock:    lock,
		history: history,
		lockTTL: lockTTL,
	}
}

// Trigger runs the pipeline once. It returns ErrRunInProgress when this
// process or another lock holder is already running.
func (uc *runManagerUseCase) Trigger(ctx context.Context) (*entity.RunReport, error) {
	if uc.lock != nil {
		acquired, err := uc.lock.Acquire(ctx, uc.lockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, ErrRunInProgress
		}
		defer func() {
			if err := uc.lock.Release(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("Failed to release run lock", "error", err)
			}
		}()
	}

	report, err := uc.runner.Run(ctx)
	if report != nil && uc.history != nil {
		if herr := uc.history.Push(context.WithoutCancel(ctx), report); herr != nil {
			// The run itself is done; losing the history entry is not fatal.
			slog.Error("Failed to record run history", "run_id", report.RunID, "error", herr)
		}
	}
	return report, err
}

// Latest prefers the shared history, which also sees other replicas' runs.
// This process's last report covers a missing history or a lost push.
func (uc *runManagerUseCase) Latest(ctx context.Context) (*entity.RunReport, error) {
	if uc.history != nil {
		reports, err := uc.history.Recent(ctx, 1)
		if err != nil {
			return nil, err
		}
		if len(reports) > 0 {
			return reports[0], nil
		}
	}
	return uc.runner.LastReport(), nil
}

// History returns up to n recent runs, newest first. Without a shared
// history only this process's last run is known.
func (uc *runManagerUseCase) History(ctx context.Context, n int) ([]*entity.RunReport, error) {
	if uc.history != nil {
		return uc.history.Recent(ctx, n)
	}
	if report := uc.runner.LastReport(); report != nil && n > 0 {
		return []*entity.RunReport{report}, nil
	}
	return nil, nil
}

// Schedule triggers a run every interval until ctx is done. Overlapping
// triggers are skipped, not queued.
func Schedule(ctx context.Context, manager RunManager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Scheduler started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return
		case <-ticker.C:
			_, err := manager.Trigger(ctx)
			switch {
			case errors.Is(err, ErrRunInProgress):
				slog.Info("Skipping scheduled run, another run is in progress")
			case err != nil:
				slog.Error("Scheduled run failed", "error", err)
			}
		}
	}
}
