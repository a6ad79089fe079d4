package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/pkg/metrics"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// PipelineRunner triggers runs and exposes the latest report.
type PipelineRunner interface {
	Run(ctx context.Context) (*entity.RunReport, error)
	LastReport() *entity.RunReport
}

var _ PipelineRunner = (*Orchestrator)(nil)

// StageError reports which stage halted a run.
type StageError struct {
	Stage entity.StageName
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Orchestrator runs capture -> text_recovery -> extraction -> persistence and
// stops at the first failing stage. It never retries and leaves whatever a
// failed stage wrote in place.
type Orchestrator struct {
	stages []Stage
	newID  func() string

	running sync.Mutex

	mu   sync.RWMutex
	last *entity.RunReport
}

// NewOrchestrator checks that stages follow entity.StageOrder exactly.
func NewOrchestrator(stages ...Stage) (*Orchestrator, error) {
	if len(stages) != len(entity.StageOrder) {
		return nil, fmt.Errorf("orchestrator needs %d stages, got %d", len(entity.StageOrder), len(stages))
	}
	for i, stage := range stages {
		if stage.Name() != entity.StageOrder[i] {
			return nil, fmt.Errorf("stage %d must be %s, got %s", i, entity.StageOrder[i], stage.Name())
		}
	}
	return &Orchestrator{stages: stages, newID: uuid.NewString}, nil
}

// Run executes every stage in order. On failure the report names the failed
// stage and the returned error is a *StageError.
func (o *Orchestrator) Run(ctx context.Context) (*entity.RunReport, error) {
	if !o.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.running.Unlock()

	report := &entity.RunReport{
		RunID:     o.newID(),
		StartedAt: time.Now(),
	}
	ctx = WithRunID(ctx, report.RunID)
	log := slog.With("run_id", report.RunID)
	log.Info("Starting gold price pipeline")

	for _, stage := range o.stages {
		report.State = stage.Name()
		log.Info("Running stage", "stage", stage.Name())

		startTime := time.Now()
		err := stage.Run(ctx)
		duration := time.Since(startTime)
		metrics.StageDuration.WithLabelValues(string(stage.Name())).Observe(duration.Seconds())

		outcome := entity.StageOutcome{Stage: stage.Name(), Success: err == nil, Duration: duration}
		if err != nil {
			metrics.StageRunsTotal.WithLabelValues(string(stage.Name()), "failure").Inc()
			outcome.Error = err.Error()
			report.Stages = append(report.Stages, outcome)
			report.State = entity.StageFailed
			report.FailedStage = stage.Name()
			report.Error = err.Error()
			report.FinishedAt = time.Now()
			o.setLast(report)

			log.Error("Pipeline failed", "stage", stage.Name(), "error", err)
			return report, &StageError{Stage: stage.Name(), Err: err}
		}

		metrics.StageRunsTotal.WithLabelValues(string(stage.Name()), "success").Inc()
		report.Stages = append(report.Stages, outcome)
		log.Info("Stage completed", "stage", stage.Name(), "duration_ms", duration.Milliseconds())
	}

	report.State = entity.StageDone
	report.FinishedAt = time.Now()
	o.setLast(report)
	metrics.LastSuccessTime.SetToCurrentTime()
	log.Info("Pipeline completed successfully", "duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds())
	return report, nil
}

func (o *Orchestrator) setLast(report *entity.RunReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.last = report
}

// LastReport returns the most recent finished run, or nil.
func (o *Orchestrator) LastReport() *entity.RunReport {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last
}
