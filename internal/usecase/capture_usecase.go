package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
	"github.com/user/goldwatch/pkg/metrics"
)

// CaptureStage screenshots every target with one shared browser session.
// It is fail-fast: the first navigation or capture error aborts the stage.
type CaptureStage struct {
	targets  []entity.Target
	launcher repository.BrowserLauncher
	captures repository.CaptureStore
}

// NewCaptureStage creates the capture stage.
func NewCaptureStage(targets []entity.Target, launcher repository.BrowserLauncher, captures repository.CaptureStore) *CaptureStage {
	return &CaptureStage{
		targets:  targets,
		launcher: launcher,
		captures: captures,
	}
}

func (s *CaptureStage) Name() entity.StageName { return entity.StageCapture }

// Run visits targets in registry order. The browser is released when the
// stage returns, whatever the outcome.
func (s *CaptureStage) Run(ctx context.Context) error {
	log := stageLogger(ctx, entity.StageCapture)

	browser, err := s.launcher.Launch(ctx)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			log.Warn("Failed to close browser", "error", err)
		}
	}()

	for _, target := range s.targets {
		log.Info("Opening target", "target", target.ID, "url", target.URL)

		startTime := time.Now()
		image, err := browser.Screenshot(ctx, target.URL)
		metrics.CaptureDuration.WithLabelValues(target.ID).Observe(time.Since(startTime).Seconds())
		if err != nil {
			return fmt.Errorf("failed to capture target %s: %w", target.ID, err)
		}

		capture := &entity.Capture{TargetID: target.ID, Image: image, Format: entity.FormatPNG, CapturedAt: startTime}
		if err := s.captures.SaveCapture(ctx, capture); err != nil {
			return fmt.Errorf("failed to save capture for %s: %w", target.ID, err)
		}
		log.Info("Capture saved", "target", target.ID, "bytes", len(image), "duration_ms", time.Since(startTime).Milliseconds())
	}
	return nil
}
