package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
	"github.com/user/goldwatch/pkg/metrics"
)

// RecoveryInstruction is sent with every capture.
const RecoveryInstruction = "Extract all text from this image. Return only the extracted text without any additional commentary."

// RecoveryOptions tunes how captures are submitted to the recognizer.
type RecoveryOptions struct {
	// Concurrency bounds in-flight recognizer calls. Values below 1 mean 1.
	Concurrency int
	// RatePerSecond paces recognizer calls. Zero disables pacing.
	RatePerSecond float64
}

// RecoveryReport lists target ids by outcome, each in registry order.
type RecoveryReport struct {
	Recovered []string
	Failed    []string
	Missing   []string
}

// RecoveryStage turns captures into text. Recognizer failures are isolated
// per target: they are logged and skipped. Only store errors fail the stage.
type RecoveryStage struct {
	targets    []entity.Target
	captures   repository.CaptureStore
	texts      repository.TextStore
	recognizer repository.TextRecognizer
	opts       RecoveryOptions
	limiter    *rate.Limiter
}

// NewRecoveryStage creates the text recovery stage.
func NewRecoveryStage(
	targets []entity.Target,
	captures repository.CaptureStore,
	texts repository.TextStore,
	recognizer repository.TextRecognizer,
	opts RecoveryOptions,
) *RecoveryStage {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	return &RecoveryStage{
		targets:    targets,
		captures:   captures,
		texts:      texts,
		recognizer: recognizer,
		opts:       opts,
		limiter:    limiter,
	}
}

func (s *RecoveryStage) Name() entity.StageName { return entity.StageTextRecovery }

func (s *RecoveryStage) Run(ctx context.Context) error {
	_, err := s.Recover(ctx)
	return err
}

type recoveryOutcome int

const (
	outcomeMissing recoveryOutcome = iota
	outcomeRecovered
	outcomeFailed
)

type recoveryResult struct {
	outcome recoveryOutcome
	text    string
}

// Recover runs recognition for every stored capture. Results are indexed by
// registry position, so saved texts and the report never depend on which
// call finished first.
func (s *RecoveryStage) Recover(ctx context.Context) (*RecoveryReport, error) {
	log := stageLogger(ctx, entity.StageTextRecovery)

	// Stale texts from a previous run must not leak into this run's corpus.
	for _, target := range s.targets {
		if err := s.texts.DeleteText(ctx, target.ID); err != nil {
			return nil, fmt.Errorf("failed to clear previous text: %w", err)
		}
	}

	results := make([]recoveryResult, len(s.targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, target := range s.targets {
		g.Go(func() error {
			capture, err := s.captures.LoadCapture(gctx, target.ID)
			if errors.Is(err, repository.ErrNotFound) {
				log.Warn("No capture for target, skipping", "target", target.ID)
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to load capture for %s: %w", target.ID, err)
			}

			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					return err
				}
			}

			log.Info("Recovering text", "target", target.ID)
			text, err := s.recognizer.RecognizeText(gctx, capture.Image, capture.Format.MIMEType(), RecoveryInstruction)
			if err != nil {
				log.Error("Text recovery failed, skipping target", "target", target.ID, "error", err)
				metrics.RecoveryItemsTotal.WithLabelValues(target.ID, "failure").Inc()
				results[i] = recoveryResult{outcome: outcomeFailed}
				return nil
			}
			metrics.RecoveryItemsTotal.WithLabelValues(target.ID, "success").Inc()
			results[i] = recoveryResult{outcome: outcomeRecovered, text: strings.TrimSpace(text)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &RecoveryReport{}
	for i, target := range s.targets {
		switch results[i].outcome {
		case outcomeRecovered:
			if err := s.texts.SaveText(ctx, &entity.RecoveredText{TargetID: target.ID, Text: results[i].text}); err != nil {
				return nil, fmt.Errorf("failed to save text for %s: %w", target.ID, err)
			}
			log.Info("Text saved", "target", target.ID, "chars", len(results[i].text))
			report.Recovered = append(report.Recovered, target.ID)
		case outcomeFailed:
			report.Failed = append(report.Failed, target.ID)
		default:
			report.Missing = append(report.Missing, target.ID)
		}
	}

	log.Info("Text recovery finished",
		"recovered", len(report.Recovered),
		"failed", len(report.Failed),
		"missing", len(report.Missing),
	)
	return report, nil
}
