package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/goldwatch/internal/adapter/chromedp_browser"
	"github.com/user/goldwatch/internal/adapter/csvfile"
	"github.com/user/goldwatch/internal/adapter/filestore"
	"github.com/user/goldwatch/internal/adapter/openai"
	"github.com/user/goldwatch/internal/adapter/postgres"
	redis_adapter "github.com/user/goldwatch/internal/adapter/redis"
	"github.com/user/goldwatch/internal/adapter/sheets"
	"github.com/user/goldwatch/internal/adapter/sqlite"
	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
	"github.com/user/goldwatch/internal/usecase"
	"github.com/user/goldwatch/pkg/config"
)

// app owns every handle a command opens. Close releases them in reverse
// order of acquisition.
type app struct {
	cfg     *config.Config
	targets []entity.Target
	schema  *entity.Schema

	store   repository.ArtifactStore
	rdb     *redis.Client
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.RequireStore(); err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		targets: entity.DefaultTargets,
		schema:  entity.GoldPriceSchema,
	}

	switch cfg.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("unable to connect to Redis: %w", err)
		}
		a.rdb = rdb
		a.store = redis_adapter.NewStore(rdb, cfg.RedisKeyPrefix, 0)
	default:
		store, err := filestore.New(cfg.OutputDir)
		if err != nil {
			return nil, err
		}
		a.store = store
	}
	a.closers = append(a.closers, a.store.Close)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func (a *app) llmClient() (*openai.Client, error) {
	if err := a.cfg.RequireOpenAI(); err != nil {
		return nil, err
	}
	return openai.New(openai.Config{
		APIKey:          a.cfg.OpenAIAPIKey,
		BaseURL:         a.cfg.OpenAIBaseURL,
		VisionModel:     a.cfg.VisionModel,
		VisionMaxTokens: a.cfg.VisionMaxTokens,
		ExtractionModel: a.cfg.ExtractionModel,
		Timeout:         a.cfg.LLMTimeout(),
	})
}

func (a *app) captureStage() *usecase.CaptureStage {
	launcher := chromedp_browser.NewLauncher(chromedp_browser.Options{
		PageLoadTimeout: a.cfg.PageLoadTimeout(),
		SettleDelay:     a.cfg.SettleDelay(),
		UserAgents:      a.cfg.BrowserUserAgents(),
		Proxies:         a.cfg.BrowserProxies(),
	})
	return usecase.NewCaptureStage(a.targets, launcher, a.store)
}

func (a *app) recoveryStage() (*usecase.RecoveryStage, error) {
	client, err := a.llmClient()
	if err != nil {
		return nil, err
	}
	return usecase.NewRecoveryStage(a.targets, a.store, a.store, client, usecase.RecoveryOptions{
		Concurrency:   a.cfg.RecoveryConcurrency,
		RatePerSecond: a.cfg.RecoveryRatePerSecond,
	}), nil
}

func (a *app) extractionStage() (*usecase.ExtractionStage, error) {
	client, err := a.llmClient()
	if err != nil {
		return nil, err
	}
	return usecase.NewExtractionStage(a.targets, a.schema, a.store, a.store, client, a.store), nil
}

func (a *app) persistenceStage(ctx context.Context) (*usecase.PersistenceStage, error) {
	sinks, err := a.openSinks(ctx)
	if err != nil {
		return nil, err
	}
	return usecase.NewPersistenceStage(a.schema, a.store, sinks), nil
}

// stage builds one in-process stage by name.
func (a *app) stage(ctx context.Context, name entity.StageName) (usecase.Stage, error) {
	switch name {
	case entity.StageCapture:
		return a.captureStage(), nil
	case entity.StageTextRecovery:
		return a.recoveryStage()
	case entity.StageExtraction:
		return a.extractionStage()
	case entity.StagePersistence:
		return a.persistenceStage(ctx)
	default:
		return nil, fmt.Errorf("unknown stage %q", name)
	}
}

// orchestrator wires all four stages in process.
func (a *app) orchestrator(ctx context.Context) (*usecase.Orchestrator, error) {
	stages := make([]usecase.Stage, 0, len(entity.StageOrder))
	for _, name := range entity.StageOrder {
		stage, err := a.stage(ctx, name)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return usecase.NewOrchestrator(stages...)
}

// openSinks opens every configured sink. Handles are released by Close.
func (a *app) openSinks(ctx context.Context) ([]repository.Sink, error) {
	if err := a.cfg.RequireSinks(); err != nil {
		return nil, err
	}

	var sinks []repository.Sink
	for _, name := range a.cfg.SinkNames() {
		switch name {
		case "file":
			sinks = append(sinks, csvfile.NewSink(a.cfg.FileSinkPath, a.schema))
		case "postgres":
			pool, err := postgres.Connect(ctx, a.cfg.DatabaseURL)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, func() error { pool.Close(); return nil })
			sink, err := postgres.NewSink(pool, a.cfg.DBTable, a.schema)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		case "sqlite":
			sink, err := sqlite.Open(a.cfg.SQLitePath, a.cfg.DBTable, a.schema)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, sink.Close)
			sinks = append(sinks, sink)
		case "sheets":
			creds, err := sheets.CredentialsFromFile(ctx, a.cfg.GoogleCredentials)
			if err != nil {
				return nil, err
			}
			sink, err := sheets.NewSink(ctx, a.cfg.SheetsID, a.cfg.SheetsTab, a.schema, creds)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		}
	}
	return sinks, nil
}

// runCoordination returns the shared lock and history when the Redis store
// is in use, so several serve replicas do not overlap.
func (a *app) runCoordination() (repository.RunLock, repository.RunHistory) {
	if a.rdb == nil {
		return nil, nil
	}
	return redis_adapter.NewRunLock(a.rdb, a.cfg.RedisKeyPrefix),
		redis_adapter.NewRunHistory(a.rdb, a.cfg.RedisKeyPrefix, a.cfg.RunHistoryLimit)
}
