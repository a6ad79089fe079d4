package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
	"github.com/user/goldwatch/pkg/metrics"
)

// ErrNoSinks is returned when the persistence stage has nothing to write to.
var ErrNoSinks = errors.New("no sinks configured")

// SinkResult is the outcome of writing one record to one sink.
type SinkResult struct {
	Sink string
	Ref  string
	Err  error
}

// PersistenceStage appends the latest record to every configured sink.
type PersistenceStage struct {
	schema  *entity.Schema
	records repository.RecordStore
	sinks   []repository.Sink
}

// NewPersistenceStage creates the persistence stage.
func NewPersistenceStage(schema *entity.Schema, records repository.RecordStore, sinks []repository.Sink) *PersistenceStage {
	return &PersistenceStage{
		schema:  schema,
		records: records,
		sinks:   sinks,
	}
}

func (s *PersistenceStage) Name() entity.StageName { return entity.StagePersistence }

func (s *PersistenceStage) Run(ctx context.Context) error {
	record, err := s.records.LoadRecord(ctx, s.schema)
	if err != nil {
		return fmt.Errorf("failed to load extracted record: %w", err)
	}
	_, err = s.Persist(ctx, record)
	return err
}

// Persist writes record to every sink. Sinks are independent: each one is
// attempted regardless of the others, and the returned error joins every
// sink failure.
func (s *PersistenceStage) Persist(ctx context.Context, record *entity.Record) ([]SinkResult, error) {
	log := stageLogger(ctx, entity.StagePersistence)

	if len(s.sinks) == 0 {
		return nil, ErrNoSinks
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	results := make([]SinkResult, 0, len(s.sinks))
	var errs []error
	for _, sink := range s.sinks {
		ref, err := writeToSink(ctx, sink, record)
		results = append(results, SinkResult{Sink: sink.Name(), Ref: ref, Err: err})
		if err != nil {
			log.Error("Sink write failed", "sink", sink.Name(), "error", err)
			metrics.SinkWritesTotal.WithLabelValues(sink.Name(), "failure").Inc()
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
			continue
		}
		log.Info("Record written", "sink", sink.Name(), "ref", ref)
		metrics.SinkWritesTotal.WithLabelValues(sink.Name(), "success").Inc()
	}
	return results, errors.Join(errs...)
}

func writeToSink(ctx context.Context, sink repository.Sink, record *entity.Record) (string, error) {
	if err := sink.EnsureSchema(ctx); err != nil {
		return "", fmt.Errorf("bootstrap: %w", err)
	}
	ref, err := sink.Append(ctx, record)
	if err != nil {
		return "", fmt.Errorf("append: %w", err)
	}
	return ref, nil
}
