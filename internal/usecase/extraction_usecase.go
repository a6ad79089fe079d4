package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
)

// ExtractionStage turns the combined recovered texts into exactly one record.
// Any extractor or decoding error fails the stage.
type ExtractionStage struct {
	targets   []entity.Target
	schema    *entity.Schema
	captures  repository.CaptureStore
	texts     repository.TextStore
	extractor repository.FieldExtractor
	records   repository.RecordStore
	now       func() time.Time
}

// NewExtractionStage creates the structured extraction stage.
func NewExtractionStage(
	targets []entity.Target,
	schema *entity.Schema,
	captures repository.CaptureStore,
	texts repository.TextStore,
	extractor repository.FieldExtractor,
	records repository.RecordStore,
) *ExtractionStage {
	return &ExtractionStage{
		targets:   targets,
		schema:    schema,
		captures:  captures,
		texts:     texts,
		extractor: extractor,
		records:   records,
		now:       time.Now,
	}
}

func (s *ExtractionStage) Name() entity.StageName { return entity.StageExtraction }

func (s *ExtractionStage) Run(ctx context.Context) error {
	_, err := s.Extract(ctx)
	return err
}

// Extract builds the corpus, calls the extractor once (even for an empty
// corpus) and stores the decoded record for the persistence stage. The
// previous record is removed first so a failed extraction leaves nothing
// for persistence to append.
func (s *ExtractionStage) Extract(ctx context.Context) (*entity.Record, error) {
	log := stageLogger(ctx, entity.StageExtraction)

	if err := s.records.DeleteRecord(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear previous record: %w", err)
	}
	observedAt, err := s.observedAt(ctx)
	if err != nil {
		return nil, err
	}

	var texts []*entity.RecoveredText
	for _, target := range s.targets {
		text, err := s.texts.LoadText(ctx, target.ID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load text for %s: %w", target.ID, err)
		}
		texts = append(texts, text)
	}

	corpus := BuildCorpus(texts)
	log.Info("Extracting fields", "texts", len(texts), "corpus_chars", len(corpus))

	raw, err := s.extractor.ExtractFields(ctx, corpus, s.schema)
	if err != nil {
		return nil, fmt.Errorf("extraction service failed: %w", err)
	}

	record, err := DecodeRecord(raw, s.schema, observedAt)
	if err != nil {
		return nil, err
	}

	if err := s.records.SaveRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save record: %w", err)
	}
	log.Info("Record extracted", "fields", record.Map())
	return record, nil
}

// observedAt is the earliest capture time among the targets, or now when no
// capture is stored.
func (s *ExtractionStage) observedAt(ctx context.Context) (time.Time, error) {
	var earliest time.Time
	for _, target := range s.targets {
		capturedAt, err := s.captures.CapturedAt(ctx, target.ID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to load capture time for %s: %w", target.ID, err)
		}
		if earliest.IsZero() || capturedAt.Before(earliest) {
			earliest = capturedAt
		}
	}
	if earliest.IsZero() {
		return s.now(), nil
	}
	return earliest, nil
}

// BuildCorpus concatenates texts in the given order, each followed by a
// blank line.
func BuildCorpus(texts []*entity.RecoveredText) string {
	var b strings.Builder
	for _, t := range texts {
		b.WriteString(t.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// DecodeRecord parses an extraction response. The response must be a JSON
// object whose keys are exactly the schema field names and whose values are
// all strings.
func DecodeRecord(raw []byte, schema *entity.Schema, observedAt time.Time) (*entity.Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, entity.ErrMalformedResponse
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrMalformedResponse, err)
	}

	record := entity.NewRecord(schema, observedAt)
	seen := make(map[string]bool, len(obj))
	for key, value := range obj {
		value = bytes.TrimSpace(value)
		if len(value) == 0 || value[0] != '"' {
			return nil, fmt.Errorf("%w: field %q is not a string", entity.ErrSchemaMismatch, key)
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", entity.ErrSchemaMismatch, key, err)
		}
		if err := record.Set(key, s); err != nil {
			return nil, err
		}
		seen[key] = true
	}

	var missing []string
	for _, name := range schema.Names() {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing fields %s", entity.ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return record, nil
}
