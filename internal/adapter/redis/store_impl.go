package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
)

var _ repository.ArtifactStore = (*StoreImpl)(nil)

// StoreImpl keeps pipeline artifacts in Redis so stages can run on different hosts.
// Captures live in hashes (image, format); texts and the record are plain strings.
type StoreImpl struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStore creates a Redis-backed artifact store. A zero ttl keeps keys forever.
func NewStore(client *redis.Client, prefix string, ttl time.Duration) *StoreImpl {
	return &StoreImpl{client: client, prefix: prefix, ttl: ttl}
}

func (s *StoreImpl) captureKey(targetID string) string {
	return fmt.Sprintf("%s:capture:%s", s.prefix, targetID)
}

func (s *StoreImpl) textKey(targetID string) string {
	return fmt.Sprintf("%s:text:%s", s.prefix, targetID)
}

func (s *StoreImpl) recordKey() string {
	return s.prefix + ":record"
}

// SaveCapture replaces the capture hash in a single transaction.
func (s *StoreImpl) SaveCapture(ctx context.Context, capture *entity.Capture) error {
	key := s.captureKey(capture.TargetID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "image", capture.Image, "format", string(capture.Format))
		if !capture.CapturedAt.IsZero() {
			pipe.HSet(ctx, key, "captured_at", capture.CapturedAt.UTC().Format(time.RFC3339Nano))
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save capture for %s: %w", capture.TargetID, err)
	}
	return nil
}

func (s *StoreImpl) LoadCapture(ctx context.Context, targetID string) (*entity.Capture, error) {
	fields, err := s.client.HGetAll(ctx, s.captureKey(targetID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load capture for %s: %w", targetID, err)
	}
	image, ok := fields["image"]
	if !ok {
		return nil, repository.ErrNotFound
	}
	format := entity.ImageFormat(fields["format"])
	if format == "" {
		format = entity.FormatPNG
	}
	capture := &entity.Capture{TargetID: targetID, Image: []byte(image), Format: format}
	if raw := fields["captured_at"]; raw != "" {
		if capture.CapturedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return nil, fmt.Errorf("parse capture time for %s: %w", targetID, err)
		}
	}
	return capture, nil
}

func (s *StoreImpl) CapturedAt(ctx context.Context, targetID string) (time.Time, error) {
	raw, err := s.client.HGet(ctx, s.captureKey(targetID), "captured_at").Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, repository.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("load capture time for %s: %w", targetID, err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse capture time for %s: %w", targetID, err)
	}
	return t, nil
}

func (s *StoreImpl) SaveText(ctx context.Context, text *entity.RecoveredText) error {
	if err := s.client.Set(ctx, s.textKey(text.TargetID), text.Text, s.ttl).Err(); err != nil {
		return fmt.Errorf("save text for %s: %w", text.TargetID, err)
	}
	return nil
}

func (s *StoreImpl) LoadText(ctx context.Context, targetID string) (*entity.RecoveredText, error) {
	val, err := s.client.Get(ctx, s.textKey(targetID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load text for %s: %w", targetID, err)
	}
	return &entity.RecoveredText{TargetID: targetID, Text: val}, nil
}

// DeleteText removes the key. DEL on a missing key is a no-op.
func (s *StoreImpl) DeleteText(ctx context.Context, targetID string) error {
	if err := s.client.Del(ctx, s.textKey(targetID)).Err(); err != nil {
		return fmt.Errorf("delete text for %s: %w", targetID, err)
	}
	return nil
}

func (s *StoreImpl) SaveRecord(ctx context.Context, record *entity.Record) error {
	data, err := entity.MarshalRecord(record)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.recordKey(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

func (s *StoreImpl) LoadRecord(ctx context.Context, schema *entity.Schema) (*entity.Record, error) {
	data, err := s.client.Get(ctx, s.recordKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	return entity.UnmarshalRecord(data, schema)
}

func (s *StoreImpl) DeleteRecord(ctx context.Context) error {
	if err := s.client.Del(ctx, s.recordKey()).Err(); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

func (s *StoreImpl) Close() error {
	return s.client.Close()
}
