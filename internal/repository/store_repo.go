package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/goldwatch/internal/entity"
)

// ErrNotFound is returned by stores when no artifact exists for a key.
var ErrNotFound = errors.New("artifact not found")

// CaptureStore holds the capture stage output, keyed by target id.
type CaptureStore interface {
	// SaveCapture stores or overwrites the capture for its target.
	SaveCapture(ctx context.Context, capture *entity.Capture) error
	// LoadCapture returns the capture for a target, or ErrNotFound.
	LoadCapture(ctx context.Context, targetID string) (*entity.Capture, error)
	// CapturedAt returns when a target's capture was taken, or ErrNotFound.
	CapturedAt(ctx context.Context, targetID string) (time.Time, error)
}

// TextStore holds recovered texts, keyed by target id.
type TextStore interface {
	// SaveText stores or overwrites the recovered text for its target.
	SaveText(ctx context.Context, text *entity.RecoveredText) error
	// LoadText returns the recovered text for a target, or ErrNotFound.
	LoadText(ctx context.Context, targetID string) (*entity.RecoveredText, error)
	// DeleteText removes a stale text. Deleting a missing text is not an error.
	DeleteText(ctx context.Context, targetID string) error
}

// RecordStore hands the extracted record from the extraction stage to the
// persistence stage.
type RecordStore interface {
	SaveRecord(ctx context.Context, record *entity.Record) error
	// LoadRecord returns the latest record decoded against schema, or ErrNotFound.
	LoadRecord(ctx context.Context, schema *entity.Schema) (*entity.Record, error)
	// DeleteRecord removes the stored record. Deleting a missing record is not an error.
	DeleteRecord(ctx context.Context) error
}

// ArtifactStore is the union implemented by the file and Redis adapters.
type ArtifactStore interface {
	CaptureStore
	TextStore
	RecordStore
	Close() error
}
