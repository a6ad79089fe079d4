package repository

import (
	"context"

	"github.com/user/goldwatch/internal/entity"
)

// Sink is a persistence destination for extracted records.
type Sink interface {
	// Name identifies the sink in logs, metrics and errors.
	Name() string
	// EnsureSchema creates the backing header, table or tab if absent.
	// Calling it repeatedly must not change an existing schema.
	EnsureSchema(ctx context.Context) error
	// Append writes one record and returns a sink-specific reference
	// (row id, file path, updated range).
	Append(ctx context.Context, record *entity.Record) (string, error)
}
