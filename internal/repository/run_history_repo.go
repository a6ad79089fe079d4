package repository

import (
	"context"

	"github.com/user/goldwatch/internal/entity"
)

// RunHistory keeps the most recent run reports, newest first.
type RunHistory interface {
	// Push records a finished run.
	Push(ctx context.Context, report *entity.RunReport) error
	// Recent returns up to n reports, newest first.
	Recent(ctx context.Context, n int) ([]*entity.RunReport, error)
}
