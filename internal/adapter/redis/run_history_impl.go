package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
)

var _ repository.RunHistory = (*RunHistoryImpl)(nil)

// RunHistoryImpl keeps run reports in a capped Redis list, newest at the head.
type RunHistoryImpl struct {
	client *redis.Client
	key    string
	limit  int64
}

// NewRunHistory creates a history list at "<prefix>:runs" holding at most limit entries.
func NewRunHistory(client *redis.Client, prefix string, limit int) *RunHistoryImpl {
	if limit < 1 {
		limit = 1
	}
	return &RunHistoryImpl{client: client, key: prefix + ":runs", limit: int64(limit)}
}

// Push adds report to the head of the list and trims the tail.
func (h *RunHistoryImpl) Push(ctx context.Context, report *entity.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	_, err = h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, h.key, data)
		pipe.LTrim(ctx, h.key, 0, h.limit-1)
		return nil
	})
	return err
}

func (h *RunHistoryImpl) Recent(ctx context.Context, n int) ([]*entity.RunReport, error) {
	if n < 1 {
		return nil, nil
	}
	items, err := h.client.LRange(ctx, h.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	reports := make([]*entity.RunReport, 0, len(items))
	for _, item := range items {
		var report entity.RunReport
		if err := json.Unmarshal([]byte(item), &report); err != nil {
			return nil, fmt.Errorf("failed to decode run report: %w", err)
		}
		reports = append(reports, &report)
	}
	return reports, nil
}
