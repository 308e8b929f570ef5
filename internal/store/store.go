package store

import (
	"context"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/model"
)

// ItemStats holds aggregate outcome statistics across all batches.
type ItemStats struct {
	Batches       int            `json:"batches"`
	Items         int            `json:"items"`
	CountByStatus map[string]int `json:"count_by_status"`
	Skipped       int            `json:"skipped"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// Store defines the persistence operations for batch history.
type Store interface {
	CreateBatch(ctx context.Context, b *model.Batch) error
	FinishBatch(ctx context.Context, b *model.Batch) error
	GetBatch(ctx context.Context, id string) (*model.Batch, error)
	ListBatches(ctx context.Context, limit, offset int) ([]*model.Batch, int, error)
	InsertItem(ctx context.Context, rec *model.ItemRecord) error
	ListItems(ctx context.Context, batchID string) ([]model.ItemRecord, error)
	GetItemStats(ctx context.Context) (*ItemStats, error)
	Close() error
}
