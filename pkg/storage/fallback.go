package storage

import (
	"context"
	"log/slog"
	"sort"

	"github.com/edupulse/healthwatch/pkg/model"
)

// Fallback composes a durable primary store with an in-process cache so a
// store outage degrades instead of failing: writes that the primary reports
// as unsaved land in the cache, and reads merge both paths.
//
// The merge is not globally consistent. Alerts generated while the primary
// is unreachable are deduplicated only against each other and whatever the
// primary last returned, not against rows other sessions wrote to it in the
// interim. That trade-off is accepted; the conflict-ignoring insert on the
// primary is the only cross-session guard.
type Fallback struct {
	primary AlertStore
	cache   *Memory
	logger  *slog.Logger
}

// NewFallback wraps a durable store with an in-process cache.
func NewFallback(primary AlertStore, cache *Memory, logger *slog.Logger) *Fallback {
	return &Fallback{primary: primary, cache: cache, logger: logger}
}

func (f *Fallback) ReadOpen(ctx context.Context, limit int) ([]model.Alert, error) {
	primary, err := f.primary.ReadOpen(ctx, limit)
	if err != nil {
		f.logger.Warn("durable store unreachable, reading fallback cache", "error", err)
		return f.cache.ReadOpen(ctx, limit)
	}

	cached, cacheErr := f.cache.ReadOpen(ctx, 0)
	if cacheErr != nil || len(cached) == 0 {
		return primary, nil
	}

	// Keep cache-only alerts visible after the primary recovers.
	seen := make(map[string]struct{}, len(primary))
	for _, a := range primary {
		seen[a.ID] = struct{}{}
	}
	merged := primary
	for _, a := range cached {
		if _, ok := seen[a.ID]; !ok {
			merged = append(merged, a)
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (f *Fallback) Get(ctx context.Context, id string) (*model.Alert, error) {
	a, err := f.primary.Get(ctx, id)
	if err == nil {
		return a, nil
	}
	if err != ErrNotFound {
		f.logger.Warn("durable store unreachable, reading fallback cache", "error", err)
	}
	return f.cache.Get(ctx, id)
}

func (f *Fallback) Persist(ctx context.Context, alerts []model.Alert, batchID string) (int, error) {
	if len(alerts) == 0 {
		return 0, nil
	}

	saved, err := f.primary.Persist(ctx, alerts, batchID)
	if err == nil && saved > 0 {
		return saved, nil
	}
	if err != nil {
		f.logger.Warn("durable store write failed, caching alerts in process", "error", err, "alerts", len(alerts))
	} else {
		f.logger.Warn("durable store saved zero rows, caching alerts in process", "alerts", len(alerts))
	}

	// Append-only: alerts cached during one outage must survive the next.
	return f.cache.Persist(ctx, alerts, batchID)
}

func (f *Fallback) UpdateStatus(ctx context.Context, id string, to model.Status, notes string) (bool, error) {
	ok, err := f.primary.UpdateStatus(ctx, id, to, notes)
	if err == nil && ok {
		return true, nil
	}
	if err != nil {
		f.logger.Warn("durable store status update failed, trying fallback cache", "alert_id", id, "error", err)
	}
	// The alert may only exist in the cache (generated during an outage).
	return f.cache.UpdateStatus(ctx, id, to, notes)
}

func (f *Fallback) RecordBatch(ctx context.Context, batch *model.GenerationBatch) error {
	return f.primary.RecordBatch(ctx, batch)
}

func (f *Fallback) ReadBatches(ctx context.Context, limit int) ([]model.GenerationBatch, error) {
	batches, err := f.primary.ReadBatches(ctx, limit)
	if err != nil {
		return f.cache.ReadBatches(ctx, limit)
	}
	return batches, nil
}

func (f *Fallback) Close() error {
	_ = f.cache.Close()
	return f.primary.Close()
}
