package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edupulse/healthwatch/pkg/model"
)

// Memory implements AlertStore in process memory. It backs the fallback
// cache when the durable store is unreachable: contents survive only for
// the life of the process, and writers only ever append or merge, never
// destructively replace.
type Memory struct {
	mu      sync.RWMutex
	alerts  map[string]model.Alert
	batches []model.GenerationBatch
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{alerts: make(map[string]model.Alert)}
}

func (m *Memory) ReadOpen(_ context.Context, limit int) ([]model.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var open []model.Alert
	for _, a := range m.alerts {
		if a.Status.BlocksDuplicate() {
			open = append(open, a)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].CreatedAt.After(open[j].CreatedAt)
	})
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

func (m *Memory) Get(_ context.Context, id string) (*model.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *Memory) Persist(_ context.Context, alerts []model.Alert, batchID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blocked := make(map[string]struct{})
	for _, a := range m.alerts {
		if a.Status.BlocksDuplicate() {
			blocked[a.Fingerprint] = struct{}{}
		}
	}

	saved := 0
	for _, a := range alerts {
		if _, dup := blocked[a.Fingerprint]; dup {
			continue
		}
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		a.BatchID = batchID
		m.alerts[a.ID] = a
		blocked[a.Fingerprint] = struct{}{}
		saved++
	}
	return saved, nil
}

func (m *Memory) UpdateStatus(_ context.Context, id string, to model.Status, notes string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok {
		return false, nil
	}
	a.SetStatus(to, notes, time.Now().UTC())
	m.alerts[id] = a
	return true, nil
}

func (m *Memory) RecordBatch(_ context.Context, batch *model.GenerationBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if batch.BatchID == "" {
		batch.BatchID = uuid.New().String()
	}
	if batch.CompletedAt.IsZero() {
		batch.CompletedAt = time.Now().UTC()
	}
	m.batches = append(m.batches, *batch)
	return nil
}

func (m *Memory) ReadBatches(_ context.Context, limit int) ([]model.GenerationBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	batches := make([]model.GenerationBatch, len(m.batches))
	copy(batches, m.batches)
	sort.Slice(batches, func(i, j int) bool {
		return batches[i].CompletedAt.After(batches[j].CompletedAt)
	})
	if limit > 0 && len(batches) > limit {
		batches = batches[:limit]
	}
	return batches, nil
}

func (m *Memory) Close() error {
	return nil
}
