package storage

import (
	"context"
	"errors"

	"github.com/edupulse/healthwatch/pkg/model"
)

// ErrNotFound is returned when no alert exists for the requested id.
var ErrNotFound = errors.New("alert not found")

// AlertStore defines the persistence layer for alerts and generation audit
// rows. "Open" throughout means any status that still blocks a duplicate of
// the same fingerprint (everything except resolved and dismissed).
type AlertStore interface {
	// ReadOpen retrieves open alerts, most recent first. A limit of zero
	// or less means no limit.
	ReadOpen(ctx context.Context, limit int) ([]model.Alert, error)

	// Get retrieves a single alert by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*model.Alert, error)

	// Persist inserts alerts under the given batch id, ignoring conflicts
	// on the open-fingerprint key, and returns how many rows were saved.
	Persist(ctx context.Context, alerts []model.Alert, batchID string) (int, error)

	// UpdateStatus applies a status change with its timestamp side effects
	// and reports whether a row was updated.
	UpdateStatus(ctx context.Context, id string, to model.Status, notes string) (bool, error)

	// RecordBatch writes one generation audit row. Callers treat failures
	// as best-effort; the audit log must never block the pipeline.
	RecordBatch(ctx context.Context, batch *model.GenerationBatch) error

	// ReadBatches retrieves generation audit rows, most recent first.
	ReadBatches(ctx context.Context, limit int) ([]model.GenerationBatch, error)

	// Close releases resources.
	Close() error
}
