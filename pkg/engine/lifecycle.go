package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edupulse/healthwatch/pkg/model"
	"github.com/edupulse/healthwatch/pkg/storage"
)

// ErrInvalidTransition is returned for a status change the lifecycle does
// not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// allowedTransitions is the full lifecycle: operators triage new alerts,
// work them, and close them out; any terminal state can be explicitly
// reopened when the condition recurs.
var allowedTransitions = map[model.Status][]model.Status{
	model.StatusNew:           {model.StatusAcknowledged, model.StatusInProgress},
	model.StatusAcknowledged:  {model.StatusInProgress},
	model.StatusInProgress:    {model.StatusResolved, model.StatusDismissed, model.StatusFalsePositive},
	model.StatusResolved:      {model.StatusNew},
	model.StatusDismissed:     {model.StatusNew},
	model.StatusFalsePositive: {model.StatusNew},
}

// CanTransition reports whether the lifecycle allows moving from one status
// to another.
func CanTransition(from, to model.Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Lifecycle validates and applies operator-driven status changes.
// Transitions are last-writer-wins: there is no version check between
// reading the current status and writing the new one.
type Lifecycle struct {
	store  storage.AlertStore
	logger *slog.Logger
}

// NewLifecycle creates a lifecycle manager over the given store.
func NewLifecycle(store storage.AlertStore, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{store: store, logger: logger}
}

// Transition moves an alert to a new status, stamping acknowledged/resolved
// times and clearing them on reopen. It returns the updated alert, or
// ErrInvalidTransition / storage.ErrNotFound.
func (l *Lifecycle) Transition(ctx context.Context, id string, to model.Status, notes string) (*model.Alert, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", to, ErrInvalidTransition)
	}

	a, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(a.Status, to) {
		return nil, fmt.Errorf("%s -> %s: %w", a.Status, to, ErrInvalidTransition)
	}

	ok, err := l.store.UpdateStatus(ctx, id, to, notes)
	if err != nil {
		return nil, fmt.Errorf("update alert status: %w", err)
	}
	if !ok {
		return nil, storage.ErrNotFound
	}

	l.logger.Info("alert status changed", "alert_id", id, "from", a.Status, "to", to)
	return l.store.Get(ctx, id)
}
