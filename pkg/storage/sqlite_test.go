package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/healthwatch/pkg/model"
	"github.com/edupulse/healthwatch/pkg/storage"
)

func newTestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testAlert(accountID, title string) model.Alert {
	return model.Alert{
		Type:        model.TypeChurnRisk,
		Severity:    model.SeverityCritical,
		AccountID:   accountID,
		AccountName: "Northside Elementary",
		Title:       title,
		Description: "Weekly active teachers dropped 60% in two weeks",
		Status:      model.StatusNew,
		Fingerprint: model.Fingerprint(model.TypeChurnRisk, accountID, title),
	}
}

func TestSQLite_PersistAndReadOpen(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alerts := []model.Alert{
		testAlert("school-1", "Critical activity drop"),
		testAlert("school-2", "Renewal at risk"),
	}
	saved, err := db.Persist(ctx, alerts, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	open, err := db.ReadOpen(ctx, 0)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, a := range open {
		assert.NotEmpty(t, a.ID)
		assert.Equal(t, "batch-1", a.BatchID)
		assert.False(t, a.CreatedAt.IsZero())
	}
}

func TestSQLite_Persist_DuplicateOpenFingerprint(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	saved, err := db.Persist(ctx, []model.Alert{testAlert("school-1", "Critical activity drop")}, "batch-1")
	require.NoError(t, err)
	require.Equal(t, 1, saved)

	// Same open fingerprint saves zero rows.
	saved, err = db.Persist(ctx, []model.Alert{testAlert("school-1", "Critical activity drop")}, "batch-2")
	require.NoError(t, err)
	assert.Equal(t, 0, saved)
}

func TestSQLite_Persist_ResolvedDoesNotBlock(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Persist(ctx, []model.Alert{testAlert("school-1", "Critical activity drop")}, "batch-1")
	require.NoError(t, err)

	open, err := db.ReadOpen(ctx, 0)
	require.NoError(t, err)
	require.Len(t, open, 1)

	ok, err := db.UpdateStatus(ctx, open[0].ID, model.StatusResolved, "")
	require.NoError(t, err)
	require.True(t, ok)

	// The condition recurred; the same fingerprint may be raised again.
	saved, err := db.Persist(ctx, []model.Alert{testAlert("school-1", "Critical activity drop")}, "batch-2")
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
}

func TestSQLite_ReadOpen_ExcludesResolvedAndDismissed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alerts := []model.Alert{
		testAlert("school-1", "Critical activity drop"),
		testAlert("school-2", "Renewal at risk"),
		testAlert("school-3", "No logins since rollout"),
	}
	_, err := db.Persist(ctx, alerts, "batch-1")
	require.NoError(t, err)

	open, err := db.ReadOpen(ctx, 0)
	require.NoError(t, err)
	require.Len(t, open, 3)

	_, err = db.UpdateStatus(ctx, open[0].ID, model.StatusResolved, "")
	require.NoError(t, err)
	_, err = db.UpdateStatus(ctx, open[1].ID, model.StatusDismissed, "")
	require.NoError(t, err)

	open, err = db.ReadOpen(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestSQLite_UpdateStatus_Timestamps(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Persist(ctx, []model.Alert{testAlert("school-1", "Critical activity drop")}, "batch-1")
	require.NoError(t, err)
	open, err := db.ReadOpen(ctx, 0)
	require.NoError(t, err)
	id := open[0].ID

	ok, err := db.UpdateStatus(ctx, id, model.StatusAcknowledged, "")
	require.NoError(t, err)
	require.True(t, ok)

	a, err := db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAcknowledged, a.Status)
	assert.NotNil(t, a.AcknowledgedAt)
	assert.Nil(t, a.ResolvedAt)

	_, err = db.UpdateStatus(ctx, id, model.StatusResolved, "re-engaged after call")
	require.NoError(t, err)

	a, err = db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, a.Status)
	assert.NotNil(t, a.ResolvedAt)
	assert.Equal(t, "re-engaged after call", a.ResolutionNotes)

	// Reopen clears both timestamps.
	_, err = db.UpdateStatus(ctx, id, model.StatusNew, "")
	require.NoError(t, err)

	a, err = db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, a.Status)
	assert.Nil(t, a.AcknowledgedAt)
	assert.Nil(t, a.ResolvedAt)
}

func TestSQLite_UpdateStatus_UnknownID(t *testing.T) {
	db := newTestDB(t)

	ok, err := db.UpdateStatus(context.Background(), "nonexistent", model.StatusAcknowledged, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_Get_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLite_RecordBatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	batch := &model.GenerationBatch{
		BatchID:          "batch-1",
		CompletedAt:      time.Now().UTC(),
		AccountsAnalyzed: 3,
		AlertsGenerated:  2,
		AlertsSkipped:    1,
		ModelUsed:        "claude-sonnet-4-20250514",
		TokensUsed:       1234,
	}
	require.NoError(t, db.RecordBatch(ctx, batch))

	batches, err := db.ReadBatches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "batch-1", batches[0].BatchID)
	assert.Equal(t, 3, batches[0].AccountsAnalyzed)
	assert.Equal(t, int64(1234), batches[0].TokensUsed)
}
