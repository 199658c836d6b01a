package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/healthwatch/pkg/engine"
	"github.com/edupulse/healthwatch/pkg/model"
)

func candidate(typ model.AlertType, accountID, title string) model.Alert {
	return model.Alert{
		Type:        typ,
		AccountID:   accountID,
		Title:       title,
		Status:      model.StatusNew,
		Fingerprint: model.Fingerprint(typ, accountID, title),
	}
}

func existing(typ model.AlertType, accountID, title string, status model.Status) model.Alert {
	a := candidate(typ, accountID, title)
	a.Status = status
	return a
}

func TestFilter_SkipsOpenDuplicates(t *testing.T) {
	candidates := []model.Alert{candidate(model.TypeChurnRisk, "3", "Critical activity drop")}

	for _, status := range []model.Status{
		model.StatusNew, model.StatusAcknowledged, model.StatusInProgress, model.StatusFalsePositive,
	} {
		unique, skipped := engine.Filter(candidates, []model.Alert{
			existing(model.TypeChurnRisk, "3", "Critical activity drop", status),
		})
		assert.Empty(t, unique, "status %s should block", status)
		assert.Equal(t, 1, skipped, "status %s should block", status)
	}
}

func TestFilter_TerminalDoesNotBlock(t *testing.T) {
	candidates := []model.Alert{candidate(model.TypeChurnRisk, "3", "Critical activity drop")}

	for _, status := range []model.Status{model.StatusResolved, model.StatusDismissed} {
		unique, skipped := engine.Filter(candidates, []model.Alert{
			existing(model.TypeChurnRisk, "3", "Critical activity drop", status),
		})
		require.Len(t, unique, 1, "status %s should not block", status)
		assert.Equal(t, 0, skipped)
	}
}

func TestFilter_DifferentFingerprintPasses(t *testing.T) {
	unique, skipped := engine.Filter(
		[]model.Alert{candidate(model.TypeChurnRisk, "3", "Critical activity drop")},
		[]model.Alert{existing(model.TypeChurnRisk, "3", "Renewal at risk", model.StatusNew)},
	)
	assert.Len(t, unique, 1)
	assert.Equal(t, 0, skipped)
}

func TestFilter_DuplicatesWithinBatch(t *testing.T) {
	unique, skipped := engine.Filter([]model.Alert{
		candidate(model.TypeChurnRisk, "3", "Critical activity drop"),
		candidate(model.TypeChurnRisk, "3", "Critical activity drop"),
		candidate(model.TypeUpsell, "4", "Expansion opportunity"),
	}, nil)
	assert.Len(t, unique, 2)
	assert.Equal(t, 1, skipped)
}

func TestFilter_Conservation(t *testing.T) {
	candidates := []model.Alert{
		candidate(model.TypeChurnRisk, "1", "a"),
		candidate(model.TypeChurnRisk, "2", "b"),
		candidate(model.TypeChurnRisk, "2", "b"),
		candidate(model.TypeRenewal, "3", "c"),
	}
	unique, skipped := engine.Filter(candidates, []model.Alert{
		existing(model.TypeChurnRisk, "1", "a", model.StatusInProgress),
	})
	assert.Equal(t, len(candidates), len(unique)+skipped)
}
