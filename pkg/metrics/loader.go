// Package metrics loads account metrics snapshots for the generation
// engine. The admin console computes the metrics; this package only reads
// them from a snapshot file and validates the shape.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/edupulse/healthwatch/pkg/model"
)

// snapshotFile is the on-disk snapshot format, YAML or JSON by extension.
type snapshotFile struct {
	Accounts []model.AccountSummary `yaml:"accounts" json:"accounts"`
}

// LoadSummaries reads account summaries from a snapshot file.
func LoadSummaries(path string) ([]model.AccountSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file %s: %w", path, err)
	}

	var file snapshotFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &file)
	} else {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("parse snapshot file %s: %w", path, err)
	}

	for i := range file.Accounts {
		a := &file.Accounts[i]
		if a.AccountID == "" {
			return nil, fmt.Errorf("snapshot file %s: account %d: missing account_id", path, i)
		}
		if a.Trend == "" {
			a.Trend = model.TrendFlat
		}
		if !a.Trend.Valid() {
			return nil, fmt.Errorf("snapshot file %s: account %s: unknown trend %q", path, a.AccountID, a.Trend)
		}
	}
	return file.Accounts, nil
}

// FileSource returns a snapshot source that re-reads the file on every run.
func FileSource(path string) func(context.Context) ([]model.AccountSummary, error) {
	return func(context.Context) ([]model.AccountSummary, error) {
		return LoadSummaries(path)
	}
}
