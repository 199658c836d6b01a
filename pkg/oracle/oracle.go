package oracle

import (
	"context"
	"errors"

	"github.com/edupulse/healthwatch/pkg/model"
)

// ErrAnalysisFailed wraps every failure mode of an oracle call: transport
// errors, non-success responses, and responses with no parseable alert
// envelope. The whole call fails as one unit; no partial candidate list is
// ever returned.
var ErrAnalysisFailed = errors.New("oracle analysis failed")

// Analysis is the parsed result of one oracle call. Candidates arrive
// stamped with fresh ids, new status, creation time, metrics snapshot and
// fingerprint, ready for dedup and persistence.
type Analysis struct {
	Candidates []model.Alert
	Summary    string
	ModelUsed  string
	TokensUsed int64
}

// Oracle proposes candidate alerts from account metrics. Implementations
// wrap a non-deterministic generative scoring service; tests inject a
// deterministic fake.
type Oracle interface {
	Analyze(ctx context.Context, accounts []model.AccountSummary, open []model.OpenAlertSummary, maxAlerts int) (*Analysis, error)
}
