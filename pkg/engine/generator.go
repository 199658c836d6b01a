package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/edupulse/healthwatch/pkg/model"
	"github.com/edupulse/healthwatch/pkg/oracle"
	"github.com/edupulse/healthwatch/pkg/storage"
)

// Stage is one of the three coarse progress milestones of a generation run.
type Stage string

const (
	StageFetch   Stage = "fetching existing alerts"
	StageAnalyze Stage = "analyzing accounts"
	StagePersist Stage = "saving alerts"
)

// SnapshotFunc supplies the per-account metrics summaries for a run. The
// engine only consumes these; the admin console computes them.
type SnapshotFunc func(ctx context.Context) ([]model.AccountSummary, error)

// Result is the outcome of one generation run. Every oracle candidate is
// accounted for: generated + skipped equals the candidate count.
type Result struct {
	BatchID          string `json:"batch_id"`
	AccountsAnalyzed int    `json:"accounts_analyzed"`
	AlertsGenerated  int    `json:"alerts_generated"`
	AlertsSkipped    int    `json:"alerts_skipped"`
	TokensUsed       int64  `json:"tokens_used"`
	ModelUsed        string `json:"model_used,omitempty"`
	Error            string `json:"error,omitempty"`

	Err error `json:"-"`
}

// GeneratorConfig tunes a generation run.
type GeneratorConfig struct {
	// MaxAlerts caps how many alerts one run may propose.
	MaxAlerts int

	// OpenAlertContext caps how many open-alert summaries are sent to the
	// oracle (most recent first).
	OpenAlertContext int

	// Progress, when set, receives the three run milestones.
	Progress func(Stage)
}

// Generator orchestrates one batch run: read open alerts, ask the oracle,
// dedup, persist, audit. A run is strictly sequential and non-resumable; a
// failure at any step aborts it with nothing persisted. Nothing prevents a
// caller from running two generations concurrently; the store's
// conflict-ignoring insert is the only guard against duplicate open alerts
// in that case.
type Generator struct {
	store     storage.AlertStore
	oracle    oracle.Oracle
	snapshots SnapshotFunc
	cfg       GeneratorConfig
	logger    *slog.Logger
}

// NewGenerator creates a generation orchestrator.
func NewGenerator(store storage.AlertStore, o oracle.Oracle, snapshots SnapshotFunc, cfg GeneratorConfig, logger *slog.Logger) *Generator {
	return &Generator{store: store, oracle: o, snapshots: snapshots, cfg: cfg, logger: logger}
}

// Generate runs one batch using the configured snapshot source.
func (g *Generator) Generate(ctx context.Context) Result {
	accounts, err := g.snapshots(ctx)
	if err != nil {
		res := Result{BatchID: uuid.New().String()}
		return g.fail(res, "load metrics snapshot", err)
	}
	return g.GenerateAccounts(ctx, accounts)
}

// GenerateAccounts runs one batch against the given metrics summaries.
func (g *Generator) GenerateAccounts(ctx context.Context, accounts []model.AccountSummary) Result {
	res := Result{
		BatchID:          uuid.New().String(),
		AccountsAnalyzed: len(accounts),
	}
	if len(accounts) == 0 {
		g.logger.Info("no accounts in metrics snapshot, skipping run", "batch_id", res.BatchID)
		return res
	}

	g.report(StageFetch)
	existing, err := g.store.ReadOpen(ctx, 0)
	if err != nil {
		return g.fail(res, "read open alerts", err)
	}

	g.report(StageAnalyze)
	open := model.OpenAlertSummaries(existing, g.cfg.OpenAlertContext)
	analysis, err := g.oracle.Analyze(ctx, accounts, open, g.cfg.MaxAlerts)
	if err != nil {
		return g.fail(res, "analyze accounts", err)
	}
	res.TokensUsed = analysis.TokensUsed
	res.ModelUsed = analysis.ModelUsed

	// Dedup against the snapshot of open alerts taken at the start of the
	// run; a concurrent run that completes in between is caught only by
	// the store's conflict-ignoring insert.
	unique, skipped := Filter(analysis.Candidates, existing)
	res.AlertsSkipped = skipped

	g.report(StagePersist)
	saved, err := g.store.Persist(ctx, unique, res.BatchID)
	if err != nil {
		return g.fail(res, "persist alerts", err)
	}
	res.AlertsGenerated = saved
	// Rows the store dropped on fingerprint conflict count as skipped, so
	// candidates == generated + skipped holds.
	res.AlertsSkipped += len(unique) - saved

	batch := &model.GenerationBatch{
		BatchID:          res.BatchID,
		CompletedAt:      time.Now().UTC(),
		AccountsAnalyzed: res.AccountsAnalyzed,
		AlertsGenerated:  res.AlertsGenerated,
		AlertsSkipped:    res.AlertsSkipped,
		ModelUsed:        res.ModelUsed,
		TokensUsed:       res.TokensUsed,
	}
	if err := g.store.RecordBatch(ctx, batch); err != nil {
		// Audit is diagnostic only; it never fails the run.
		g.logger.Warn("record generation batch", "batch_id", res.BatchID, "error", err)
	}

	g.logger.Info("generation run complete",
		"batch_id", res.BatchID,
		"accounts", res.AccountsAnalyzed,
		"generated", res.AlertsGenerated,
		"skipped", res.AlertsSkipped,
		"tokens", res.TokensUsed,
	)
	return res
}

func (g *Generator) fail(res Result, stage string, err error) Result {
	res.Err = err
	res.Error = err.Error()
	res.AlertsGenerated = 0
	g.logger.Error("generation run failed", "batch_id", res.BatchID, "stage", stage, "error", err)
	return res
}

func (g *Generator) report(s Stage) {
	if g.cfg.Progress != nil {
		g.cfg.Progress(s)
	}
}
