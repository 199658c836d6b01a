package cli

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/edupulse/healthwatch/internal/config"
	"github.com/edupulse/healthwatch/pkg/engine"
	"github.com/edupulse/healthwatch/pkg/metrics"
	"github.com/edupulse/healthwatch/pkg/oracle"
	"github.com/edupulse/healthwatch/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "healthwatch",
	Short: "Healthwatch - customer-health alerting for education SaaS accounts",
	Long: `Healthwatch analyzes per-school usage metrics, asks a generative scoring
service to propose actionable alerts (churn risk, upsell, renewal,
engagement), deduplicates them against alerts already raised, and manages
each alert through its operator lifecycle.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.healthwatch/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStore opens the durable store wrapped in the in-process fallback, so
// a database outage degrades instead of failing commands.
func initStore(cfg *config.Config, logger *slog.Logger) (storage.AlertStore, error) {
	durable, err := storage.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	return storage.NewFallback(durable, storage.NewMemory(), logger), nil
}

// initOracle creates the scoring service client.
func initOracle(cfg *config.Config, logger *slog.Logger) (oracle.Oracle, error) {
	if cfg.Oracle.APIKey == "" {
		return nil, errors.New("oracle.api_key is not configured (set HW_ORACLE_API_KEY)")
	}
	return oracle.NewClient(oracle.ClientConfig{
		APIKey:          cfg.Oracle.APIKey,
		Model:           cfg.Oracle.Model,
		BaseURL:         cfg.Oracle.BaseURL,
		MaxPromptTokens: cfg.Oracle.MaxPromptTokens,
	}, logger), nil
}

// initGenerator wires a generation orchestrator over the given snapshot
// source.
func initGenerator(cfg *config.Config, store storage.AlertStore, snapshots engine.SnapshotFunc, progress func(engine.Stage), logger *slog.Logger) (*engine.Generator, error) {
	o, err := initOracle(cfg, logger)
	if err != nil {
		return nil, err
	}
	return engine.NewGenerator(store, o, snapshots, engine.GeneratorConfig{
		MaxAlerts:        cfg.Oracle.MaxAlerts,
		OpenAlertContext: cfg.Engine.OpenAlertContext,
		Progress:         progress,
	}, logger), nil
}

// snapshotSource resolves the metrics snapshot file: the flag wins, then
// config.
func snapshotSource(cfg *config.Config, flagPath string) (engine.SnapshotFunc, error) {
	path := flagPath
	if path == "" {
		path = cfg.Metrics.SnapshotPath
	}
	if path == "" {
		return nil, errors.New("no metrics snapshot configured (use --snapshot or set metrics.snapshot_path)")
	}
	return metrics.FileSource(path), nil
}
