package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edupulse/healthwatch/pkg/engine"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one alert generation batch",
	Long: `Read the account metrics snapshot, ask the scoring service for candidate
alerts, drop the ones already raised, and persist the rest as one audited
batch.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringP("snapshot", "s", "", "Metrics snapshot file (default from config)")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	snapshotPath, _ := cmd.Flags().GetString("snapshot")
	snapshots, err := snapshotSource(cfg, snapshotPath)
	if err != nil {
		return err
	}

	store, err := initStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	progress := func(s engine.Stage) {
		fmt.Printf("  %s...\n", s)
	}
	gen, err := initGenerator(cfg, store, snapshots, progress, logger)
	if err != nil {
		return err
	}

	res := gen.Generate(cmd.Context())
	if res.Err != nil {
		return fmt.Errorf("generation run failed: %w", res.Err)
	}

	fmt.Printf("Generation run complete:\n")
	fmt.Printf("  Batch:             %s\n", res.BatchID)
	fmt.Printf("  Schools analyzed:  %d\n", res.AccountsAnalyzed)
	fmt.Printf("  Alerts generated:  %d\n", res.AlertsGenerated)
	fmt.Printf("  Alerts skipped:    %d\n", res.AlertsSkipped)
	fmt.Printf("  Model:             %s\n", res.ModelUsed)
	fmt.Printf("  Tokens used:       %d\n", res.TokensUsed)

	return nil
}
