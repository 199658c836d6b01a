package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edupulse/healthwatch/pkg/engine"
	"github.com/edupulse/healthwatch/pkg/model"
)

var statusCmd = &cobra.Command{
	Use:   "status <alert-id> <new-status>",
	Short: "Move an alert through its lifecycle",
	Long: `Change an alert's status. Allowed: new -> acknowledged | in_progress,
acknowledged -> in_progress, in_progress -> resolved | dismissed |
false_positive, and any closed status -> new (reopen).`,
	Args: cobra.ExactArgs(2),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("notes", "", "Resolution notes to attach")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := initStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	notes, _ := cmd.Flags().GetString("notes")
	lifecycle := engine.NewLifecycle(store, logger)

	alert, err := lifecycle.Transition(cmd.Context(), args[0], model.Status(args[1]), notes)
	if err != nil {
		return fmt.Errorf("update alert status: %w", err)
	}

	fmt.Printf("Alert updated:\n")
	fmt.Printf("  ID:      %s\n", alert.ID)
	fmt.Printf("  Title:   %s\n", alert.Title)
	fmt.Printf("  Status:  %s\n", alert.Status)
	if alert.AcknowledgedAt != nil {
		fmt.Printf("  Acked:   %s\n", alert.AcknowledgedAt.Format("2006-01-02 15:04"))
	}
	if alert.ResolvedAt != nil {
		fmt.Printf("  Closed:  %s\n", alert.ResolvedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
