package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List open customer-health alerts",
	Long:  `List alerts that have not been resolved or dismissed, most recent first.`,
	RunE:  runAlerts,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.Flags().IntP("limit", "n", 50, "Maximum number of alerts to show")
}

func runAlerts(cmd *cobra.Command, _ []string) error {
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

	limit, _ := cmd.Flags().GetInt("limit")
	alerts, err := store.ReadOpen(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("read open alerts: %w", err)
	}

	if len(alerts) == 0 {
		fmt.Println("No open alerts.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTYPE\tSEVERITY\tSTATUS\tACCOUNT\tTITLE\tCREATED\n")
	for _, a := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Type, a.Severity, a.Status, a.AccountName, a.Title,
			a.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
