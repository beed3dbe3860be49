package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentx-labs/extsync/internal/config"
	"github.com/agentx-labs/extsync/internal/updater"
)

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the outcome of the last sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := updater.LoadReport(config.Dir())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if report == nil {
			fmt.Fprintln(out, "No sync has run yet.")
			return nil
		}

		if statusJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		result := "succeeded"
		if !report.Succeeded() {
			result = "failed"
		}
		fmt.Fprintf(out, "Last sync %s at %s (run %s)\n", result, report.FinishedAt.Format(time.RFC3339), report.RunID)
		fmt.Fprintf(out, "Manifest:   %s\n", report.Manifest)
		printer.Fprintf(out, "Checked:    %d (%d lookups failed)\n", report.Checked, report.ProbeFails)
		printer.Fprintf(out, "Outdated:   %d\n", len(report.Outdated))
		for _, t := range report.Outdated {
			fmt.Fprintf(out, "  %s %s -> %s\n", t.Name, t.Previous, t.Version)
		}
		printer.Fprintf(out, "Downloaded: %d\n", len(report.Downloaded))
		fmt.Fprintf(out, "Manifest updated: %t\n", report.Persisted)
		if report.Error != "" {
			fmt.Fprintf(out, "Error: %s\n", report.Error)
		}
		return nil
	},
}
