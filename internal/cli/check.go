package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agentx-labs/extsync/internal/config"
	"github.com/agentx-labs/extsync/internal/updater"
)

var checkJSON bool

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output in JSON format")
	checkCmd.Flags().Int("max-probes", 0, "Maximum concurrent version lookups (0 = unbounded)")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "List extensions with newer marketplace versions without downloading",
	RunE:  runCheck,
}

// checkEntry is one row of check output.
type checkEntry struct {
	Name     string `json:"name"`
	Recorded string `json:"recorded"`
	Latest   string `json:"latest,omitempty"`
	Outdated bool   `json:"outdated"`
	Error    string `json:"error,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	settings := config.Current()
	logger, err := newLogger(cmd.ErrOrStderr(), settings)
	if err != nil {
		return err
	}

	tp, flush, err := newTracerProvider(settings, logger)
	if err != nil {
		return err
	}
	defer flush()

	ctx, span := tp.Tracer(tracerName).Start(cmd.Context(), "extsync.check")
	plan, err := newSyncer(settings, logger, nil, tp).Check(ctx)
	span.End()
	if err != nil {
		return err
	}

	entries := checkEntries(plan)
	out := cmd.OutOrStdout()

	if checkJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRECORDED\tLATEST\tSTATUS")
	for _, e := range entries {
		status := "up to date"
		latest := e.Latest
		switch {
		case e.Error != "":
			status = "unknown"
			latest = "-"
		case e.Outdated:
			status = "outdated"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Recorded, latest, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	printer.Fprintf(out, "\n%d of %d extensions outdated\n", len(plan.Targets), len(entries))
	return nil
}

func checkEntries(plan *updater.Plan) []checkEntry {
	entries := make([]checkEntry, 0, len(plan.Resolutions))
	for _, r := range plan.Resolutions {
		e := checkEntry{
			Name:     r.Record.Name,
			Recorded: r.Record.Version,
			Latest:   r.Latest,
			Outdated: r.Found() && updater.NeedsUpdate(r.Record.Version, r.Latest),
		}
		if r.Err != nil {
			e.Error = r.Err.Error()
		}
		entries = append(entries, e)
	}
	return entries
}
