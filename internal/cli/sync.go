package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/agentx-labs/extsync/internal/config"
	"github.com/agentx-labs/extsync/internal/metrics"
	"github.com/agentx-labs/extsync/internal/updater"
)

func init() {
	syncCmd.Flags().Int("max-probes", 0, "Maximum concurrent version lookups (0 = unbounded)")
	syncCmd.Flags().Int("max-fetches", 0, "Maximum concurrent downloads (0 = unbounded)")
	syncCmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this file after the run")

	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download extensions that have newer marketplace versions",
	Long: `Checks every extension in the manifest against the marketplace, downloads
the ones with a newer version into the output directory, and rewrites the
manifest with the new versions. The manifest is only written when every
download succeeded.

  extsync sync
  extsync sync --manifest ./extensions.json --output-dir ./extensions
  extsync sync --max-fetches 4 --metrics-file /var/lib/node_exporter/extsync.prom`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	settings := config.Current()
	runID := uuid.NewString()

	logger, err := newLogger(cmd.ErrOrStderr(), settings)
	if err != nil {
		return err
	}
	logger = logger.With("run_id", runID)

	if err := os.MkdirAll(settings.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", settings.OutputDir, err)
	}

	tp, flush, err := newTracerProvider(settings, logger)
	if err != nil {
		return err
	}
	defer flush()

	rec := metrics.New()
	syncer := newSyncer(settings, logger, rec, tp)

	ctx, span := tp.Tracer(tracerName).Start(cmd.Context(), "extsync.sync")
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("manifest.path", settings.Manifest),
	)

	started := time.Now()
	res, runErr := syncer.Run(ctx)
	finished := time.Now()
	if runErr == nil {
		rec.MarkSuccess(finished)
		span.SetAttributes(attribute.Int("sync.downloaded", len(res.Files)))
	} else {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
	}
	span.End()

	report := updater.NewReport(runID, settings.Manifest, started, finished, res, runErr)
	if err := updater.SaveReport(config.Dir(), report); err != nil {
		logger.Warn("could not save sync report", "error", err)
	}
	if settings.MetricsFile != "" {
		if err := rec.WriteTextfile(settings.MetricsFile); err != nil {
			logger.Warn("could not write metrics", "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if len(res.Targets) == 0 {
		fmt.Fprintln(out, "No new extensions found to download")
		return nil
	}
	printer.Fprintf(out, "%d extensions downloaded successfully\n", len(res.Files))
	return nil
}
