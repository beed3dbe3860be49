package cli

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-git/go-billy/v5/osfs"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentx-labs/extsync/internal/config"
	"github.com/agentx-labs/extsync/internal/logging"
	"github.com/agentx-labs/extsync/internal/manifest"
	"github.com/agentx-labs/extsync/internal/marketplace"
	"github.com/agentx-labs/extsync/internal/metrics"
	"github.com/agentx-labs/extsync/internal/tracing"
	"github.com/agentx-labs/extsync/internal/updater"
)

const tracerName = "github.com/agentx-labs/extsync/internal/cli"

func newLogger(w io.Writer, s config.Settings) (*slog.Logger, error) {
	return logging.New(w, logging.Options{Level: s.LogLevel, Format: s.LogFormat})
}

// newTracerProvider opens the configured trace file. The returned func
// flushes it and logs instead of failing the command.
func newTracerProvider(s config.Settings, logger *slog.Logger) (trace.TracerProvider, func(), error) {
	tp, shutdown, err := tracing.Open(s.TraceFile)
	if err != nil {
		return nil, nil, err
	}
	return tp, func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("could not flush traces", "error", err)
		}
	}, nil
}

func newClient(s config.Settings, tp trace.TracerProvider) *marketplace.Client {
	return marketplace.New(
		marketplace.WithHTTPClient(&http.Client{Timeout: s.HTTPTimeout}),
		marketplace.WithBaseURL(s.MarketplaceURL),
		marketplace.WithUserAgent(s.UserAgent),
		marketplace.WithOutput(osfs.New(s.OutputDir)),
		marketplace.WithTracerProvider(tp),
	)
}

func newSyncer(s config.Settings, logger *slog.Logger, rec *metrics.Recorder, tp trace.TracerProvider) *updater.Syncer {
	client := newClient(s, tp)
	return updater.New(
		manifest.OpenFile(s.Manifest),
		client,
		client,
		updater.WithLogger(logger),
		updater.WithMetrics(rec),
		updater.WithMaxConcurrentProbes(s.MaxConcurrentProbes),
		updater.WithMaxConcurrentFetches(s.MaxConcurrentFetches),
	)
}
