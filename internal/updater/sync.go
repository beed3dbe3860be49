package updater

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentx-labs/extsync/internal/logging"
	"github.com/agentx-labs/extsync/internal/manifest"
	"github.com/agentx-labs/extsync/internal/marketplace"
	"github.com/agentx-labs/extsync/internal/metrics"
)

// Prober looks up the latest published version of an extension.
type Prober interface {
	LatestVersion(ctx context.Context, identifier string) (string, error)
}

// Fetcher downloads one extension package.
type Fetcher interface {
	FetchPackage(ctx context.Context, identifier, version string) (*marketplace.Artifact, error)
}

// Result describes what a run did.
type Result struct {
	Checked       int
	ProbeFailures int
	Targets       []Target
	// Files lists the packages written, in target order. On failure it holds
	// only the downloads that completed before the batch was aborted.
	Files     []string
	Persisted bool
}

// Syncer runs the check, download and persist pipeline.
type Syncer struct {
	store      manifest.Store
	prober     Prober
	fetcher    Fetcher
	logger     *slog.Logger
	metrics    *metrics.Recorder
	maxProbes  int
	maxFetches int
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) {
		s.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Syncer) {
		s.metrics = m
	}
}

// WithMaxConcurrentProbes caps parallel version lookups. 0 means unbounded.
func WithMaxConcurrentProbes(n int) Option {
	return func(s *Syncer) {
		s.maxProbes = n
	}
}

// WithMaxConcurrentFetches caps parallel downloads. 0 means unbounded.
func WithMaxConcurrentFetches(n int) Option {
	return func(s *Syncer) {
		s.maxFetches = n
	}
}

// New creates a Syncer. A marketplace.Client serves as both prober and fetcher.
func New(store manifest.Store, prober Prober, fetcher Fetcher, opts ...Option) *Syncer {
	s := &Syncer{
		store:   store,
		prober:  prober,
		fetcher: fetcher,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check loads the manifest and plans without downloading or writing.
// Individual probe failures are tolerated, but a cancelled ctx fails the
// whole check.
func (s *Syncer) Check(ctx context.Context) (*Plan, error) {
	records, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	plan := s.Plan(ctx, records)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("checking extensions: %w", err)
	}
	s.metrics.SetOutdated(len(plan.Targets))
	return plan, nil
}

// Run loads the manifest, downloads every outdated extension and, only if
// all downloads succeed, saves the manifest with the new versions. When
// nothing is outdated the manifest is left untouched. Files downloaded
// before a failure are left on disk.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	plan, err := s.Check(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Checked:       len(plan.Resolutions),
		ProbeFailures: plan.ProbeFailures(),
		Targets:       plan.Targets,
	}

	if len(plan.Targets) == 0 {
		s.logger.Info("no new extensions found to download", "checked", res.Checked)
		return res, nil
	}

	s.logger.Info("downloading extensions", "count", len(plan.Targets))
	res.Files, err = s.download(ctx, plan.Targets)
	if err != nil {
		return res, err
	}

	if err := s.store.Save(plan.Updated); err != nil {
		return res, fmt.Errorf("saving manifest: %w", err)
	}
	s.metrics.ManifestWritten()
	res.Persisted = true

	s.logger.Info("extensions downloaded successfully", "count", len(res.Files))
	return res, nil
}

// download fetches all targets concurrently. The first failure cancels the
// rest and is returned.
func (s *Syncer) download(ctx context.Context, targets []Target) ([]string, error) {
	files := make([]string, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	if s.maxFetches > 0 {
		g.SetLimit(s.maxFetches)
	}
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			artifact, err := s.fetcher.FetchPackage(gctx, t.Name, t.Version)
			var size int64
			if artifact != nil {
				size = artifact.Size
			}
			s.metrics.ObserveDownload(time.Since(start), size, err)
			if err != nil {
				return fmt.Errorf("fetching %s@%s: %w", t.Name, t.Version, err)
			}

			s.logger.Info("downloaded extension",
				"extension", t.Name,
				"version", t.Version,
				"previous", t.Previous,
				"file", artifact.Filename,
				"bytes", artifact.Size,
			)
			files[i] = artifact.Filename
			return nil
		})
	}
	err := g.Wait()

	done := files[:0]
	for _, f := range files {
		if f != "" {
			done = append(done, f)
		}
	}
	return done, err
}
