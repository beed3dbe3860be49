// Package metrics records what a sync run did as Prometheus metrics. A batch
// job has no scrape endpoint, so the registry is written to a textfile for
// node_exporter's textfile collector at the end of the run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK     = "ok"
	resultFailed = "failed"
)

// Config configures a Recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "extsync").
	Namespace string
}

// Option configures a Recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// Recorder holds the collectors for one process.
type Recorder struct {
	registry *prometheus.Registry

	probes           *prometheus.CounterVec
	probeDuration    prometheus.Histogram
	outdated         prometheus.Gauge
	downloads        *prometheus.CounterVec
	downloadBytes    prometheus.Counter
	downloadDuration prometheus.Histogram
	manifestWrites   prometheus.Counter
	lastSuccess      prometheus.Gauge
}

// New creates a Recorder and registers its collectors.
func New(opts ...Option) *Recorder {
	cfg := Config{Namespace: "extsync"}
	for _, opt := range opts {
		opt(&cfg)
	}
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		probes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "probes_total",
			Help:      "Listing page lookups by result.",
		}, []string{"result"}),
		probeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "probe_duration_seconds",
			Help:      "Time spent fetching and parsing a listing page.",
			Buckets:   prometheus.DefBuckets,
		}),
		outdated: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "outdated_extensions",
			Help:      "Extensions with a newer published version in the last run.",
		}),
		downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "downloads_total",
			Help:      "Package downloads by result.",
		}, []string{"result"}),
		downloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "download_bytes_total",
			Help:      "Decompressed package bytes written.",
		}),
		downloadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "download_duration_seconds",
			Help:      "Time spent downloading a package.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		manifestWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "manifest_writes_total",
			Help:      "Successful manifest rewrites.",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that finished without error.",
		}),
	}
}

func result(err error) string {
	if err != nil {
		return resultFailed
	}
	return resultOK
}

// ObserveProbe records one version lookup.
func (r *Recorder) ObserveProbe(d time.Duration, err error) {
	if r == nil {
		return
	}
	r.probes.WithLabelValues(result(err)).Inc()
	r.probeDuration.Observe(d.Seconds())
}

// SetOutdated records how many extensions need an update.
func (r *Recorder) SetOutdated(n int) {
	if r == nil {
		return
	}
	r.outdated.Set(float64(n))
}

// ObserveDownload records one package download.
func (r *Recorder) ObserveDownload(d time.Duration, size int64, err error) {
	if r == nil {
		return
	}
	r.downloads.WithLabelValues(result(err)).Inc()
	r.downloadDuration.Observe(d.Seconds())
	if err == nil {
		r.downloadBytes.Add(float64(size))
	}
}

// ManifestWritten records a manifest rewrite.
func (r *Recorder) ManifestWritten() {
	if r == nil {
		return
	}
	r.manifestWrites.Inc()
}

// MarkSuccess records the completion time of a successful run.
func (r *Recorder) MarkSuccess(t time.Time) {
	if r == nil {
		return
	}
	r.lastSuccess.Set(float64(t.Unix()))
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
