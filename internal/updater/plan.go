package updater

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentx-labs/extsync/internal/manifest"
)

// Resolution is the probe outcome for one manifest record.
type Resolution struct {
	Record manifest.Record
	// Latest is the marketplace's latest version, empty when the probe failed.
	Latest string
	// Err is the probe error, if any. Probe errors never abort a run.
	Err error
}

// Found reports whether the probe produced a version.
func (r Resolution) Found() bool {
	return r.Err == nil && r.Latest != ""
}

// Target is an extension selected for download.
type Target struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Previous string `json:"previous"`
}

// Plan is the result of checking a manifest against the marketplace.
type Plan struct {
	// Resolutions holds one entry per record, in manifest order.
	Resolutions []Resolution
	// Updated is the manifest as it should be persisted once every target
	// has been downloaded.
	Updated manifest.Manifest
	// Targets are the records that need a download, in manifest order.
	Targets []Target
}

// ProbeFailures counts records whose version could not be determined.
func (p *Plan) ProbeFailures() int {
	n := 0
	for _, r := range p.Resolutions {
		if !r.Found() {
			n++
		}
	}
	return n
}

// Plan probes every record and selects the ones to download. It does not
// modify records.
func (s *Syncer) Plan(ctx context.Context, records manifest.Manifest) *Plan {
	resolutions := s.resolve(ctx, records)
	updated, targets := Select(resolutions)
	return &Plan{
		Resolutions: resolutions,
		Updated:     updated,
		Targets:     targets,
	}
}

// resolve probes all records concurrently. Results are stored by index so
// no goroutine touches another's slot.
func (s *Syncer) resolve(ctx context.Context, records manifest.Manifest) []Resolution {
	out := make([]Resolution, len(records))

	var g errgroup.Group
	if s.maxProbes > 0 {
		g.SetLimit(s.maxProbes)
	}
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			start := time.Now()
			latest, err := s.prober.LatestVersion(ctx, rec.Name)
			s.metrics.ObserveProbe(time.Since(start), err)

			switch {
			case err != nil:
				s.logger.Warn("version probe failed", "extension", rec.Name, "error", err)
			case !IsValid(latest):
				s.logger.Debug("latest version is not semver", "extension", rec.Name, "latest", latest)
			default:
				s.logger.Debug("probed extension", "extension", rec.Name, "recorded", rec.Version, "latest", latest)
			}

			out[i] = Resolution{Record: rec, Latest: latest, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Select derives the updated manifest and the download targets from probe
// results. Records without a probed version are left as they are.
func Select(resolutions []Resolution) (manifest.Manifest, []Target) {
	updated := make(manifest.Manifest, len(resolutions))
	var targets []Target

	for i, r := range resolutions {
		updated[i] = r.Record
		if !r.Found() || !NeedsUpdate(r.Record.Version, r.Latest) {
			continue
		}
		updated[i].Version = r.Latest
		targets = append(targets, Target{
			Name:     r.Record.Name,
			Version:  r.Latest,
			Previous: r.Record.Version,
		})
	}
	return updated, targets
}
