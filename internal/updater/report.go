package updater

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const reportFileName = "last-sync.json"

// Report summarizes one sync run.
type Report struct {
	RunID      string    `json:"run_id"`
	Manifest   string    `json:"manifest"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Checked    int       `json:"checked"`
	ProbeFails int       `json:"probe_failures"`
	Outdated   []Target  `json:"outdated"`
	Downloaded []string  `json:"downloaded"`
	Persisted  bool      `json:"persisted"`
	Error      string    `json:"error,omitempty"`
}

// NewReport builds a report from a run's outcome. res may be nil when the
// run failed before planning.
func NewReport(runID, manifestPath string, started, finished time.Time, res *Result, runErr error) *Report {
	r := &Report{
		RunID:      runID,
		Manifest:   manifestPath,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if res != nil {
		r.Checked = res.Checked
		r.ProbeFails = res.ProbeFailures
		r.Outdated = res.Targets
		r.Downloaded = res.Files
		r.Persisted = res.Persisted
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return r
}

// Succeeded reports whether the run finished without error.
func (r *Report) Succeeded() bool {
	return r.Error == ""
}

// LoadReport reads the last run report from the config directory.
// Returns nil, nil if no run has been recorded yet.
func LoadReport(configDir string) (*Report, error) {
	path := filepath.Join(configDir, reportFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sync report: %w", err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing sync report: %w", err)
	}
	return &report, nil
}

// SaveReport writes the run report to the config directory.
func SaveReport(configDir string, report *Report) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling sync report: %w", err)
	}

	path := filepath.Join(configDir, reportFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing sync report: %w", err)
	}
	return nil
}
