package updater

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReport_Missing(t *testing.T) {
	tmp := t.TempDir()
	report, err := LoadReport(tmp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != nil {
		t.Error("expected nil report for missing file")
	}
}

func TestSaveAndLoadReport(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "nested")

	started := time.Now().Add(-time.Minute).Truncate(time.Second)
	finished := time.Now().Truncate(time.Second)
	res := &Result{
		Checked:       3,
		ProbeFailures: 1,
		Targets:       []Target{{Name: "golang.go", Version: "0.42.0", Previous: "0.41.0"}},
		Files:         []string{"golang.Go-0.42.0.vsix"},
		Persisted:     true,
	}
	original := NewReport("run-1", "extensions.json", started, finished, res, nil)

	if err := SaveReport(tmp, original); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	loaded, err := LoadReport(tmp)
	if err != nil {
		t.Fatalf("LoadReport failed: %v", err)
	}

	if loaded.RunID != "run-1" {
		t.Errorf("RunID = %q, want %q", loaded.RunID, "run-1")
	}
	if loaded.Checked != 3 || loaded.ProbeFails != 1 {
		t.Errorf("Checked/ProbeFails = %d/%d, want 3/1", loaded.Checked, loaded.ProbeFails)
	}
	if len(loaded.Outdated) != 1 || loaded.Outdated[0].Previous != "0.41.0" {
		t.Errorf("Outdated = %+v", loaded.Outdated)
	}
	if !loaded.Persisted {
		t.Error("Persisted should be true")
	}
	if !loaded.Succeeded() {
		t.Error("report without error should be a success")
	}
	if !loaded.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", loaded.FinishedAt, finished)
	}
}

func TestNewReport_Failure(t *testing.T) {
	report := NewReport("run-2", "extensions.json", time.Now(), time.Now(), nil, errors.New("fetching golang.go@0.42.0: boom"))
	if report.Succeeded() {
		t.Error("report with error should not be a success")
	}
	if report.Checked != 0 || report.Persisted {
		t.Errorf("nil result should leave counters empty, got %+v", report)
	}
}

func TestLoadReport_Corrupted(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, reportFileName)
	os.WriteFile(path, []byte("not valid json{{{"), 0644)

	_, err := LoadReport(tmp)
	if err == nil {
		t.Error("expected error for corrupted report")
	}
}
