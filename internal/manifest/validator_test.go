package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

const testdataDir = "testdata"

func testPath(name string) string {
	return filepath.Join(testdataDir, name)
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(testPath(name))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return data
}

func TestValidate_Valid(t *testing.T) {
	result, err := Validate(readTestdata(t, "valid.json"))
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected valid, got invalid with %d issues:", len(result.Issues))
		for _, issue := range result.Issues {
			t.Errorf("  path=%s keyword=%s message=%s", issue.Path, issue.Keyword, issue.Message)
		}
	}
}

func TestValidate_Invalid(t *testing.T) {
	invalidFiles := []struct {
		file    string
		desc    string
		keyword string
	}{
		{"invalid-missing-version.json", "missing required version field", "required"},
		{"invalid-bad-name.json", "name without publisher", "pattern"},
		{"invalid-not-array.json", "top level is an object", "type"},
	}

	for _, tt := range invalidFiles {
		t.Run(tt.file, func(t *testing.T) {
			result, err := Validate(readTestdata(t, tt.file))
			if err != nil {
				t.Fatalf("Validate(%s) unexpected error: %v", tt.file, err)
			}
			if result.Valid {
				t.Fatalf("expected invalid for %s (%s), but got valid", tt.file, tt.desc)
			}
			if len(result.Issues) == 0 {
				t.Fatalf("expected at least one issue for %s (%s)", tt.file, tt.desc)
			}
			found := false
			for _, issue := range result.Issues {
				if issue.Keyword == tt.keyword {
					found = true
				}
				if issue.Message == "" {
					t.Errorf("issue at %q has empty message", issue.Path)
				}
			}
			if !found {
				t.Errorf("expected an issue with keyword %q, got %+v", tt.keyword, result.Issues)
			}
		})
	}
}

func TestValidate_NotJSON(t *testing.T) {
	_, err := Validate(readTestdata(t, "invalid-not-json.json"))
	if err == nil {
		t.Fatal("expected error for truncated JSON, got nil")
	}
}

func TestValidate_EmptyArray(t *testing.T) {
	result, err := Validate([]byte("[]"))
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if !result.Valid {
		t.Error("an empty manifest should be valid")
	}
}
