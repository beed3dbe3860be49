package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Load(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "extensions.json", readTestdata(t, "valid.json"), 0644))

	m, err := NewFileStore(fs, "extensions.json").Load()
	require.NoError(t, err)

	assert.Equal(t, Manifest{
		{Name: "ms-python.python", Version: "2024.2.1"},
		{Name: "golang.go", Version: "0.41.0"},
		{Name: "esbenp.prettier-vscode", Version: "latest"},
	}, m)
}

func TestFileStore_Load_Missing(t *testing.T) {
	_, err := NewFileStore(memfs.New(), "extensions.json").Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist), "expected ErrNotExist, got %v", err)
}

func TestFileStore_Load_SchemaViolation(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "extensions.json", readTestdata(t, "invalid-bad-name.json"), 0644))

	_, err := NewFileStore(fs, "extensions.json").Load()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "extensions.json", verr.Path)
	assert.NotEmpty(t, verr.Issues)
	assert.Contains(t, verr.Error(), "/0/name")
}

func TestFileStore_SaveRoundTrip(t *testing.T) {
	fs := memfs.New()
	store := NewFileStore(fs, "extensions.json")

	want := Manifest{
		{Name: "golang.go", Version: "0.42.0"},
		{Name: "ms-python.python", Version: "2024.4.0"},
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStore_SaveFormatting(t *testing.T) {
	fs := memfs.New()
	store := NewFileStore(fs, "extensions.json")
	require.NoError(t, store.Save(Manifest{{Name: "golang.go", Version: "0.42.0"}}))

	data, err := util.ReadFile(fs, "extensions.json")
	require.NoError(t, err)

	want := "[\n    {\n        \"name\": \"golang.go\",\n        \"version\": \"0.42.0\"\n    }\n]"
	assert.Equal(t, want, string(data))
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	fs := memfs.New()
	store := NewFileStore(fs, "extensions.json")
	require.NoError(t, store.Save(Manifest{{Name: "golang.go", Version: "0.42.0"}}))
	require.NoError(t, store.Save(Manifest{{Name: "golang.go", Version: "0.43.0"}}))

	entries, err := fs.ReadDir(".")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "extensions.json", entries[0].Name())
}

func TestOpenFile_OnDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extensions.json")
	require.NoError(t, os.WriteFile(path, readTestdata(t, "valid.json"), 0644))

	store := OpenFile(path)
	m, err := store.Load()
	require.NoError(t, err)
	require.Len(t, m, 3)

	m[1].Version = "0.42.0"
	require.NoError(t, store.Save(m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"version": "0.42.0"`))
}

func TestEncode_Nil(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
