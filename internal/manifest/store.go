package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// indent matches the layout of hand-maintained manifests.
const indent = "    "

// Store loads and persists a manifest.
type Store interface {
	Load() (Manifest, error)
	Save(Manifest) error
}

// FileStore keeps the manifest as a JSON file on a billy filesystem.
type FileStore struct {
	fs   billy.Filesystem
	path string
}

// NewFileStore returns a store for path on fs.
func NewFileStore(fs billy.Filesystem, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

// OpenFile returns a store for a manifest on the local disk. The filesystem
// is rooted at the manifest's directory so temp files land next to it.
func OpenFile(path string) *FileStore {
	dir, name := filepath.Split(filepath.Clean(path))
	if dir == "" {
		dir = "."
	}
	return NewFileStore(osfs.New(dir), name)
}

// Load reads, validates and decodes the manifest.
func (s *FileStore) Load() (Manifest, error) {
	data, err := util.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", s.path, err)
	}

	result, err := Validate(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", s.path, err)
	}
	if !result.Valid {
		return nil, &ValidationError{Path: s.path, Issues: result.Issues}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", s.path, err)
	}
	return m, nil
}

// Save replaces the manifest with m. The new content is written to a temp
// file in the same directory and renamed over the old one.
func (s *FileStore) Save(m Manifest) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.tmp-%d", s.path, time.Now().UnixNano())
	f, err := s.fs.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("writing temp manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("closing temp manifest: %w", err)
	}

	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("replacing manifest %s: %w", s.path, err)
	}
	return nil
}

// Encode renders m as 4-space indented JSON. A nil manifest encodes as [].
func Encode(m Manifest) ([]byte, error) {
	if m == nil {
		m = Manifest{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
