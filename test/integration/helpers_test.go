//go:build integration

package integration_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/viper"

	"github.com/agentx-labs/extsync/internal/cli"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir   string // EXTSYNC_HOME, holds config.yaml and last-sync.json
	Manifest  string
	OutputDir string
}

// setupTestEnv creates isolated temp directories and points EXTSYNC_HOME at
// one of them so every run is sandboxed.
func setupTestEnv(t *testing.T, manifestJSON string) *testEnv {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	work := t.TempDir()
	env := &testEnv{
		HomeDir:   t.TempDir(),
		Manifest:  filepath.Join(work, "extensions.json"),
		OutputDir: filepath.Join(work, "extensions"),
	}
	t.Setenv("EXTSYNC_HOME", env.HomeDir)
	writeFile(t, env.Manifest, manifestJSON)
	return env
}

// gallery is an in-process stand-in for the extension marketplace.
type gallery struct {
	*httptest.Server

	mu        sync.Mutex
	versions  map[string]string // identifier -> latest version
	failFetch map[string]bool   // identifier -> respond 500 on download
	fetched   []string
}

func newGallery(t *testing.T, versions map[string]string) *gallery {
	t.Helper()
	g := &gallery{versions: versions, failFetch: map[string]bool{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/items", g.serveListing)
	mux.HandleFunc("/_apis/public/gallery/publishers/", g.servePackage)
	g.Server = httptest.NewServer(mux)
	t.Cleanup(g.Close)
	return g
}

func (g *gallery) serveListing(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	v, ok := g.versions[r.URL.Query().Get("itemName")]
	g.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>listing</title></head><body>
<div id="root"></div>
<script class="jiContent" type="application/json">{"ignored":true}</script>
<script class="vss-extension" type="application/json">{"versions":[{"version":%q},{"version":"0.0.1"}]}</script>
</body></html>`, v)
}

func (g *gallery) servePackage(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/_apis/public/gallery/publishers/"), "/")
	if len(parts) != 5 {
		http.NotFound(w, r)
		return
	}
	id := parts[0] + "." + parts[2]

	g.mu.Lock()
	fail := g.failFetch[id]
	g.fetched = append(g.fetched, id+"@"+parts[3])
	g.mu.Unlock()
	if fail {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("%s-%s.vsix", id, parts[3])
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte(packageBody(filename)))
	gw.Close()

	w.Header().Set("Content-Disposition", "attachment; filename="+filename+"; filename*=utf-8''"+filename)
	w.Write(buf.Bytes())
}

func (g *gallery) downloads() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.fetched...)
}

func packageBody(filename string) string {
	return "PK\x03\x04" + filename
}

// runCLI executes the command tree in-process and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := cli.Run(context.Background(), args, &stdout, &stderr)
	if stderr.Len() > 0 {
		t.Logf("stderr:\n%s", stderr.String())
	}
	return stdout.String(), err
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// readFile returns the file contents or fails the test.
func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data := readFile(t, path)
	if !strings.Contains(data, substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, data)
	}
}
