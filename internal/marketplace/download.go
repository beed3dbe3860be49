package marketplace

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var filenamePattern = regexp.MustCompile(`(?i)filename=(.*?);`)

// Artifact describes a package written to the output directory.
type Artifact struct {
	// Filename is the name declared by the server.
	Filename string
	// Size is the number of decompressed bytes written.
	Size int64
}

// PackageURL returns the gallery download URL for an extension version.
func (c *Client) PackageURL(publisher, name, version string) string {
	return fmt.Sprintf("%s/_apis/public/gallery/publishers/%s/vsextensions/%s/%s/vspackage",
		c.baseURL, url.PathEscape(publisher), url.PathEscape(name), url.PathEscape(version))
}

// FetchPackage downloads identifier at version ("" or Latest for the newest)
// into the output directory and returns what was written. A partially
// written file is removed when the transfer fails.
func (c *Client) FetchPackage(ctx context.Context, identifier, version string) (artifact *Artifact, err error) {
	if version == "" {
		version = Latest
	}

	ctx, span := c.tracer.Start(ctx, "marketplace.FetchPackage",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("extension.id", identifier),
			attribute.String("extension.version", version),
		),
	)
	defer func() { endSpan(span, err) }()

	publisher, name, err := SplitIdentifier(identifier)
	if err != nil {
		return nil, err
	}

	packageURL := c.PackageURL(publisher, name, version)
	req, err := c.newRequest(ctx, packageURL)
	if err != nil {
		return nil, err
	}
	// Asking for gzip explicitly stops the transport from decompressing
	// behind our back; the gallery compresses either way.
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s@%s: %w", identifier, version, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: packageURL, StatusCode: resp.StatusCode}
	}

	filename, err := FilenameFromHeader(resp.Header.Get("Content-Disposition"))
	if err != nil {
		return nil, fmt.Errorf("downloading %s@%s: %w", identifier, version, err)
	}

	body, err := decompress(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("downloading %s@%s: %w", identifier, version, err)
	}
	defer body.Close()

	size, err := c.writeArtifact(filename, body)
	if err != nil {
		return nil, fmt.Errorf("downloading %s@%s: %w", identifier, version, err)
	}

	span.SetAttributes(
		attribute.String("artifact.filename", filename),
		attribute.Int64("artifact.size", size),
	)
	return &Artifact{Filename: filename, Size: size}, nil
}

// FilenameFromHeader extracts the filename from a Content-Disposition value
// of the form `attachment; filename=<name>; ...`. The terminating semicolon
// is required. The match is non-greedy so a following `filename*=` parameter
// never leaks into the name.
func FilenameFromHeader(header string) (string, error) {
	m := filenamePattern.FindStringSubmatch(header)
	if m == nil {
		return "", ErrMissingFilename
	}
	name := strings.Trim(strings.TrimSpace(m[1]), `"`)
	if name == "" {
		return "", ErrMissingFilename
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeFilename, name)
	}
	return name, nil
}

// decompress wraps r in a gzip reader. A body without the gzip magic bytes,
// such as an error page served with 200, is rejected before anything is
// written.
func decompress(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil || magic[0] != 0x1f || magic[1] != 0x8b {
		return nil, ErrNotGzip
	}
	gz, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	return gz, nil
}

func (c *Client) writeArtifact(filename string, r io.Reader) (int64, error) {
	f, err := c.out.Create(filename)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", filename, err)
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// Best effort; the copy error is what matters.
		_ = c.out.Remove(filename)
		return 0, fmt.Errorf("writing %s: %w", filename, err)
	}
	return n, nil
}
