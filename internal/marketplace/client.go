package marketplace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentx-labs/extsync/internal/branding"
)

const tracerName = "github.com/agentx-labs/extsync/internal/marketplace"

// Latest is the version selector the gallery resolves to the newest release.
const Latest = "latest"

var (
	// ErrInvalidIdentifier is returned for identifiers that are not publisher.name.
	ErrInvalidIdentifier = errors.New("invalid extension identifier")
	// ErrManifestBlockNotFound means the listing page has no extension data script.
	ErrManifestBlockNotFound = errors.New("extension data block not found in listing page")
	// ErrNoVersions means the extension data lists no versions.
	ErrNoVersions = errors.New("listing has no published versions")
	// ErrMissingFilename means the package response did not declare a filename.
	ErrMissingFilename = errors.New("response has no filename in Content-Disposition")
	// ErrUnsafeFilename means the declared filename would escape the output directory.
	ErrUnsafeFilename = errors.New("unsafe filename in Content-Disposition")
	// ErrNotGzip means the package body is not a gzip stream.
	ErrNotGzip = errors.New("package body is not gzip-compressed")
)

// StatusError reports a non-200 response from the marketplace.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}

// Client queries the marketplace and stores downloaded packages.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	out        billy.Filesystem
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL points the client at another gallery host.
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		cl.baseURL = strings.TrimRight(u, "/")
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithOutput sets the filesystem packages are written to. Its root is the
// output directory.
func WithOutput(fs billy.Filesystem) Option {
	return func(cl *Client) {
		cl.out = fs
	}
}

// WithTracerProvider sets the provider spans are recorded with.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cl *Client) {
		cl.tracer = tp.Tracer(tracerName)
	}
}

// New creates a Client with the given options. Without WithOutput, packages
// go to ./extensions.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    strings.TrimRight(branding.MarketplaceURL(), "/"),
		userAgent:  branding.UserAgent(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.out == nil {
		c.out = osfs.New("extensions")
	}
	return c
}

// BaseURL returns the gallery host the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
