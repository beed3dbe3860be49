package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// listingSelector matches the script tag carrying the extension's JSON data.
const listingSelector = "script.vss-extension"

// listing is the part of the embedded extension data we read.
type listing struct {
	Versions []struct {
		Version string `json:"version"`
	} `json:"versions"`
}

// ListingURL returns the public listing page URL for an identifier.
func (c *Client) ListingURL(identifier string) string {
	return c.baseURL + "/items?" + url.Values{"itemName": {identifier}}.Encode()
}

// LatestVersion fetches the listing page of identifier and returns the
// version of the first entry in its versions list. The gallery lists newest
// first; no sorting is done here.
func (c *Client) LatestVersion(ctx context.Context, identifier string) (version string, err error) {
	ctx, span := c.tracer.Start(ctx, "marketplace.LatestVersion",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("extension.id", identifier)),
	)
	defer func() { endSpan(span, err) }()

	listingURL := c.ListingURL(identifier)
	req, err := c.newRequest(ctx, listingURL)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching listing for %s: %w", identifier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: listingURL, StatusCode: resp.StatusCode}
	}

	version, err = ParseListing(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading listing for %s: %w", identifier, err)
	}
	span.SetAttributes(attribute.String("extension.version", version))
	return version, nil
}

// ParseListing extracts the latest version from a listing page body.
func ParseListing(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	script := doc.Find(listingSelector).First()
	if script.Length() == 0 {
		return "", ErrManifestBlockNotFound
	}

	var l listing
	if err := json.Unmarshal([]byte(script.Text()), &l); err != nil {
		return "", fmt.Errorf("parsing extension data JSON: %w", err)
	}
	if len(l.Versions) == 0 || l.Versions[0].Version == "" {
		return "", ErrNoVersions
	}
	return l.Versions[0].Version, nil
}
