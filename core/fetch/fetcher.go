// Package fetch implements the Fetcher interface.
// It downloads remote documents over HTTP, retrying transient failures
// (network errors and 5xx responses) with exponential backoff.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/gaurav-prasanna/parapipe/core"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultUserAgent  = "parapipe/1.0 (https://github.com/gaurav-prasanna/parapipe)"
	defaultMaxTries   = 3
	defaultMaxBodyLen = 64 << 20
)

// ErrStatus is returned for non-2xx responses.
var ErrStatus = errors.New("unexpected status")

// HTTPFetcher fetches documents via HTTP.
type HTTPFetcher struct {
	client   *http.Client
	maxTries uint
	backoff  func() backoff.BackOff
}

// New creates an HTTPFetcher with a sensible timeout.
func New() *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: defaultTimeout},
		maxTries: defaultMaxTries,
		backoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// NewWithClient creates an HTTPFetcher using client and the given retry
// budget. A zero maxTries means a single attempt.
func NewWithClient(client *http.Client, maxTries uint, interval time.Duration) *HTTPFetcher {
	if maxTries == 0 {
		maxTries = 1
	}
	return &HTTPFetcher{
		client:   client,
		maxTries: maxTries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = interval
			return b
		},
	}
}

// Fetch retrieves the document at rawURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*core.FetchResult, error) {
	op := func() (*core.FetchResult, error) {
		return f.fetchOnce(ctx, rawURL)
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(f.backoff()),
		backoff.WithMaxTries(f.maxTries),
	)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) (*core.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/vnd.openxmlformats-officedocument.wordprocessingml.document,text/html,text/plain,application/json;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%w %d for %s", ErrStatus, resp.StatusCode, rawURL)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, defaultMaxBodyLen))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &core.FetchResult{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// extByMediaType maps response media types to reader extensions.
var extByMediaType = map[string]string{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"text/html":             ".html",
	"application/xhtml+xml": ".html",
	"text/plain":            ".txt",
	"application/json":      ".json",
}

// NameFor returns a file name for a fetched document. The URL path's base
// name is used when it carries an extension; otherwise the extension comes
// from the Content-Type.
// e.g. https://example.com/manuals/fa.docx → fa.docx
//
//	https://example.com/handbook (text/html) → handbook.html
func NameFor(res *core.FetchResult) string {
	base := "document"
	if parsed, err := url.Parse(res.URL); err == nil {
		if b := path.Base(strings.TrimSuffix(parsed.Path, "/")); b != "." && b != "/" && b != "" {
			base = b
		} else if parsed.Host != "" {
			base = parsed.Host
		}
	}
	if _, known := knownExt[strings.ToLower(path.Ext(base))]; known {
		return base
	}
	mediaType, _, err := mime.ParseMediaType(res.ContentType)
	if err != nil {
		return base
	}
	if ext, ok := extByMediaType[mediaType]; ok {
		return base + ext
	}
	return base
}

var knownExt = map[string]struct{}{
	".docx": {}, ".html": {}, ".htm": {}, ".txt": {}, ".json": {},
}
