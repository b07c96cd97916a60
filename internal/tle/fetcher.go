package tle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxBodyBytes bounds a TLE download; a whole CelesTrak group is a few MB.
const maxBodyBytes = 50 << 20

const userAgent = "trackgen/1 (+element fetch)"

// StatusError reports a non-200 answer from an element source.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tle: %s answered %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Fetcher downloads raw element text from one URL.
type Fetcher struct {
	sourceURL string
	client    *http.Client
	logger    *slog.Logger
}

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default client, which has a 30s timeout.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// NewFetcher creates a Fetcher for sourceURL.
func NewFetcher(sourceURL string, logger *slog.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		sourceURL: sourceURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch downloads the source. Bodies larger than maxBodyBytes are rejected
// rather than truncated.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("tle: building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/plain")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tle: fetching %s: %w", f.sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: f.sourceURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	switch {
	case err != nil:
		return nil, fmt.Errorf("tle: reading %s: %w", f.sourceURL, err)
	case len(body) > maxBodyBytes:
		return nil, fmt.Errorf("tle: %s exceeds the %d byte limit", f.sourceURL, maxBodyBytes)
	}

	f.logger.Debug("fetched elements",
		"component", "tle",
		"url", f.sourceURL,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return body, nil
}
