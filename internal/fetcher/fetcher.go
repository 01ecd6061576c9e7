package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (compatible; scraping-bot/1.0)"
	DefaultAccept    = "text/html,application/xhtml+xml"
)

var ErrInvalidURL = errors.New("invalid url")

// FetchError is returned when the upstream answers with a non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("upstream returned status %d for %s", e.StatusCode, e.URL)
}

// NetworkError wraps transport failures: DNS, refused connections, resets,
// and body read errors.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves raw HTML for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Options struct {
	UserAgent string
	Accept    string
	// Timeout of zero leaves the transport defaults in place.
	Timeout time.Duration
	Client  *http.Client
}

// HTTPFetcher performs a single GET per call. It never retries and never
// caches; every call goes to the network.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	accept    string
	logger    *slog.Logger
}

func New(opts Options, logger *slog.Logger) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Accept == "" {
		opts.Accept = DefaultAccept
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &HTTPFetcher{
		client:    client,
		userAgent: opts.UserAgent,
		accept:    opts.Accept,
		logger:    logger.With("component", "fetcher"),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", f.accept)
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		f.logger.Warn("upstream returned non-success status",
			"url", url,
			"status", resp.StatusCode,
		)
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{URL: url, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	f.logger.Debug("fetched page",
		"url", url,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)

	return string(body), nil
}
