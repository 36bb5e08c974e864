package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxBodySize is the largest page body read, in bytes.
const DefaultMaxBodySize int64 = 5 * 1024 * 1024

// DefaultUserAgent is sent when no User-Agent is configured.
const DefaultUserAgent = "dependents (+https://github.com/nao1215/dependents)"

// Fetcher retrieves one page.
// A non-nil error means no response was received at all. Any received
// response, including error statuses, is reported through status and body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (status int, body []byte, err error)
}

// HTTPFetcher is a Fetcher backed by net/http.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// NewHTTPFetcher creates an HTTPFetcher using client.
// A nil client is replaced by one from NewHTTPClient with default options.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	if client == nil {
		client, _ = NewHTTPClient(ClientOptions{}) //nolint:errcheck // default options never fail
	}
	f := &HTTPFetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// UserAgent returns the User-Agent header sent with every request.
func (f *HTTPFetcher) UserAgent() string {
	return f.userAgent
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return resp.StatusCode, nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, pageURL, f.maxBodySize)
	}
	return resp.StatusCode, body, nil
}
