package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds every request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// maxRedirects is the redirect limit of clients built by NewHTTPClient.
const maxRedirects = 10

// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
var ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

// ClientOptions configures NewHTTPClient.
type ClientOptions struct {
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// ProxyAddress routes traffic through a SOCKS5 proxy at "host:port" when set.
	ProxyAddress string

	// Cookie is a raw cookie string added to every request.
	Cookie string

	// Headers are added to every request.
	Headers map[string]string
}

// NewHTTPClient creates an HTTP client for fetching listing pages.
// It keeps cookies across requests, follows at most 10 redirects and
// injects the configured cookie and headers into every request.
func NewHTTPClient(opts ClientOptions) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if opts.ProxyAddress != "" {
		if !IsValidProxyAddress(opts.ProxyAddress) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, opts.ProxyAddress)
		}
		dialer, err := proxy.SOCKS5("tcp", opts.ProxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = dialContext(dialer)
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	var rt http.RoundTripper = transport
	if opts.Cookie != "" || len(opts.Headers) > 0 {
		rt = &headerInjectingTransport{
			base:    transport,
			cookie:  opts.Cookie,
			headers: opts.Headers,
		}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, len(via))
			}
			return nil
		},
	}, nil
}

// dialContext adapts a proxy.Dialer to the Transport.DialContext signature.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}

// IsValidProxyAddress checks that address is "host:port" with a port in 1-65535.
func IsValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
