package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/temoto/robotstxt"
)

// RobotsChecker decides whether a listing may be walked according to the
// robots.txt of its host. The file is fetched once per host and cached.
// A missing or unreadable robots.txt allows everything.
type RobotsChecker struct {
	fetcher   Fetcher
	userAgent string
	logger    *slog.Logger
	groups    map[string]*robotstxt.Group
}

// NewRobotsChecker creates a RobotsChecker that fetches with fetcher and
// matches rules for userAgent.
func NewRobotsChecker(fetcher Fetcher, userAgent string, logger *slog.Logger) *RobotsChecker {
	if logger == nil {
		logger = slog.Default()
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &RobotsChecker{
		fetcher:   fetcher,
		userAgent: userAgent,
		logger:    logger,
		groups:    make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether pageURL may be fetched.
// It is not safe for concurrent use.
func (r *RobotsChecker) Allowed(ctx context.Context, pageURL string) (bool, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false, fmt.Errorf("invalid URL %q: %w", pageURL, err)
	}

	group, cached := r.groups[u.Host]
	if !cached {
		group = r.load(ctx, u)
		r.groups[u.Host] = group
	}
	if group == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path), nil
}

// load fetches and parses robots.txt for the host of u.
// It returns nil when the file is unavailable.
func (r *RobotsChecker) load(ctx context.Context, u *url.URL) *robotstxt.Group {
	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()

	status, body, err := r.fetcher.Fetch(ctx, robotsURL)
	if err != nil {
		r.logger.Debug("robots.txt unavailable", "url", robotsURL, "error", err)
		return nil
	}
	if status >= 400 {
		r.logger.Debug("robots.txt not found", "url", robotsURL, "status", status)
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		r.logger.Debug("robots.txt unreadable", "url", robotsURL, "error", err)
		return nil
	}
	return data.FindGroup(r.userAgent)
}
