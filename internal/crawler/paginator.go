package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/nao1215/dependents/internal/model"
)

const (
	// DefaultMaxPages is the page ceiling used when none is configured.
	// It is large enough to never be reached by a real listing.
	DefaultMaxPages = 100_000

	// DefaultDelay is the minimum spacing between two consecutive requests.
	DefaultDelay = 1500 * time.Millisecond

	// DefaultProgressInterval is how many pages pass between progress reports.
	DefaultProgressInterval = 10
)

// ProgressFunc is called every progress interval with the number of pages
// processed so far and the number of distinct dependents found.
type ProgressFunc func(page, found int)

// Paginator walks a dependents listing page by page.
// A Paginator holds only configuration; every Walk owns its own accumulator
// and rate limiter, so one Paginator may serve several walks.
type Paginator struct {
	fetcher          Fetcher
	schema           Schema
	maxPages         int
	delay            time.Duration
	progressInterval int
	progress         ProgressFunc
	robots           *RobotsChecker
	logger           *slog.Logger
}

// PaginatorOption configures a Paginator.
type PaginatorOption func(*Paginator)

// WithMaxPages sets the page ceiling. Zero or a negative value means DefaultMaxPages.
func WithMaxPages(n int) PaginatorOption {
	return func(p *Paginator) {
		if n <= 0 {
			n = DefaultMaxPages
		}
		p.maxPages = n
	}
}

// WithDelay sets the minimum spacing between consecutive requests.
// Zero disables rate limiting.
func WithDelay(d time.Duration) PaginatorOption {
	return func(p *Paginator) {
		if d < 0 {
			d = 0
		}
		p.delay = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PaginatorOption {
	return func(p *Paginator) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithProgressInterval sets how many pages pass between progress reports.
func WithProgressInterval(n int) PaginatorOption {
	return func(p *Paginator) {
		if n > 0 {
			p.progressInterval = n
		}
	}
}

// WithProgress sets a callback invoked at every progress report.
func WithProgress(fn ProgressFunc) PaginatorOption {
	return func(p *Paginator) {
		p.progress = fn
	}
}

// WithRobots makes the walk consult robots.txt before the first request.
func WithRobots(r *RobotsChecker) PaginatorOption {
	return func(p *Paginator) {
		p.robots = r
	}
}

// NewPaginator creates a Paginator that fetches with fetcher and reads pages with schema.
func NewPaginator(fetcher Fetcher, schema Schema, opts ...PaginatorOption) *Paginator {
	p := &Paginator{
		fetcher:          fetcher,
		schema:           schema,
		maxPages:         DefaultMaxPages,
		delay:            DefaultDelay,
		progressInterval: DefaultProgressInterval,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxPages returns the effective page ceiling.
func (p *Paginator) MaxPages() int {
	return p.maxPages
}

// Delay returns the configured request spacing.
func (p *Paginator) Delay() time.Duration {
	return p.delay
}

// Outcome is the result of one walk.
type Outcome struct {
	// Dependents holds every distinct dependent merged from successful pages.
	Dependents *model.Accumulator

	// Pages is the number of pages merged into Dependents.
	Pages int

	// Reason tells why the walk ended.
	Reason model.StopReason

	// LastURL is the last address the walk requested.
	LastURL string

	// Err is the error that ended the walk early, if any.
	Err error
}

// Exhausted reports whether the walk saw the whole listing.
func (o *Outcome) Exhausted() bool {
	return o.Reason.Exhausted()
}

// Truncated reports whether the walk stopped at the page ceiling.
func (o *Outcome) Truncated() bool {
	return o.Reason.Truncated()
}

// Walk follows the listing from startURL until it ends, fails or reaches
// the page ceiling. Failures never discard pages merged before them.
func (p *Paginator) Walk(ctx context.Context, startURL string) *Outcome {
	out := &Outcome{Dependents: model.NewAccumulator()}
	if startURL == "" {
		out.Reason = model.StopReasonEndOfPages
		return out
	}

	if p.robots != nil {
		allowed, err := p.robots.Allowed(ctx, startURL)
		if err != nil {
			return p.abort(out, startURL, model.StopReasonDisallowed, err)
		}
		if !allowed {
			return p.abort(out, startURL, model.StopReasonDisallowed,
				fmt.Errorf("%w: %s", ErrDisallowed, startURL))
		}
	}

	limit := rate.Inf
	if p.delay > 0 {
		limit = rate.Every(p.delay)
	}
	limiter := rate.NewLimiter(limit, 1)
	visited := make(map[string]struct{})

	current := startURL
	for {
		if err := ctx.Err(); err != nil {
			return p.abort(out, current, model.StopReasonCancelled, err)
		}
		if err := limiter.Wait(ctx); err != nil {
			return p.abort(out, current, model.StopReasonCancelled, err)
		}

		out.LastURL = current
		page, reason, err := p.fetchPage(ctx, current)
		if err != nil {
			return p.abort(out, current, reason, err)
		}

		out.Dependents.PutAll(page.Dependents)
		out.Pages++
		visited[current] = struct{}{}
		p.report(out)

		next := page.Next
		switch {
		case next == "":
			out.Reason = model.StopReasonEndOfPages
			return out
		case next == current:
			p.logger.Info("next page links to itself", "url", current)
			out.Reason = model.StopReasonSelfLink
			return out
		case isVisited(visited, next):
			p.logger.Info("next page was already visited", "url", current, "next", next)
			out.Reason = model.StopReasonCycle
			return out
		case out.Pages >= p.maxPages:
			p.logger.Info("page limit reached", "pages", out.Pages, "next", next)
			out.Reason = model.StopReasonPageLimit
			return out
		}
		current = next
	}
}

// fetchPage fetches and extracts one page.
// On failure it returns the stop reason matching the error.
func (p *Paginator) fetchPage(ctx context.Context, pageURL string) (Page, model.StopReason, error) {
	status, body, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Page{}, model.StopReasonCancelled, ctxErr
		}
		if errors.Is(err, ErrBodyTooLarge) {
			return Page{}, model.StopReasonParseError, shapeError(pageURL, err)
		}
		if !errors.Is(err, ErrTransport) {
			err = fmt.Errorf("%w: %w", ErrTransport, err)
		}
		return Page{}, model.StopReasonTransportError, err
	}
	if status >= 400 {
		return Page{}, model.StopReasonRemoteRejection, &StatusError{URL: pageURL, Code: status}
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return Page{}, model.StopReasonParseError, shapeError(pageURL, err)
	}
	page, err := ExtractPage(doc, pageURL, p.schema)
	if err != nil {
		return Page{}, model.StopReasonParseError, err
	}
	return page, model.StopReasonUnknown, nil
}

// abort records a failed walk and logs why it ended.
func (p *Paginator) abort(out *Outcome, pageURL string, reason model.StopReason, err error) *Outcome {
	out.Reason = reason
	out.Err = err

	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		p.logger.Warn("page rejected", "url", pageURL, "status", statusErr.Code, "pages", out.Pages)
	case reason == model.StopReasonCancelled:
		p.logger.Warn("walk cancelled", "url", pageURL, "pages", out.Pages, "error", err)
	default:
		p.logger.Error("walk aborted", "url", pageURL, "reason", reason.String(), "pages", out.Pages, "error", err)
	}
	return out
}

// report emits progress every progressInterval pages.
func (p *Paginator) report(out *Outcome) {
	if out.Pages%p.progressInterval != 0 {
		return
	}
	p.logger.Info("page done", "page", out.Pages, "found", out.Dependents.Len())
	if p.progress != nil {
		p.progress(out.Pages, out.Dependents.Len())
	}
}

func isVisited(visited map[string]struct{}, u string) bool {
	_, ok := visited[u]
	return ok
}
