package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/dependents/internal/config"
	"github.com/nao1215/dependents/internal/crawler"
	"github.com/nao1215/dependents/internal/database"
	"github.com/nao1215/dependents/internal/github"
	"github.com/nao1215/dependents/internal/model"
)

// threePagesAndEmpty is three pages of two dependents each followed by an empty last page.
var threePagesAndEmpty = listing{
	1: {{"a/one", 10}, {"a/two", 20}},
	2: {{"b/one", 30}, {"b/two", 40}},
	3: {{"c/one", 50}, {"c/two", 60}},
	4: {},
}

func newScanPipeline(store RunStore, walkOpts ...WalkStepOption) *Pipeline {
	walkOpts = append([]WalkStepOption{WithWalkLogger(discardLogger())}, walkOpts...)
	p := New(WithLogger(discardLogger()))
	p.AddSteps(
		NewWalkStep(github.NewDependentsSchema(), walkOpts...),
		NewRankStep(),
	)
	if store != nil {
		p.AddStep(NewSaveStep(store, WithSaveLogger(discardLogger())))
	}
	return p
}

func TestScanEndToEnd(t *testing.T) {
	t.Parallel()

	srv := newListingServer(t, map[string]listing{"owner/repo": threePagesAndEmpty})
	run := NewRun(newTarget(srv, "owner/repo", 55))

	if err := newScanPipeline(nil).Execute(context.Background(), run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.Outcome.Dependents.Len() != 6 {
		t.Errorf("raw entries = %d, want 6", run.Outcome.Dependents.Len())
	}

	report := run.Report
	if report.PagesFetched != 4 {
		t.Errorf("PagesFetched = %d, want 4", report.PagesFetched)
	}
	if report.StopReason != model.StopReasonEndOfPages {
		t.Errorf("StopReason = %v, want end_of_pages", report.StopReason)
	}
	if report.TotalFound != 6 || report.MinStars != 55 {
		t.Errorf("TotalFound = %d, MinStars = %d", report.TotalFound, report.MinStars)
	}
	if len(report.Dependents) != 1 {
		t.Fatalf("expected 1 result, got %v", report.Dependents)
	}
	if report.Dependents[0].URL != srv.URL+"/c/two" || report.Dependents[0].Stars != 60 {
		t.Errorf("result = %+v", report.Dependents[0])
	}
	if report.FinishedAt.IsZero() {
		t.Error("FinishedAt should be set")
	}
}

func TestWalkStep(t *testing.T) {
	t.Parallel()

	t.Run("Name returns correct value", func(t *testing.T) {
		t.Parallel()

		if name := NewWalkStep(github.NewDependentsSchema()).Name(); name != "walk" {
			t.Errorf("Name() = %q", name)
		}
	})

	t.Run("keeps partial results when a page is rejected", func(t *testing.T) {
		t.Parallel()

		// Page 2 advertises page 3, which answers 404.
		srv := newListingServer(t, map[string]listing{"owner/repo": {
			1: {{"a/one", 10}, {"a/two", 20}},
			2: {{"b/one", 30}},
			3: nil,
		}})

		run := NewRun(newTarget(srv, "owner/repo", 0))
		if err := newScanPipeline(nil).Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.Report.StopReason != model.StopReasonRemoteRejection {
			t.Errorf("StopReason = %v, want remote_rejection", run.Report.StopReason)
		}
		if run.Report.PagesFetched != 2 || run.Report.TotalFound != 3 {
			t.Errorf("PagesFetched = %d, TotalFound = %d", run.Report.PagesFetched, run.Report.TotalFound)
		}
		if len(run.Report.Dependents) != 3 || run.Report.Dependents[0].Stars != 30 {
			t.Errorf("dependents = %v", run.Report.Dependents)
		}
	})

	t.Run("records remote rejection on the first page", func(t *testing.T) {
		t.Parallel()

		srv := newListingServer(t, map[string]listing{"owner/repo": threePagesAndEmpty})
		target := newTarget(srv, "owner/repo", 0)
		target.URL = srv.URL + "/owner/missing/network/dependents"

		run := NewRun(target)
		if err := newScanPipeline(nil).Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.Report.StopReason != model.StopReasonRemoteRejection {
			t.Errorf("StopReason = %v, want remote_rejection", run.Report.StopReason)
		}
		if !strings.Contains(run.Report.ErrorMessage, "404") {
			t.Errorf("ErrorMessage = %q", run.Report.ErrorMessage)
		}
		if run.Report.PagesFetched != 0 || len(run.Report.Dependents) != 0 {
			t.Errorf("expected no results, got %+v", run.Report)
		}
	})

	t.Run("stops at the page ceiling", func(t *testing.T) {
		t.Parallel()

		srv := newListingServer(t, map[string]listing{"owner/repo": threePagesAndEmpty})
		target := newTarget(srv, "owner/repo", 0)
		target.MaxPages = 2

		run := NewRun(target)
		if err := newScanPipeline(nil).Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.Report.StopReason != model.StopReasonPageLimit {
			t.Errorf("StopReason = %v, want page_limit", run.Report.StopReason)
		}
		if run.Report.TotalFound != 4 {
			t.Errorf("TotalFound = %d, want 4", run.Report.TotalFound)
		}
	})

	t.Run("reports progress with repository name", func(t *testing.T) {
		t.Parallel()

		srv := newListingServer(t, map[string]listing{"owner/repo": threePagesAndEmpty})

		var (
			mu    sync.Mutex
			pages []int
		)
		progress := func(repository string, page, found int) {
			mu.Lock()
			defer mu.Unlock()
			if repository != "owner/repo" {
				t.Errorf("repository = %q", repository)
			}
			pages = append(pages, page)
		}

		run := NewRun(newTarget(srv, "owner/repo", 0))
		p := newScanPipeline(nil, WithWalkProgress(progress), WithWalkProgressInterval(2))
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		mu.Lock()
		defer mu.Unlock()
		if len(pages) != 2 || pages[0] != 2 || pages[1] != 4 {
			t.Errorf("progress pages = %v, want [2 4]", pages)
		}
	})

	t.Run("returns fetcher construction errors", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("no client")
		step := NewWalkStep(github.NewDependentsSchema(),
			WithWalkLogger(discardLogger()),
			WithFetcherFactory(func(config.Target) (crawler.Fetcher, error) { return nil, boom }),
		)

		run := testRun()
		if err := step.Do(context.Background(), run); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if run.Outcome != nil {
			t.Error("outcome should stay nil")
		}
	})

	t.Run("rejects an invalid proxy before fetching", func(t *testing.T) {
		t.Parallel()

		target := config.Target{
			URL:          "https://github.com/a/b/network/dependents",
			Repository:   "a/b",
			ProxyAddress: "not a proxy",
		}

		step := NewWalkStep(github.NewDependentsSchema(), WithWalkLogger(discardLogger()))
		if err := step.Do(context.Background(), NewRun(target)); !errors.Is(err, crawler.ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("honors robots.txt when asked", func(t *testing.T) {
		t.Parallel()

		srv := newListingServer(t, map[string]listing{"owner/repo": threePagesAndEmpty})
		robots := &robotsFetcher{
			inner:  HTTPFetcherFactory(crawler.DefaultMaxBodySize),
			robots: "User-agent: *\nDisallow: /owner/\n",
		}

		run := NewRun(newTarget(srv, "owner/repo", 0))
		p := newScanPipeline(nil, WithRespectRobots(true), WithFetcherFactory(robots.factory))
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.Report.StopReason != model.StopReasonDisallowed {
			t.Errorf("StopReason = %v, want disallowed", run.Report.StopReason)
		}
	})
}

// robotsFetcher answers /robots.txt itself and delegates every other request.
type robotsFetcher struct {
	inner  FetcherFactory
	robots string
}

func (r *robotsFetcher) factory(target config.Target) (crawler.Fetcher, error) {
	inner, err := r.inner(target)
	if err != nil {
		return nil, err
	}
	return fetcherFunc(func(ctx context.Context, url string) (int, []byte, error) {
		if strings.HasSuffix(url, "/robots.txt") {
			return 200, []byte(r.robots), nil
		}
		return inner.Fetch(ctx, url)
	}), nil
}

type fetcherFunc func(ctx context.Context, url string) (int, []byte, error)

func (f fetcherFunc) Fetch(ctx context.Context, url string) (int, []byte, error) {
	return f(ctx, url)
}

func TestRankStep(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrNoOutcome without a walk", func(t *testing.T) {
		t.Parallel()

		if err := NewRankStep().Do(context.Background(), testRun()); !errors.Is(err, ErrNoOutcome) {
			t.Errorf("expected ErrNoOutcome, got %v", err)
		}
	})

	t.Run("filters and sorts the accumulator", func(t *testing.T) {
		t.Parallel()

		acc := model.NewAccumulator()
		acc.Put("a", 10)
		acc.Put("b", 3)
		acc.Put("c", 10)
		acc.Put("d", 7)

		run := testRun()
		run.Target.MinStars = 5
		run.Outcome = &crawler.Outcome{Dependents: acc, Reason: model.StopReasonEndOfPages}

		if err := NewRankStep().Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := run.Report.Dependents.URLs()
		want := []string{"a", "c", "d"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("URLs = %v, want %v", got, want)
		}
		if run.Report.TotalFound != 4 {
			t.Errorf("TotalFound = %d, want 4", run.Report.TotalFound)
		}
	})

	t.Run("runs after cancellation", func(t *testing.T) {
		t.Parallel()

		if !NewRankStep().RunsAfterCancel() {
			t.Error("rank must run after cancellation")
		}
	})
}

func TestSaveStep(t *testing.T) {
	t.Parallel()

	t.Run("saves the report", func(t *testing.T) {
		t.Parallel()

		store := &memStore{}
		run := testRun()
		if err := NewSaveStep(store, WithSaveLogger(discardLogger())).Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if saved := store.saved(); len(saved) != 1 || saved[0] != run.Report {
			t.Errorf("saved = %v", saved)
		}
	})

	t.Run("wraps store errors", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("disk full")
		store := &memStore{err: boom}
		if err := NewSaveStep(store, WithSaveLogger(discardLogger())).Do(context.Background(), testRun()); !errors.Is(err, boom) {
			t.Errorf("expected disk full, got %v", err)
		}
	})

	t.Run("saves even when the context is cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		store := &memStore{}
		if err := NewSaveStep(store, WithSaveLogger(discardLogger())).Do(ctx, testRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.ctxErr != nil {
			t.Errorf("store saw cancelled context: %v", store.ctxErr)
		}
	})

	t.Run("stores runs in the history database", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })

		srv := newListingServer(t, map[string]listing{"owner/repo": threePagesAndEmpty})
		run := NewRun(newTarget(srv, "owner/repo", 25))
		if err := newScanPipeline(db).Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		latest, err := db.GetLatestRun(context.Background(), "owner/repo")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if latest == nil || latest.RunID != run.Report.RunID {
			t.Fatalf("latest = %+v", latest)
		}
		if len(latest.Dependents) != 4 || latest.Dependents[0].Stars != 60 {
			t.Errorf("dependents = %v", latest.Dependents)
		}
	})
}
