package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/dependents/internal/config"
	"github.com/nao1215/dependents/internal/model"
)

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// entry is one dependent row in a fixture page.
type entry struct {
	path  string
	stars int
}

// dependentsPage renders a GitHub-like dependents page. An empty next omits the Next button.
func dependentsPage(entries []entry, next string) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><div id="dependents"><div class="Box">`)
	for _, e := range entries {
		fmt.Fprintf(&sb, `<div class="Box-row">
  <span><a data-hovercard-type="repository" href="/%s">%s</a></span>
  <span class="color-fg-muted"><svg class="octicon octicon-star"></svg> %d</span>
</div>`, e.path, e.path, e.stars)
	}
	sb.WriteString(`</div><div class="paginate-container"><div class="BtnGroup">`)
	sb.WriteString(`<button class="btn" disabled="disabled">Previous</button>`)
	if next != "" {
		fmt.Fprintf(&sb, `<a class="btn" href="%s">Next</a>`, next)
	}
	sb.WriteString(`</div></div></div></body></html>`)
	return sb.String()
}

// listing maps a ?page= number to the entries of that page.
type listing map[int][]entry

// newListingServer serves one listing per repository path under /{owner}/{repo}/network/dependents.
// A page missing from a listing, or mapped to nil, answers 404. The last key has no Next button.
func newListingServer(t *testing.T, listings map[string]listing) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		repo := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/network/dependents")
		pages, ok := listings[repo]
		if !ok {
			http.NotFound(w, r)
			return
		}

		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil {
				http.Error(w, "bad page", http.StatusBadRequest)
				return
			}
			page = n
		}

		entries, ok := pages[page]
		if !ok || entries == nil {
			http.NotFound(w, r)
			return
		}

		next := ""
		if _, more := pages[page+1]; more {
			next = "?page=" + strconv.Itoa(page+1)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, dependentsPage(entries, next))
	}))
	t.Cleanup(srv.Close)

	return srv
}

// newTarget builds a target for repo served by srv with no request spacing.
func newTarget(srv *httptest.Server, repo string, minStars int) config.Target {
	return config.Target{
		URL:        srv.URL + "/" + repo + "/network/dependents",
		Repository: repo,
		MaxPages:   20,
		MinStars:   minStars,
		Timeout:    config.DefaultTimeout,
		UserAgent:  config.DefaultUserAgent,
	}
}

// memStore records saved reports.
type memStore struct {
	mu      sync.Mutex
	reports []*model.Report
	err     error
	ctxErr  error
}

func (m *memStore) SaveRun(ctx context.Context, report *model.Report) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ctxErr = ctx.Err()
	if m.err != nil {
		return 0, m.err
	}
	m.reports = append(m.reports, report)
	return int64(len(m.reports)), nil
}

func (m *memStore) saved() []*model.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Report(nil), m.reports...)
}

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name        string
	doFunc      func(ctx context.Context, run *Run) error
	afterCancel bool
	callCount   int
}

func (m *mockStep) Do(ctx context.Context, run *Run) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, run)
	}
	return nil
}

func (m *mockStep) Name() string {
	return m.name
}

func (m *mockStep) RunsAfterCancel() bool {
	return m.afterCancel
}
