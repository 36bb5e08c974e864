package crawler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
)

// listSchema reads the simplified listing markup produced by listingHTML.
type listSchema struct{}

func (listSchema) Rows(doc *html.Node) ([]*html.Node, error) {
	list := FindFirst(doc, ByID("list"))
	if list == nil {
		return nil, errors.New("no list")
	}
	return FindAll(list, HasClass("row")), nil
}

func (listSchema) RepositoryLink(row *html.Node) (string, error) {
	a := FindFirst(row, IsElement("a"))
	href, ok := Attr(a, "href")
	if !ok {
		return "", errors.New("no link")
	}
	return href, nil
}

func (listSchema) StarCount(row *html.Node) (int, error) {
	span := FindFirst(row, HasClass("stars"))
	if span == nil {
		return 0, errors.New("no stars")
	}
	return strconv.Atoi(strings.TrimSpace(Text(span)))
}

func (listSchema) NextPageLink(doc *html.Node) (string, bool) {
	next := FindFirst(doc, HasClass("next"))
	href, ok := Attr(next, "href")
	return href, ok
}

type row struct {
	path  string
	stars int
}

// listingHTML renders a page listSchema understands. An empty next omits the link.
func listingHTML(rows []row, next string) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><ul id="list">`)
	for _, r := range rows {
		fmt.Fprintf(&sb, `<li class="row"><a href="%s">%s</a><span class="stars">%d</span></li>`, r.path, r.path, r.stars)
	}
	sb.WriteString(`</ul>`)
	if next != "" {
		fmt.Fprintf(&sb, `<a class="next" href="%s">Next</a>`, next)
	}
	sb.WriteString(`</body></html>`)
	return sb.String()
}

type response struct {
	status int
	body   string
	err    error
}

// stubFetcher serves canned responses and records every request.
type stubFetcher struct {
	mu        sync.Mutex
	responses map[string]response
	calls     []string
	times     []time.Time
}

func newStubFetcher(responses map[string]response) *stubFetcher {
	return &stubFetcher{responses: responses}
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	f.times = append(f.times, time.Now())

	resp, ok := f.responses[url]
	if !ok {
		return 404, []byte("not found"), nil
	}
	if resp.err != nil {
		return 0, nil, resp.err
	}
	status := resp.status
	if status == 0 {
		status = 200
	}
	return status, []byte(resp.body), nil
}

func (f *stubFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
