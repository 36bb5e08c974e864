package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/dependents/internal/model"
)

// Page is what a single listing page yields.
type Page struct {
	// Dependents are the rows of the page in order.
	Dependents []model.Dependent

	// Next is the absolute address of the following page, or empty on the last page.
	Next string
}

// ExtractPage reads the dependents and the next link from a parsed page.
// Relative links are resolved against pageURL. It does not touch the network
// and has no side effects; on error the returned Page must be ignored.
func ExtractPage(doc *html.Node, pageURL string, schema Schema) (Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return Page{}, shapeError(pageURL, fmt.Errorf("invalid page URL: %w", err))
	}

	rows, err := schema.Rows(doc)
	if err != nil {
		return Page{}, shapeError(pageURL, err)
	}

	deps := make([]model.Dependent, 0, len(rows))
	for i, row := range rows {
		href, err := schema.RepositoryLink(row)
		if err != nil {
			return Page{}, shapeError(pageURL, fmt.Errorf("row %d: %w", i+1, err))
		}
		link, err := resolve(base, href)
		if err != nil {
			return Page{}, shapeError(pageURL, fmt.Errorf("row %d: %w", i+1, err))
		}
		stars, err := schema.StarCount(row)
		if err != nil {
			return Page{}, shapeError(pageURL, fmt.Errorf("row %d: %w", i+1, err))
		}
		deps = append(deps, model.Dependent{URL: link, Stars: stars})
	}

	page := Page{Dependents: deps}
	if href, ok := schema.NextPageLink(doc); ok {
		next, err := resolve(base, href)
		if err != nil {
			return Page{}, shapeError(pageURL, fmt.Errorf("next link: %w", err))
		}
		page.Next = next
	}
	return page, nil
}

// resolve turns href into an absolute address relative to base.
func resolve(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("%w: empty link", ErrUnexpectedShape)
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: invalid link %q", ErrUnexpectedShape, href)
	}
	return base.ResolveReference(u).String(), nil
}
