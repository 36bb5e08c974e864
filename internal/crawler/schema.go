package crawler

import (
	"golang.org/x/net/html"
)

// Schema describes how to read one dependents listing page.
//
// Rows returns the dependent rows in page order and fails with an error when
// the page lacks the listing container. RepositoryLink and StarCount read a
// single row; any error discards the whole page. NextPageLink reports the
// next page target, with ok false on the last page.
type Schema interface {
	Rows(doc *html.Node) ([]*html.Node, error)
	RepositoryLink(row *html.Node) (string, error)
	StarCount(row *html.Node) (int, error)
	NextPageLink(doc *html.Node) (string, bool)
}
