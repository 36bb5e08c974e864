package github

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/dependents/internal/crawler"
)

// Default selectors of the github.com dependents listing.
const (
	DefaultContainerID    = "dependents"
	DefaultRowClass       = "Box-row"
	DefaultHovercardType  = "repository"
	DefaultStarClass      = "octicon-star"
	DefaultNextButtonText = "Next"
)

var (
	errNoContainer = errors.New("dependents container not found")
	errNoLink      = errors.New("repository link not found")
	errNoStar      = errors.New("star marker not found")
	errNoDigits    = errors.New("star count has no digits")
)

// DependentsSchema reads the github.com dependents listing.
// Every selector is a field so that a changed markup can be followed
// through SchemaOptions without touching the crawler.
type DependentsSchema struct {
	containerID    string
	rowClass       string
	hovercardType  string
	starClass      string
	nextButtonText string
}

var _ crawler.Schema = (*DependentsSchema)(nil)

// SchemaOption configures a DependentsSchema.
type SchemaOption func(*DependentsSchema)

// WithContainerID sets the id of the element holding the rows.
func WithContainerID(id string) SchemaOption {
	return func(s *DependentsSchema) { s.containerID = id }
}

// WithRowClass sets the class marking one dependent row.
func WithRowClass(class string) SchemaOption {
	return func(s *DependentsSchema) { s.rowClass = class }
}

// WithHovercardType sets the data-hovercard-type of the repository link.
func WithHovercardType(t string) SchemaOption {
	return func(s *DependentsSchema) { s.hovercardType = t }
}

// WithStarClass sets the class of the icon preceding the star count.
func WithStarClass(class string) SchemaOption {
	return func(s *DependentsSchema) { s.starClass = class }
}

// WithNextButtonText sets the exact text of the next-page link.
func WithNextButtonText(text string) SchemaOption {
	return func(s *DependentsSchema) { s.nextButtonText = text }
}

// NewDependentsSchema creates a schema for the github.com listing markup.
func NewDependentsSchema(opts ...SchemaOption) *DependentsSchema {
	s := &DependentsSchema{
		containerID:    DefaultContainerID,
		rowClass:       DefaultRowClass,
		hovercardType:  DefaultHovercardType,
		starClass:      DefaultStarClass,
		nextButtonText: DefaultNextButtonText,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rows implements crawler.Schema.
func (s *DependentsSchema) Rows(doc *html.Node) ([]*html.Node, error) {
	container := crawler.FindFirst(doc, crawler.ByID(s.containerID))
	if container == nil {
		return nil, fmt.Errorf("%w: #%s", errNoContainer, s.containerID)
	}
	return crawler.FindAll(container, crawler.HasClass(s.rowClass)), nil
}

// RepositoryLink implements crawler.Schema.
func (s *DependentsSchema) RepositoryLink(row *html.Node) (string, error) {
	link := crawler.FindFirst(row, crawler.And(
		crawler.IsElement("a"),
		crawler.HasAttr("data-hovercard-type", s.hovercardType),
	))
	if link == nil {
		return "", errNoLink
	}
	href, ok := crawler.Attr(link, "href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", fmt.Errorf("%w: empty href", errNoLink)
	}
	return href, nil
}

// StarCount implements crawler.Schema.
// The count is the text right after the star icon with every
// non-digit removed, so "1,234 stars" reads as 1234.
func (s *DependentsSchema) StarCount(row *html.Node) (int, error) {
	star := crawler.FindFirst(row, crawler.HasClass(s.starClass))
	if star == nil {
		return 0, errNoStar
	}
	return ParseStarCount(crawler.NextSiblingText(star))
}

// NextPageLink implements crawler.Schema.
// The next link is the first element whose text is exactly the next button
// text and that carries an href. A disabled button without href means the
// current page is the last one.
func (s *DependentsSchema) NextPageLink(doc *html.Node) (string, bool) {
	next := crawler.FindFirst(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		href, ok := crawler.Attr(n, "href")
		if !ok || strings.TrimSpace(href) == "" {
			return false
		}
		return crawler.Text(n) == s.nextButtonText
	})
	if next == nil {
		return "", false
	}
	href, _ := crawler.Attr(next, "href")
	return strings.TrimSpace(href), true
}

// ParseStarCount strips every non-digit from text and parses the rest.
func ParseStarCount(text string) (int, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if digits == "" {
		return 0, fmt.Errorf("%w: %q", errNoDigits, strings.TrimSpace(text))
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("star count %q: %w", strings.TrimSpace(text), err)
	}
	return n, nil
}
