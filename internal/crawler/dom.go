package crawler

import (
	"strings"

	"golang.org/x/net/html"
)

// Predicate reports whether a node matches.
type Predicate func(*html.Node) bool

// FindFirst returns the first descendant of n (depth first, document order)
// matching pred, or nil. n itself is not tested.
func FindFirst(n *html.Node, pred Predicate) *html.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if pred(c) {
			return c
		}
		if found := FindFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant of n matching pred in document order.
// Matches nested inside another match are included.
func FindAll(n *html.Node, pred Predicate) []*html.Node {
	var matches []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if pred(c) {
				matches = append(matches, c)
			}
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return matches
}

// IsElement matches element nodes of the given tag. An empty tag matches any element.
func IsElement(tag string) Predicate {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && (tag == "" || n.Data == tag)
	}
}

// ByID matches the element whose id attribute equals id.
func ByID(id string) Predicate {
	return func(n *html.Node) bool {
		v, ok := Attr(n, "id")
		return n.Type == html.ElementNode && ok && v == id
	}
}

// HasClass matches elements carrying class among their classes.
func HasClass(class string) Predicate {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		v, ok := Attr(n, "class")
		if !ok {
			return false
		}
		for _, c := range strings.Fields(v) {
			if c == class {
				return true
			}
		}
		return false
	}
}

// HasAttr matches elements whose attribute key equals value.
func HasAttr(key, value string) Predicate {
	return func(n *html.Node) bool {
		v, ok := Attr(n, key)
		return n.Type == html.ElementNode && ok && v == value
	}
}

// And matches nodes satisfying every predicate.
func And(preds ...Predicate) Predicate {
	return func(n *html.Node) bool {
		for _, p := range preds {
			if !p(n) {
				return false
			}
		}
		return true
	}
}

// Attr retrieves an attribute value from an HTML node.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// Text returns the concatenated text content of n and its descendants.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(Text(c))
	}
	return sb.String()
}

// NextSiblingText returns the text of the first non-blank sibling after n.
// Element siblings contribute their full text content.
func NextSiblingText(n *html.Node) string {
	if n == nil {
		return ""
	}
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.CommentNode {
			continue
		}
		if text := Text(s); strings.TrimSpace(text) != "" {
			return text
		}
	}
	return ""
}
