// Package github knows the shape of GitHub dependents listings.
//
// It turns user supplied repository addresses into dependents listing
// addresses and provides DependentsSchema, the crawler.Schema for the
// listing markup served by github.com.
package github
