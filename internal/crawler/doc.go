// Package crawler walks the paginated dependents listing of a repository.
//
// # Architecture
//
// The package is built around the Paginator, which follows next-page links
// one page at a time and merges what each page yields into an Accumulator.
// What a page looks like is described by a Schema, so the walk itself knows
// nothing about GitHub markup; the github package provides the schema for
// the live site.
//
// # Components
//
//   - Paginator: The sequential, rate limited walk over listing pages
//   - ExtractPage: Pure extraction of dependents and the next link from one page
//   - Schema: The row/link/star/next contract a listing page must satisfy
//   - Fetcher: Retrieves raw pages; HTTPFetcher is the net/http implementation
//   - RobotsChecker: Optional robots.txt gate checked before the first request
//
// # Politeness
//
// A walk never issues requests concurrently. Consecutive requests start at
// least the configured delay apart, and no waiting happens after the last page.
//
// # Usage
//
//	fetcher := crawler.NewHTTPFetcher(client)
//	p := crawler.NewPaginator(fetcher, github.NewDependentsSchema(),
//		crawler.WithMaxPages(20),
//		crawler.WithDelay(1500*time.Millisecond),
//	)
//	outcome := p.Walk(ctx, "https://github.com/owner/repo/network/dependents")
//
// # Failure Handling
//
// Walk never returns an error. Transport failures, rejected requests and
// malformed pages end the walk early; the Outcome carries the partial
// result, the stop reason and the error that caused it.
package crawler
