// Package report renders finished runs for people and tools.
//
// Writers for the supported formats:
//   - SimpleWriter: the classic "stars | url" listing with a short header
//   - JSONWriter: the full run as JSON for scripts
//   - MarkdownWriter: a document with a summary table and the ranked list
//
// All writers implement Writer, so the CLI can swap or combine them.
package report
