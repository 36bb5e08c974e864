package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/nao1215/dependents/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// The output renders well on GitHub, in issues and in wikis.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one run as a Markdown document.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	return w.WriteAll([]*model.Report{report})
}

// WriteAll outputs the runs as one document with a section per repository.
func (w *MarkdownWriter) WriteAll(reports []*model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Dependents Report")
	md.PlainText("")

	for _, report := range reports {
		w.writeSummary(md, report)
		w.writeAlert(md, report)
		w.writeDependents(md, report)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.Report) {
	md.H2(report.Repository)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Listing", report.URL},
			{"Run ID", "`" + report.RunID + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages Fetched", w.number(report.PagesFetched)},
			{"Status", statusText(report)},
			{"Dependents Found", w.number(report.TotalFound)},
			{"Minimum Stars", w.number(report.MinStars)},
			{"Total Stars Shown", w.number(report.Dependents.TotalStars())},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.Report) {
	switch {
	case report.StopReason.Failed():
		msg := "The walk stopped early (" + reasonLabel(report.StopReason) + "). Results are partial."
		if report.ErrorMessage != "" {
			msg += " " + report.ErrorMessage
		}
		md.Warningf("%s", msg)
	case report.StopReason.Truncated():
		md.Note("The page limit was reached before the end of the listing. Raise --pages to see more.")
	default:
		md.Tip("The whole dependents listing was read.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeDependents(md *markdown.Markdown, report *model.Report) {
	md.H3("Dependents")
	md.PlainText("")

	if len(report.Dependents) == 0 {
		md.PlainTextf("No dependents with at least %d stars.", report.MinStars)
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(report.Dependents))
	for i, d := range report.Dependents {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			"[" + d.URL + "](" + d.URL + ")",
			w.number(d.Stars),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Repository", "Stars"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [dependents](https://github.com/nao1215/dependents)*")
}
