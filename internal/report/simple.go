package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/dependents/internal/model"
)

const separator = "=============================================================="

// SimpleWriter outputs the ranked dependents as plain text.
// Each dependent is printed as "  stars | url", right-aligned in seven columns.
type SimpleWriter struct {
	baseWriter

	// plain drops the header and prints only the dependent lines.
	plain bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithPlain prints only the "stars | url" lines, suitable for piping.
func WithPlain(plain bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.plain = plain
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one run.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder
	w.render(&sb, report)
	return io.WriteString(w.output, sb.String())
}

// WriteAll outputs the runs one after another separated by a blank line.
func (w *SimpleWriter) WriteAll(reports []*model.Report) (int, error) {
	var sb strings.Builder
	for i, report := range reports {
		if i > 0 && !w.plain {
			sb.WriteString("\n")
		}
		w.render(&sb, report)
	}
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) render(sb *strings.Builder, report *model.Report) {
	if !w.plain {
		w.writeHeader(sb, report)
	}
	for _, d := range report.Dependents {
		fmt.Fprintf(sb, "%7d | %s\n", d.Stars, d.URL)
	}
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.Report) {
	sb.WriteString(separator + "\n")
	sb.WriteString("DEPENDENTS OF " + report.Repository + "\n")
	sb.WriteString(separator + "\n")
	fmt.Fprintf(sb, "Listing:     %s\n", report.URL)
	fmt.Fprintf(sb, "Pages:       %s\n", w.number(report.PagesFetched))
	fmt.Fprintf(sb, "Status:      %s\n", statusText(report))
	if report.ErrorMessage != "" {
		fmt.Fprintf(sb, "Error:       %s\n", report.ErrorMessage)
	}
	fmt.Fprintf(sb, "Found:       %s dependents\n", w.number(report.TotalFound))
	fmt.Fprintf(sb, "Shown:       %s with at least %s stars\n",
		w.number(len(report.Dependents)), w.number(report.MinStars))
	fmt.Fprintf(sb, "Total stars: %s\n", w.number(report.Dependents.TotalStars()))
	sb.WriteString("\n")

	if len(report.Dependents) == 0 {
		sb.WriteString("No dependents matched the star threshold.\n")
	}
}
